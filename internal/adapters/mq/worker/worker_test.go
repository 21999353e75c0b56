package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/nrtgrade/internal/adapters/mq/queue"
	"github.com/okian/nrtgrade/internal/adapters/mq/worker"
	"github.com/okian/nrtgrade/internal/domain/model"
	logging "github.com/okian/nrtgrade/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// mockWriter records what the workers apply.
type mockWriter struct {
	mu      sync.Mutex
	applied map[string]model.Submission
	fail    map[string]error
	delay   time.Duration
}

func newMockWriter() *mockWriter {
	return &mockWriter{applied: make(map[string]model.Submission), fail: make(map[string]error)}
}

func (m *mockWriter) Put(_ context.Context, s model.Submission) (bool, error) {
	m.mu.Lock()
	delay := m.delay
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.fail[s.StudentID]; ok {
		return false, err
	}
	_, replaced := m.applied[s.ID]
	m.applied[s.ID] = s
	return replaced, nil
}

func (m *mockWriter) setFail(studentID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[studentID] = err
}

func (m *mockWriter) setDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

func (m *mockWriter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applied)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func sub(i int) model.Submission {
	return model.Submission{
		ID:        fmt.Sprintf("sub-%d", i),
		Cycle:     "2024-T1",
		StudentID: fmt.Sprintf("s%03d", i),
		Subject:   "Mathematics",
	}
}

func TestInMemoryWorker(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a worker reading from a queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		w := newMockWriter()
		wk := worker.NewInMemoryWorker(q, w, worker.WithName("sheet-writer"))

		done := make(chan struct{})
		go func() {
			wk.Run(ctx)
			close(done)
		}()

		convey.Convey("When submissions are queued", func() {
			for i := 0; i < 5; i++ {
				convey.So(q.Enqueue(ctx, sub(i)), convey.ShouldBeNil)
			}

			convey.Convey("Then each one is written", func() {
				convey.So(waitFor(func() bool { return w.count() == 5 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the writer fails for one student", func() {
			w.setFail("s001", errors.New("disk on fire"))
			for i := 0; i < 3; i++ {
				_ = q.Enqueue(ctx, sub(i))
			}

			convey.Convey("Then the worker keeps going", func() {
				convey.So(waitFor(func() bool { return w.count() == 2 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the queue is closed", func() {
			_ = q.Close()

			convey.Convey("Then Run returns", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					convey.So("worker still running", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a pool of four workers", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(1000))
		w := newMockWriter()
		pool := worker.NewPool(4, q, w, worker.WithRateInterval(10*time.Millisecond))
		pool.Start(ctx)

		convey.Convey("Then it reports its size", func() {
			convey.So(pool.Size(), convey.ShouldEqual, 4)
			pool.Stop()
		})

		convey.Convey("When many submissions are queued and the pool shuts down", func() {
			for i := 0; i < 500; i++ {
				convey.So(q.Enqueue(ctx, sub(i)), convey.ShouldBeNil)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then the queue is drained before shutdown returns", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.count(), convey.ShouldEqual, 500)
				convey.So(pool.Applied(), convey.ShouldEqual, 500)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shutdown runs out of time", func() {
			w.setDelay(20 * time.Millisecond)
			for i := 0; i < 200; i++ {
				_ = q.Enqueue(ctx, sub(i))
			}
			shortCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
			defer cancel()
			err := pool.Shutdown(shortCtx)

			convey.Convey("Then it reports the timeout", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
				convey.So(w.count(), convey.ShouldBeLessThan, 200)
			})
		})
	})

	convey.Convey("Given a pool created with no worker count", t, func() {
		q := queue.NewInMemoryQueue()
		pool := worker.NewPool(0, q, newMockWriter())

		convey.Convey("Then a CPU based default is used", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
