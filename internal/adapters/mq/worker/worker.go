package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/nrtgrade/internal/domain/model"
	"github.com/okian/nrtgrade/pkg/logger"
	"github.com/okian/nrtgrade/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	defaultRateInterval     = 5 * time.Second
)

// Writer stores a submission in the score sheet.
type Writer interface {
	Put(ctx context.Context, s model.Submission) (bool, error)
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Submission
}

// InMemoryWorker drains a queue into a Writer.
type InMemoryWorker struct {
	queue   Queue
	writer  Writer
	name    string
	logger  logger.Logger
	applied func()
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, w Writer, opts ...Option) *InMemoryWorker {
	wk := &InMemoryWorker{
		queue:   q,
		writer:  w,
		name:    "worker",
		applied: func() {},
	}
	for _, opt := range opts {
		opt(wk)
	}
	if wk.logger == nil {
		wk.logger = logger.Get()
	}
	wk.logger = wk.logger.Named(wk.name)
	return wk
}

// Run applies submissions until the queue is closed and drained or ctx is done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	for s := range w.queue.Dequeue(ctx) {
		// Errors are logged and counted in process; the loop keeps going.
		_ = w.process(ctx, s)
	}
}

func (w *InMemoryWorker) process(ctx context.Context, s model.Submission) error { //nolint:gocritic // hugeParam: channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	replaced, err := w.writer.Put(ctx, s)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		metrics.RecordErrorByType("store_error", "high")
		w.logger.Error(ctx, "failed to apply submission",
			logger.String("submission_id", s.ID),
			logger.String("cycle", s.Cycle),
			logger.String("student_id", s.StudentID),
			logger.Error(err),
		)
		return fmt.Errorf("apply submission %s: %w", s.ID, err)
	}

	metrics.RecordSubmissionApplied()
	w.applied()
	w.logger.Debug(ctx, "submission applied",
		logger.String("submission_id", s.ID),
		logger.String("subject", s.Subject.String()),
		logger.Bool("replaced", replaced),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers      []*InMemoryWorker
	queue        Queue
	rateInterval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup

	applied atomic.Int64

	logger logger.Logger
}

// NewPool creates a worker pool. workerCount < 1 selects a CPU based default.
func NewPool(workerCount int, q Queue, w Writer, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers:      make([]*InMemoryWorker, workerCount),
		queue:        q,
		rateInterval: defaultRateInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get()
	}
	p.logger = p.logger.Named("worker-pool")

	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, w,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
		)
		p.workers[i].applied = func() { p.applied.Add(1) }
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerMessagesPerSecond(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Applied returns how many submissions the pool has written.
func (p *Pool) Applied() int64 { return p.applied.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	go p.startRateUpdater(ctx)
}

func (p *Pool) startRateUpdater(ctx context.Context) {
	ticker := time.NewTicker(p.rateInterval)
	defer ticker.Stop()

	last, lastAt := p.applied.Load(), time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cur := p.applied.Load()
			if secs := now.Sub(lastAt).Seconds(); secs > 0 {
				metrics.UpdateWorkerMessagesPerSecond(float64(cur-last) / secs)
			}
			last, lastAt = cur, now
		}
	}
}

// Stop cancels all workers without draining the queue.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Shutdown closes the queue, lets workers drain it, and waits until they
// finish or ctx is done, in which case the remaining work is abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if p.cancel != nil {
			p.cancel()
		}
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out", logger.Int("workers", len(p.workers)))
		p.Stop()
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
