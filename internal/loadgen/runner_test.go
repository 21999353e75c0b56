package loadgen_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/nrtgrade/internal/adapters/http/api"
	service "github.com/okian/nrtgrade/internal/app"
	"github.com/okian/nrtgrade/internal/loadgen"
	"github.com/okian/nrtgrade/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newServer(opts ...service.Option) (*httptest.Server, *service.Service) {
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	return httptest.NewServer(mux), svc
}

func TestRun(t *testing.T) {
	Convey("Given a running grading server", t, func() {
		srv, svc := newServer(service.WithWorkerCount(4), service.WithQueueSize(64))
		defer srv.Close()
		defer svc.Stop()

		cfg := &loadgen.Config{
			BaseURL:      srv.URL,
			Cycle:        "load-2024",
			Students:     60,
			Subjects:     9,
			Workers:      8,
			Seed:         2024,
			Timeout:      5 * time.Second,
			Settle:       10 * time.Second,
			PollInterval: 10 * time.Millisecond,
		}

		Convey("When a synthetic cohort is driven through it", func() {
			out := filepath.Join(t.TempDir(), "subs", "generated.json")
			cfg.OutputFile = out
			stats, err := loadgen.Run(context.Background(), cfg)

			Convey("Then every submission lands and the ranking verifies", func() {
				So(err, ShouldBeNil)
				So(stats.Generated, ShouldEqual, 60*9)
				So(stats.Accepted+stats.Duplicate, ShouldEqual, 60*9)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Graded, ShouldEqual, 60)
			})

			Convey("And the generated submissions are saved", func() {
				info, err := os.Stat(out)
				So(err, ShouldBeNil)
				So(info.Size(), ShouldBeGreaterThan, 0)
			})

			Convey("And replaying the same seed is absorbed as duplicates", func() {
				cfg.OutputFile = ""
				again, err := loadgen.Run(context.Background(), cfg)
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldEqual, 60*9)
				So(again.Graded, ShouldEqual, 60)
			})
		})
	})

	Convey("Given a server that is not there", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		Convey("Then the run stops at the health check", func() {
			_, err := loadgen.Run(context.Background(), &loadgen.Config{BaseURL: srv.URL, Students: 1, Subjects: 1, Timeout: time.Second})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})

	Convey("Given a server that never applies scores", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		mux.HandleFunc("GET /grading-config", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"max_section_a":40,"max_section_b":60,"max_sba":100,"best_n":6}`))
		})
		mux.HandleFunc("POST /scores", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) })
		mux.HandleFunc("GET /cycles", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"cycles":[]}`)) })
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("Then the run reports an incomplete sheet", func() {
			_, err := loadgen.Run(context.Background(), &loadgen.Config{
				BaseURL: srv.URL, Students: 2, Subjects: 2, Workers: 2,
				Settle: 50 * time.Millisecond, PollInterval: 5 * time.Millisecond,
			})
			So(errors.Is(err, loadgen.ErrIncomplete), ShouldBeTrue)
		})
	})

	Convey("Given a server that rejects scores", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		mux.HandleFunc("GET /grading-config", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"max_section_a":40,"max_section_b":60,"max_sba":100,"best_n":6}`))
		})
		mux.HandleFunc("POST /scores", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"code":"internal_error"}`, http.StatusInternalServerError)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("Then the failures are counted and reported", func() {
			stats, err := loadgen.Run(context.Background(), &loadgen.Config{BaseURL: srv.URL, Students: 3, Subjects: 2, Workers: 2})
			So(err, ShouldNotBeNil)
			So(stats.Failed, ShouldEqual, 6)
		})
	})
}
