package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/nrtgrade/internal/config"
	"github.com/okian/nrtgrade/internal/domain/grading"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.Parallelism, convey.ShouldEqual, runtime.NumCPU())
		})

		convey.Convey("Then the grading block round-trips to the default engine configuration", func() {
			gc, err := cfg.Grading.Configuration()
			convey.So(err, convey.ShouldBeNil)
			convey.So(gc, convey.ShouldResemble, grading.DefaultConfiguration())
		})
	})
}

func TestGrading_Configuration(t *testing.T) {
	convey.Convey("Given a grading block", t, func() {
		g := config.New().Grading

		convey.Convey("When core subjects need canonicalizing", func() {
			g.CoreSubjects = []string{"  English ", "Integrated   Science"}
			gc, err := g.Configuration()

			convey.Convey("Then the names are cleaned up", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(gc.CoreSubjects, convey.ShouldResemble, []grading.Subject{"English", "Integrated Science"})
			})
		})

		convey.Convey("When normalization is enabled for a subject", func() {
			g.Normalization = config.Normalization{Enabled: true, Subject: "French", MaxScore: 80}
			gc, err := g.Configuration()
			convey.So(err, convey.ShouldBeNil)
			convey.So(gc.Normalization.Subject, convey.ShouldEqual, grading.Subject("French"))
		})

		convey.Convey("When a core subject is blank", func() {
			g.CoreSubjects = []string{"   "}
			_, err := g.Configuration()
			convey.So(errors.Is(err, grading.ErrInvalidSubject), convey.ShouldBeTrue)
		})

		convey.Convey("When the weights are wrong", func() {
			g.ExamWeight = 10
			_, err := g.Configuration()
			convey.So(errors.Is(err, grading.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
