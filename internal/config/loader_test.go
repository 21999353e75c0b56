package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/okian/nrtgrade/internal/config"
	"github.com/okian/nrtgrade/internal/domain/grading"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.Grading.BestN, convey.ShouldEqual, 6)
				convey.So(cfg.Grading.Thresholds, convey.ShouldHaveLength, 8)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("NRT_ADDR", ":8080")
			_ = os.Setenv("NRT_QUEUE_SIZE", "500")
			_ = os.Setenv("NRT_WORKER_COUNT", "16")
			_ = os.Setenv("NRT_GRADING__SBA__WEIGHT", "40")
			_ = os.Setenv("NRT_GRADING__EXAM_WEIGHT", "60")
			_ = os.Setenv("NRT_GRADING__CORE_SUBJECTS", "English,Mathematics")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.Grading.SBA.Weight, convey.ShouldEqual, 40)
				convey.So(cfg.Grading.ExamWeight, convey.ShouldEqual, 60)
				convey.So(cfg.Grading.CoreSubjects, convey.ShouldResemble, []string{"English", "Mathematics"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
queue_size: 3000
parallelism: 4
grading:
  best_n: 7
  use_t_distribution: false
  thresholds:
    - {grade: "A", z_score: 1, percent: 75}
    - {grade: "B", z_score: 0, percent: 60}
    - {grade: "C", z_score: -1, percent: 45}
  fail_grade: "F"
  categories:
    - {label: "Honours", min: 7, max: 10}
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("NRT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 3000)
				convey.So(cfg.Parallelism, convey.ShouldEqual, 4)
				convey.So(cfg.Grading.BestN, convey.ShouldEqual, 7)
				convey.So(cfg.Grading.UseTDistribution, convey.ShouldBeFalse)
			})

			convey.Convey("And configured lists replace the defaults entirely", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Grading.Thresholds, convey.ShouldHaveLength, 3)
				convey.So(cfg.Grading.Thresholds[0].Grade, convey.ShouldEqual, "A")
				convey.So(cfg.Grading.Categories, convey.ShouldResemble, []config.Category{{Label: "Honours", Min: 7, Max: 10}})
			})

			convey.Convey("And untouched grading keys keep their defaults", func() {
				convey.So(cfg.Grading.MaxSectionA, convey.ShouldEqual, 40)
				convey.So(cfg.Grading.SBA.Weight, convey.ShouldEqual, 30)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nworker_count: 24\nqueue_size: 3000\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("NRT_CONFIG", tmpFile)
			_ = os.Setenv("NRT_WORKER_COUNT", "32")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 3000)
			})
		})

		convey.Convey("When loading an explicit file", func() {
			tmpFile := createTempConfigFile("grading:\n  sba:\n    enabled: false\n")
			defer func() { _ = os.Remove(tmpFile) }()

			cfg, err := config.LoadFile(ctx, tmpFile)

			convey.Convey("Then the file is used without NRT_CONFIG", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Grading.SBA.Enabled, convey.ShouldBeFalse)
			})
		})
	})
}

func TestConfigLoaderEdgeCases(t *testing.T) {
	convey.Convey("Given broken configuration sources", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When the YAML is invalid", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("NRT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("NRT_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)
			convey.So(cfg, convey.ShouldBeNil)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When addr is empty", func() {
			tmpFile := createTempConfigFile("addr: \"\"\n")
			defer func() { _ = os.Remove(tmpFile) }()

			cfg, err := config.LoadFile(ctx, tmpFile)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			})
		})

		convey.Convey("When the grading weights do not sum to 100", func() {
			_ = os.Setenv("NRT_GRADING__EXAM_WEIGHT", "50")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then both the config and grading sentinels match", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, grading.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a count is negative", func() {
			_ = os.Setenv("NRT_WORKER_COUNT", "-1")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "nrt-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
