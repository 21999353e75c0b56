// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"

	"github.com/okian/nrtgrade/internal/domain/grading"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of score sheet writers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the submission id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// Parallelism caps the goroutines a single grading run may use.
	Parallelism int `koanf:"parallelism"`

	// Grading holds the rules every cohort is graded with.
	Grading Grading `koanf:"grading"`
}

// Threshold is one row of the grade table.
type Threshold struct {
	Grade   string  `koanf:"grade"`
	ZScore  float64 `koanf:"z_score"`
	Percent float64 `koanf:"percent"`
}

// Category is one aggregate band.
type Category struct {
	Label string `koanf:"label"`
	Min   int    `koanf:"min"`
	Max   int    `koanf:"max"`
}

// SBA configures the school based assessment component.
type SBA struct {
	Enabled bool    `koanf:"enabled"`
	Locked  bool    `koanf:"locked"`
	Weight  float64 `koanf:"weight"`
}

// Normalization rescales one subject marked on a non-standard scale.
type Normalization struct {
	Enabled  bool    `koanf:"enabled"`
	Subject  string  `koanf:"subject"`
	MaxScore float64 `koanf:"max_score"`
}

// Grading is the file/env form of grading.Configuration.
type Grading struct {
	MaxSectionA      float64       `koanf:"max_section_a"`
	MaxSectionB      float64       `koanf:"max_section_b"`
	MaxSBA           float64       `koanf:"max_sba"`
	SBA              SBA           `koanf:"sba"`
	ExamWeight       float64       `koanf:"exam_weight"`
	Thresholds       []Threshold   `koanf:"thresholds"`
	FailGrade        string        `koanf:"fail_grade"`
	Categories       []Category    `koanf:"categories"`
	Normalization    Normalization `koanf:"normalization"`
	BestN            int           `koanf:"best_n"`
	CoreSubjects     []string      `koanf:"core_subjects"`
	UseTDistribution bool          `koanf:"use_t_distribution"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Addr:        ":9080",
		QueueSize:   10_000,
		WorkerCount: runtime.NumCPU() * 2,
		DedupeSize:  100_000,
		Parallelism: runtime.NumCPU(),
		Grading:     FromConfiguration(grading.DefaultConfiguration()),
	}
}

// FromConfiguration converts an engine configuration into its loadable form.
func FromConfiguration(c grading.Configuration) Grading {
	g := Grading{
		MaxSectionA: c.MaxSectionA,
		MaxSectionB: c.MaxSectionB,
		MaxSBA:      c.MaxSBA,
		SBA:         SBA{Enabled: c.SBA.Enabled, Locked: c.SBA.Locked, Weight: c.SBA.Weight},
		ExamWeight:  c.ExamWeight,
		FailGrade:   c.FailGrade,
		Normalization: Normalization{
			Enabled:  c.Normalization.Enabled,
			Subject:  c.Normalization.Subject.String(),
			MaxScore: c.Normalization.MaxScore,
		},
		BestN:            c.BestN,
		UseTDistribution: c.UseTDistribution,
	}
	for _, t := range c.Thresholds {
		g.Thresholds = append(g.Thresholds, Threshold{Grade: t.Grade, ZScore: t.ZScore, Percent: t.Percent})
	}
	for _, b := range c.Categories {
		g.Categories = append(g.Categories, Category{Label: b.Label, Min: b.Min, Max: b.Max})
	}
	for _, s := range c.CoreSubjects {
		g.CoreSubjects = append(g.CoreSubjects, s.String())
	}
	return g
}

// Configuration converts the loaded block into an engine configuration.
// Subject names are canonicalized; invalid names surface from Validate.
func (g Grading) Configuration() (grading.Configuration, error) {
	c := grading.Configuration{
		MaxSectionA:      g.MaxSectionA,
		MaxSectionB:      g.MaxSectionB,
		MaxSBA:           g.MaxSBA,
		SBA:              grading.SBAConfig{Enabled: g.SBA.Enabled, Locked: g.SBA.Locked, Weight: g.SBA.Weight},
		ExamWeight:       g.ExamWeight,
		FailGrade:        g.FailGrade,
		BestN:            g.BestN,
		UseTDistribution: g.UseTDistribution,
	}
	for _, t := range g.Thresholds {
		c.Thresholds = append(c.Thresholds, grading.GradeThreshold{Grade: t.Grade, ZScore: t.ZScore, Percent: t.Percent})
	}
	for _, b := range g.Categories {
		c.Categories = append(c.Categories, grading.CategoryBand{Label: b.Label, Min: b.Min, Max: b.Max})
	}
	for _, name := range g.CoreSubjects {
		s, err := grading.ParseSubject(name)
		if err != nil {
			return grading.Configuration{}, err
		}
		c.CoreSubjects = append(c.CoreSubjects, s)
	}
	c.Normalization = grading.NormalizationConfig{Enabled: g.Normalization.Enabled, MaxScore: g.Normalization.MaxScore}
	if g.Normalization.Enabled {
		s, err := grading.ParseSubject(g.Normalization.Subject)
		if err != nil {
			return grading.Configuration{}, err
		}
		c.Normalization.Subject = s
	}
	if err := c.Validate(); err != nil {
		return grading.Configuration{}, err
	}
	return c, nil
}
