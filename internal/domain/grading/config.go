package grading

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Default configuration constants.
const (
	DefaultBestN       = 6
	defaultMaxSectionA = 40
	defaultMaxSectionB = 60
	defaultMaxSBA      = 100
	defaultSBAWeight   = 30
	defaultExamWeight  = 70
	weightTotal        = 100
	weightTolerance    = 1e-9
)

// GradeThreshold is one letter grade and the cut points that earn it. ZScore
// applies when grading on z-scores, Percent when grading on the composite.
type GradeThreshold struct {
	Grade   string  `json:"grade" yaml:"grade"`
	ZScore  float64 `json:"z_score" yaml:"z_score"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// CategoryBand labels an inclusive aggregate range.
type CategoryBand struct {
	Label string `json:"label" yaml:"label"`
	Min   int    `json:"min" yaml:"min"`
	Max   int    `json:"max" yaml:"max"`
}

// Contains reports whether aggregate lies within the band.
func (b CategoryBand) Contains(aggregate int) bool {
	return aggregate >= b.Min && aggregate <= b.Max
}

// SBAConfig controls the continuous assessment component.
// A locked SBA sheet is excluded from blending exactly like a disabled one.
type SBAConfig struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Locked  bool    `json:"locked" yaml:"locked"`
	Weight  float64 `json:"weight" yaml:"weight"`
}

// NormalizationConfig rescales one subject whose paper was marked out of
// MaxScore onto the standard exam ceiling.
type NormalizationConfig struct {
	Enabled  bool    `json:"enabled" yaml:"enabled"`
	Subject  Subject `json:"subject" yaml:"subject"`
	MaxScore float64 `json:"max_score" yaml:"max_score"`
}

// Configuration is the immutable input that drives every grading call.
type Configuration struct {
	MaxSectionA      float64             `json:"max_section_a" yaml:"max_section_a"`
	MaxSectionB      float64             `json:"max_section_b" yaml:"max_section_b"`
	MaxSBA           float64             `json:"max_sba" yaml:"max_sba"`
	SBA              SBAConfig           `json:"sba" yaml:"sba"`
	ExamWeight       float64             `json:"exam_weight" yaml:"exam_weight"`
	Thresholds       []GradeThreshold    `json:"thresholds" yaml:"thresholds"`
	FailGrade        string              `json:"fail_grade" yaml:"fail_grade"`
	Categories       []CategoryBand      `json:"categories" yaml:"categories"`
	Normalization    NormalizationConfig `json:"normalization" yaml:"normalization"`
	BestN            int                 `json:"best_n" yaml:"best_n"`
	CoreSubjects     []Subject           `json:"core_subjects,omitempty" yaml:"core_subjects,omitempty"`
	UseTDistribution bool                `json:"use_t_distribution" yaml:"use_t_distribution"`
}

// DefaultThresholds returns the nine-point A1..F9 table. F9 is the fail grade
// and has no row of its own.
func DefaultThresholds() []GradeThreshold {
	return []GradeThreshold{
		{Grade: "A1", ZScore: 1.645, Percent: 80},
		{Grade: "B2", ZScore: 1.036, Percent: 70},
		{Grade: "B3", ZScore: 0.524, Percent: 65},
		{Grade: "C4", ZScore: 0, Percent: 60},
		{Grade: "C5", ZScore: -0.524, Percent: 55},
		{Grade: "C6", ZScore: -1.036, Percent: 50},
		{Grade: "D7", ZScore: -1.645, Percent: 45},
		{Grade: "E8", ZScore: -2.326, Percent: 40},
	}
}

// DefaultCategories returns the standard aggregate bands for six subjects.
func DefaultCategories() []CategoryBand {
	return []CategoryBand{
		{Label: "Distinction", Min: 6, Max: 10},
		{Label: "Credit", Min: 11, Max: 24},
		{Label: "Pass", Min: 25, Max: 36},
		{Label: "Fail", Min: 37, Max: 54},
	}
}

// DefaultConfiguration returns a validated configuration with z-score grading,
// a 30/70 SBA/exam split and six-subject aggregates.
func DefaultConfiguration() Configuration {
	return Configuration{
		MaxSectionA:      defaultMaxSectionA,
		MaxSectionB:      defaultMaxSectionB,
		MaxSBA:           defaultMaxSBA,
		SBA:              SBAConfig{Enabled: true, Weight: defaultSBAWeight},
		ExamWeight:       defaultExamWeight,
		Thresholds:       DefaultThresholds(),
		FailGrade:        "F9",
		Categories:       DefaultCategories(),
		BestN:            DefaultBestN,
		UseTDistribution: true,
	}
}

// Validate checks the invariants the engine relies on. All violations are
// reported together, each wrapped with ErrInvalidConfig.
func (c Configuration) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.MaxSectionA < 0 || c.MaxSectionB < 0 || c.MaxSectionA+c.MaxSectionB <= 0 {
		add("section maxima must be non-negative with a positive total (got %v + %v)", c.MaxSectionA, c.MaxSectionB)
	}
	if c.BestN < 1 {
		add("best_n must be positive (got %d)", c.BestN)
	}
	if c.SBA.Enabled {
		if c.MaxSBA <= 0 {
			add("max_sba must be positive when sba is enabled (got %v)", c.MaxSBA)
		}
		if c.SBA.Weight < 0 || c.ExamWeight < 0 {
			add("weights must be non-negative (sba %v, exam %v)", c.SBA.Weight, c.ExamWeight)
		}
		if math.Abs(c.SBA.Weight+c.ExamWeight-weightTotal) > weightTolerance {
			add("sba and exam weights must sum to %d (got %v)", weightTotal, c.SBA.Weight+c.ExamWeight)
		}
	}
	errs = append(errs, validateThresholds(c.Thresholds, c.FailGrade)...)
	errs = append(errs, validateCategories(c.Categories)...)
	if c.Normalization.Enabled {
		if c.Normalization.Subject == "" {
			add("normalization subject must be set when normalization is enabled")
		}
		if c.Normalization.MaxScore <= 0 {
			add("normalization max_score must be positive (got %v)", c.Normalization.MaxScore)
		}
	}
	return errors.Join(errs...)
}

func validateThresholds(thresholds []GradeThreshold, fail string) []error {
	var errs []error
	if len(thresholds) == 0 {
		return []error{fmt.Errorf("%w: at least one grade threshold is required", ErrInvalidConfig)}
	}
	if fail == "" {
		errs = append(errs, fmt.Errorf("%w: fail_grade must be set", ErrInvalidConfig))
	}
	seen := make(map[string]struct{}, len(thresholds))
	for i, t := range thresholds {
		if t.Grade == "" {
			errs = append(errs, fmt.Errorf("%w: threshold %d has no grade label", ErrInvalidConfig, i))
		}
		if _, dup := seen[t.Grade]; dup || t.Grade == fail {
			errs = append(errs, fmt.Errorf("%w: grade %q is defined more than once", ErrInvalidConfig, t.Grade))
		}
		seen[t.Grade] = struct{}{}
		if i == 0 {
			continue
		}
		prev := thresholds[i-1]
		if t.ZScore >= prev.ZScore {
			errs = append(errs, fmt.Errorf("%w: z-score cut of %s (%v) must be below %s (%v)",
				ErrInvalidConfig, t.Grade, t.ZScore, prev.Grade, prev.ZScore))
		}
		if t.Percent >= prev.Percent {
			errs = append(errs, fmt.Errorf("%w: percent cut of %s (%v) must be below %s (%v)",
				ErrInvalidConfig, t.Grade, t.Percent, prev.Grade, prev.Percent))
		}
	}
	return errs
}

func validateCategories(bands []CategoryBand) []error {
	var errs []error
	for _, b := range bands {
		if b.Label == "" {
			errs = append(errs, fmt.Errorf("%w: category band [%d,%d] has no label", ErrInvalidConfig, b.Min, b.Max))
		}
		if b.Min > b.Max {
			errs = append(errs, fmt.Errorf("%w: category %q has min %d above max %d", ErrInvalidConfig, b.Label, b.Min, b.Max))
		}
	}
	sorted := append([]CategoryBand(nil), bands...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Min <= sorted[i-1].Max {
			errs = append(errs, fmt.Errorf("%w: categories %q and %q overlap",
				ErrInvalidConfig, sorted[i-1].Label, sorted[i].Label))
		}
	}
	return errs
}

// GradeValue returns the numeric rank of grade (1 = best) or 0 when the grade
// is not part of the configuration.
func (c Configuration) GradeValue(grade string) int {
	for i, t := range c.Thresholds {
		if t.Grade == grade {
			return i + 1
		}
	}
	if grade == c.FailGrade {
		return len(c.Thresholds) + 1
	}
	return 0
}

// WorstGradeValue is the grade value of the fail grade.
func (c Configuration) WorstGradeValue() int { return len(c.Thresholds) + 1 }

func (c Configuration) bestN() int {
	if c.BestN < 1 {
		return DefaultBestN
	}
	return c.BestN
}
