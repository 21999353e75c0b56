package grading

const percentScale = 100

// examCeiling is the highest possible exam total (section A plus section B).
func (c Configuration) examCeiling() float64 { return c.MaxSectionA + c.MaxSectionB }

// blends reports whether the SBA component takes part in the composite.
func (c Configuration) blends() bool { return c.SBA.Enabled && !c.SBA.Locked }

// ExamTotal returns sectionA + sectionB, rescaled when the subject is the
// configured normalization target.
func ExamTotal(subject Subject, entry RawScoreEntry, cfg Configuration) float64 {
	total := entry.SectionA + entry.SectionB
	n := cfg.Normalization
	if n.Enabled && n.Subject == subject && n.MaxScore > 0 {
		total = total / n.MaxScore * cfg.examCeiling()
	}
	return total
}

// CompositeScore blends the exam total with the SBA score. Without an active
// SBA component the exam total passes through unchanged.
func CompositeScore(subject Subject, entry RawScoreEntry, cfg Configuration) float64 {
	exam := ExamTotal(subject, entry, cfg)
	if !cfg.blends() {
		return exam
	}
	var examPart, sbaPart float64
	if ceiling := cfg.examCeiling(); ceiling > 0 {
		examPart = exam / ceiling * cfg.ExamWeight
	}
	if cfg.MaxSBA > 0 {
		sbaPart = entry.SBA / cfg.MaxSBA * cfg.SBA.Weight
	}
	return examPart + sbaPart
}

// Standardize returns the z-score of score within stats. A zero spread
// yields 0.
func Standardize(score float64, stats SubjectPopulationStats) float64 {
	if stats.StdDev == 0 {
		return 0
	}
	return (score - stats.Mean) / stats.StdDev
}

// cutSelector picks the cut point a threshold walk compares against.
type cutSelector func(GradeThreshold) float64

func zScoreCut(t GradeThreshold) float64  { return t.ZScore }
func percentCut(t GradeThreshold) float64 { return t.Percent }

// gradeFor walks thresholds best-first and returns the first grade whose cut
// metric meets or exceeds, together with its 1-based value. Anything below
// the last cut earns the fail grade.
func gradeFor(metric float64, thresholds []GradeThreshold, fail string, cut cutSelector) (string, int) {
	for i, t := range thresholds {
		if metric >= cut(t) {
			return t.Grade, i + 1
		}
	}
	return fail, len(thresholds) + 1
}

// Percent expresses a composite score as a percentage. A blended composite
// already is one; an unblended exam total is scaled by the exam ceiling.
func (c Configuration) Percent(composite float64) float64 {
	if c.blends() {
		return composite
	}
	ceiling := c.examCeiling()
	if ceiling <= 0 {
		return 0
	}
	return composite / ceiling * percentScale
}

// Grade assigns the letter grade for a composite score and its z-score using
// the configured grading mode.
func (c Configuration) Grade(composite, z float64) (string, int) {
	if c.UseTDistribution {
		return gradeFor(z, c.Thresholds, c.FailGrade, zScoreCut)
	}
	return gradeFor(c.Percent(composite), c.Thresholds, c.FailGrade, percentCut)
}

// ComputeSubjectResult grades one subject entry against its cohort statistics.
func ComputeSubjectResult(subject Subject, entry RawScoreEntry, stats SubjectPopulationStats, cfg Configuration) ComputedSubjectResult {
	composite := CompositeScore(subject, entry, cfg)
	z := Standardize(composite, stats)
	grade, value := cfg.Grade(composite, z)
	return ComputedSubjectResult{
		Subject:             subject,
		SectionA:            entry.SectionA,
		SectionB:            entry.SectionB,
		SBA:                 entry.SBA,
		ExamTotal:           ExamTotal(subject, entry, cfg),
		FinalCompositeScore: composite,
		ZScore:              z,
		Grade:               grade,
		GradeValue:          value,
		Remark:              entry.Remark,
	}
}
