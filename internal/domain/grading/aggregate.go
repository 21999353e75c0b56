package grading

import (
	"math"
	"sort"
)

// totalScale fixes the precision of TotalScore so that equal marks summed in
// a different subject order compare equal when ranking.
const totalScale = 1e9

// AggregateResult is the best-N selection of a student and its category.
type AggregateResult struct {
	BestSix   []ComputedSubjectResult
	Aggregate int
	Category  string
}

// betterResult orders subject results best first: lower grade value, then the
// higher composite, then subject name so the order never depends on input.
func betterResult(a, b ComputedSubjectResult) bool {
	if a.GradeValue != b.GradeValue {
		return a.GradeValue < b.GradeValue
	}
	if a.FinalCompositeScore != b.FinalCompositeScore {
		return a.FinalCompositeScore > b.FinalCompositeScore
	}
	return a.Subject < b.Subject
}

// ComputeAggregate selects the best BestN results and sums their grade values.
// A student with fewer results is aggregated over what exists; no subject is
// invented to fill the gap. Configured core subjects the student sat are
// selected ahead of electives.
func ComputeAggregate(results []ComputedSubjectResult, cfg Configuration) AggregateResult {
	ordered := append([]ComputedSubjectResult(nil), results...)
	sort.SliceStable(ordered, func(i, j int) bool { return betterResult(ordered[i], ordered[j]) })

	n := cfg.bestN()
	best := selectBest(ordered, cfg.CoreSubjects, n)

	aggregate := 0
	for _, r := range best {
		aggregate += r.GradeValue
	}
	return AggregateResult{
		BestSix:   best,
		Aggregate: aggregate,
		Category:  Categorize(aggregate, cfg.Categories),
	}
}

func selectBest(ordered []ComputedSubjectResult, core []Subject, n int) []ComputedSubjectResult {
	if len(core) == 0 {
		if len(ordered) > n {
			ordered = ordered[:n]
		}
		return ordered
	}
	isCore := make(map[Subject]bool, len(core))
	for _, s := range core {
		isCore[s] = true
	}
	best := make([]ComputedSubjectResult, 0, n)
	for _, r := range ordered {
		if len(best) == n {
			break
		}
		if isCore[r.Subject] {
			best = append(best, r)
		}
	}
	for _, r := range ordered {
		if len(best) == n {
			break
		}
		if !isCore[r.Subject] {
			best = append(best, r)
		}
	}
	sort.SliceStable(best, func(i, j int) bool { return betterResult(best[i], best[j]) })
	return best
}

// Categorize returns the label of the first band containing aggregate, or
// Uncategorized when no band does.
func Categorize(aggregate int, bands []CategoryBand) string {
	for _, b := range bands {
		if b.Contains(aggregate) {
			return b.Label
		}
	}
	return Uncategorized
}

// ProcessStudent grades every recorded subject of a student against idx and
// derives the total score, aggregate and category. Rank is left at zero.
func ProcessStudent(student StudentScores, idx StatsIndex, cfg Configuration) ProcessedStudent {
	subjects := make([]Subject, 0, len(student.Scores))
	for s := range student.Scores {
		subjects = append(subjects, s)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i] < subjects[j] })

	results := make([]ComputedSubjectResult, 0, len(subjects))
	var sum float64
	for _, subject := range subjects {
		entry := student.Scores[subject]
		stats := idx.Lookup(subject, CompositeScore(subject, entry, cfg))
		r := ComputeSubjectResult(subject, entry, stats, cfg)
		results = append(results, r)
		sum += r.FinalCompositeScore
	}

	var total float64
	if len(results) > 0 {
		total = math.Round(sum/float64(len(results))*totalScale) / totalScale
	}

	agg := ComputeAggregate(results, cfg)
	best := make([]Subject, len(agg.BestSix))
	for i, r := range agg.BestSix {
		best[i] = r.Subject
	}
	return ProcessedStudent{
		StudentID:  student.StudentID,
		Name:       student.Name,
		Subjects:   results,
		TotalScore: total,
		BestSix:    best,
		Aggregate:  agg.Aggregate,
		Category:   agg.Category,
	}
}
