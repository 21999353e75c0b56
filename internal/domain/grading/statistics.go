package grading

import (
	"math"
	"sort"
)

// sample accumulates the raw values of one subject across the cohort.
type sample struct {
	composite []float64
	sectionA  []float64
	sectionB  []float64
}

// collect groups every recorded entry of the cohort by subject. Students with
// no entry for a subject contribute nothing to it.
func collect(cohort Cohort, cfg Configuration) map[Subject]*sample {
	bySubject := make(map[Subject]*sample)
	for _, student := range cohort {
		for subject, entry := range student.Scores {
			s, ok := bySubject[subject]
			if !ok {
				s = &sample{}
				bySubject[subject] = s
			}
			s.composite = append(s.composite, CompositeScore(subject, entry, cfg))
			s.sectionA = append(s.sectionA, entry.SectionA)
			s.sectionB = append(s.sectionB, entry.SectionB)
		}
	}
	return bySubject
}

// BuildStatistics computes the population statistics of every subject that at
// least one student attempted, ordered by subject name.
func BuildStatistics(cohort Cohort, cfg Configuration) []SubjectPopulationStats {
	bySubject := collect(cohort, cfg)
	out := make([]SubjectPopulationStats, 0, len(bySubject))
	for _, subject := range sortedSubjects(bySubject) {
		out = append(out, subjectStats(subject, bySubject[subject]))
	}
	return out
}

func subjectStats(subject Subject, s *sample) SubjectPopulationStats {
	mean, sd := MeanStdDev(s.composite)
	aMean, aSD := MeanStdDev(s.sectionA)
	bMean, bSD := MeanStdDev(s.sectionB)
	return SubjectPopulationStats{
		Subject:        subject,
		Count:          len(s.composite),
		Mean:           mean,
		StdDev:         sd,
		SectionAMean:   aMean,
		SectionAStdDev: aSD,
		SectionBMean:   bMean,
		SectionBStdDev: bSD,
	}
}

func sortedSubjects(m map[Subject]*sample) []Subject {
	subjects := make([]Subject, 0, len(m))
	for s := range m {
		subjects = append(subjects, s)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i] < subjects[j] })
	return subjects
}

// MeanStdDev returns the arithmetic mean and the population standard
// deviation (divide by n). An empty slice yields (0, 0).
func MeanStdDev(values []float64) (mean, stddev float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)
	if n == 1 {
		return mean, 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return mean, math.Sqrt(sumSq / float64(n))
}

// StatsIndex maps subjects to their statistics for lookup during grading.
type StatsIndex map[Subject]SubjectPopulationStats

// Index builds a StatsIndex from a statistics slice.
func Index(stats []SubjectPopulationStats) StatsIndex {
	idx := make(StatsIndex, len(stats))
	for _, s := range stats {
		idx[s.Subject] = s
	}
	return idx
}

// Lookup returns the statistics of subject. When nobody in the cohort sat the
// subject a degenerate frame centred on score with zero spread is returned,
// which standardizes score to a z-score of 0.
func (idx StatsIndex) Lookup(subject Subject, score float64) SubjectPopulationStats {
	if s, ok := idx[subject]; ok {
		return s
	}
	return SubjectPopulationStats{Subject: subject, Count: 1, Mean: score}
}
