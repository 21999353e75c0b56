package grading

import (
	"fmt"
	"sort"
	"strings"
)

// SortOrder selects the order in which ranked students are returned. It never
// changes the rank itself.
type SortOrder string

// Supported sort orders.
const (
	SortByRank  SortOrder = "rank"
	SortByName  SortOrder = "name"
	SortByID    SortOrder = "id"
	SortByScore SortOrder = "score"
)

// ParseSortOrder validates a user supplied order. An empty string selects
// SortByRank.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return SortByRank, nil
	case SortByRank, SortByName, SortByID, SortByScore:
		return o, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSortOrder, s)
	}
}

// graded reports whether the student has at least one subject result.
func graded(s *ProcessedStudent) bool { return len(s.Subjects) > 0 }

// rankLess orders students for ranking: graded students first, then lower
// aggregate, then higher total score.
func rankLess(a, b *ProcessedStudent) bool {
	if graded(a) != graded(b) {
		return graded(a)
	}
	if a.Aggregate != b.Aggregate {
		return a.Aggregate < b.Aggregate
	}
	return a.TotalScore > b.TotalScore
}

func sameRank(a, b *ProcessedStudent) bool {
	return graded(a) == graded(b) && a.Aggregate == b.Aggregate && a.TotalScore == b.TotalScore
}

// RankCohort assigns standard competition ranks ("1224") and returns the
// students in the requested order. The input slice is not modified.
func RankCohort(students []ProcessedStudent, order SortOrder) []ProcessedStudent {
	out := append([]ProcessedStudent(nil), students...)
	sort.SliceStable(out, func(i, j int) bool {
		if rankLess(&out[i], &out[j]) {
			return true
		}
		if rankLess(&out[j], &out[i]) {
			return false
		}
		return out[i].StudentID < out[j].StudentID
	})

	for i := range out {
		if i > 0 && sameRank(&out[i], &out[i-1]) {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}

	Reorder(out, order)
	return out
}

// Reorder sorts already ranked students in place for display.
func Reorder(students []ProcessedStudent, order SortOrder) {
	var less func(a, b *ProcessedStudent) bool
	switch order {
	case SortByName:
		less = func(a, b *ProcessedStudent) bool { return a.Name < b.Name }
	case SortByID:
		less = func(a, b *ProcessedStudent) bool { return a.StudentID < b.StudentID }
	case SortByScore:
		less = func(a, b *ProcessedStudent) bool { return a.TotalScore > b.TotalScore }
	default:
		less = func(a, b *ProcessedStudent) bool { return a.Rank < b.Rank }
	}
	sort.SliceStable(students, func(i, j int) bool {
		a, b := &students[i], &students[j]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.StudentID < b.StudentID
	})
}
