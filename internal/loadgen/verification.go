package loadgen

import (
	"errors"
	"fmt"

	"github.com/okian/nrtgrade/internal/domain/grading"
)

// ErrVerification wraps every ranking inconsistency Verify finds.
var ErrVerification = errors.New("ranking verification failed")

type issues struct {
	errs    []error
	dropped int
}

func (is *issues) addf(format string, args ...any) {
	if len(is.errs) >= maxReportedIssues {
		is.dropped++
		return
	}
	is.errs = append(is.errs, fmt.Errorf("%w: "+format, append([]any{ErrVerification}, args...)...))
}

func (is *issues) err() error {
	if is.dropped > 0 {
		is.errs = append(is.errs, fmt.Errorf("%w: %d further issues not shown", ErrVerification, is.dropped))
	}
	return errors.Join(is.errs...)
}

func graded(s *grading.ProcessedStudent) bool { return len(s.Subjects) > 0 }

// Verify checks a rank-ordered result list: the expected head count,
// standard competition ranks, aggregate ordering, aggregate range and
// category bands.
func Verify(students []grading.ProcessedStudent, rules grading.Configuration, wantStudents int) error {
	var is issues
	if len(students) < wantStudents {
		is.addf("expected at least %d students, got %d", wantStudents, len(students))
	}
	maxValue := len(rules.Thresholds) + 1

	for i := range students {
		cur := &students[i]
		checkStudent(&is, cur, rules, maxValue)
		if i == 0 {
			if cur.Rank != 1 {
				is.addf("first student %s has rank %d", cur.StudentID, cur.Rank)
			}
			continue
		}

		prev := &students[i-1]
		tied := graded(prev) == graded(cur) && prev.Aggregate == cur.Aggregate && prev.TotalScore == cur.TotalScore
		switch {
		case tied && cur.Rank != prev.Rank:
			is.addf("%s ties %s but is ranked %d, not %d", cur.StudentID, prev.StudentID, cur.Rank, prev.Rank)
		case !tied && cur.Rank != i+1:
			is.addf("%s at position %d has rank %d", cur.StudentID, i+1, cur.Rank)
		}

		switch {
		case graded(cur) && !graded(prev):
			is.addf("graded student %s ranked below ungraded %s", cur.StudentID, prev.StudentID)
		case graded(cur) && cur.Aggregate < prev.Aggregate:
			is.addf("%s (aggregate %d) ranked below %s (aggregate %d)", cur.StudentID, cur.Aggregate, prev.StudentID, prev.Aggregate)
		case graded(cur) && cur.Aggregate == prev.Aggregate && cur.TotalScore > prev.TotalScore:
			is.addf("%s outscores %s on an equal aggregate but ranks below", cur.StudentID, prev.StudentID)
		}
	}
	return is.err()
}

func checkStudent(is *issues, s *grading.ProcessedStudent, rules grading.Configuration, maxValue int) {
	k := len(s.BestSix)
	if k > rules.BestN {
		is.addf("%s counts %d subjects, best_n is %d", s.StudentID, k, rules.BestN)
	}
	if k > 0 && (s.Aggregate < k || s.Aggregate > k*maxValue) {
		is.addf("%s aggregate %d outside [%d, %d]", s.StudentID, s.Aggregate, k, k*maxValue)
	}
	if want := grading.Categorize(s.Aggregate, rules.Categories); graded(s) && s.Category != want {
		is.addf("%s with aggregate %d is %q, expected %q", s.StudentID, s.Aggregate, s.Category, want)
	}
}
