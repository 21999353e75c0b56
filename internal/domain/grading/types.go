// Package grading implements norm-referenced grading of a cohort: population
// statistics per subject, SBA/exam blending, z-score standardization, letter
// grades, best-N aggregates, categorization and competition ranking.
//
// Every function in this package is pure. Results are derived from the raw
// inputs on every call and never cached.
package grading

// Uncategorized is the category assigned when an aggregate falls outside every
// configured band.
const Uncategorized = "Uncategorized"

// RawScoreEntry is one student's raw input for one subject in one cycle.
type RawScoreEntry struct {
	SectionA float64 `json:"section_a" yaml:"section_a"` // objective paper
	SectionB float64 `json:"section_b" yaml:"section_b"` // theory paper
	SBA      float64 `json:"sba" yaml:"sba"`             // continuous assessment, pre-aggregated
	Remark   string  `json:"remark,omitempty" yaml:"remark,omitempty"`
}

// StudentScores holds every recorded entry of a student. A subject with no
// entry is treated as not attempted.
type StudentScores struct {
	StudentID string                    `json:"student_id" yaml:"student_id"`
	Name      string                    `json:"name" yaml:"name"`
	Scores    map[Subject]RawScoreEntry `json:"scores" yaml:"scores"`
}

// Cohort is the set of students graded together.
type Cohort []StudentScores

// SubjectPopulationStats is the normalization frame of one subject.
type SubjectPopulationStats struct {
	Subject        Subject `json:"subject"`
	Count          int     `json:"count"`
	Mean           float64 `json:"mean"`
	StdDev         float64 `json:"std_dev"`
	SectionAMean   float64 `json:"section_a_mean"`
	SectionAStdDev float64 `json:"section_a_std_dev"`
	SectionBMean   float64 `json:"section_b_mean"`
	SectionBStdDev float64 `json:"section_b_std_dev"`
}

// ComputedSubjectResult is the graded outcome of one subject for one student.
type ComputedSubjectResult struct {
	Subject             Subject `json:"subject"`
	SectionA            float64 `json:"section_a"`
	SectionB            float64 `json:"section_b"`
	SBA                 float64 `json:"sba"`
	ExamTotal           float64 `json:"exam_total"`
	FinalCompositeScore float64 `json:"final_composite_score"`
	ZScore              float64 `json:"z_score"`
	Grade               string  `json:"grade"`
	GradeValue          int     `json:"grade_value"`
	Remark              string  `json:"remark,omitempty"`
}

// ProcessedStudent is the fully computed record of a student.
type ProcessedStudent struct {
	StudentID  string                  `json:"student_id"`
	Name       string                  `json:"name"`
	Subjects   []ComputedSubjectResult `json:"subjects"`
	TotalScore float64                 `json:"total_score"`
	BestSix    []Subject               `json:"best_six"`
	Aggregate  int                     `json:"aggregate"`
	Category   string                  `json:"category"`
	Rank       int                     `json:"rank"`
}

// Report is the output of a full engine run.
type Report struct {
	Statistics []SubjectPopulationStats `json:"statistics"`
	Students   []ProcessedStudent       `json:"students"`
}

// Student returns the processed record for id.
func (r *Report) Student(id string) (ProcessedStudent, bool) {
	for _, s := range r.Students {
		if s.StudentID == id {
			return s, true
		}
	}
	return ProcessedStudent{}, false
}
