// Package loadgen drives a running grading service with a synthetic cohort
// and checks that the ranking it serves back is consistent.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Cycle        string        // Cycle the synthetic cohort is filed under
	Students     int           // Number of students to generate
	Subjects     int           // Subjects sat by every student
	Workers      int           // Number of concurrent submitters
	Seed         uint64        // Generator seed; equal seeds give equal cohorts
	Timeout      time.Duration // HTTP request timeout
	Settle       time.Duration // How long to wait for the sheet to fill
	PollInterval time.Duration // How often /cycles is polled while waiting
	OutputFile   string        // Optional JSON dump of the generated submissions
	Verbose      bool          // Log per-request failures
}

// Submission is the wire shape of POST /scores.
type Submission struct {
	SubmissionID string  `json:"submission_id"`
	Cycle        string  `json:"cycle"`
	StudentID    string  `json:"student_id"`
	StudentName  string  `json:"student_name,omitempty"`
	Subject      string  `json:"subject"`
	SectionA     float64 `json:"section_a"`
	SectionB     float64 `json:"section_b"`
	SBA          float64 `json:"sba"`
}

// Stats holds run statistics.
type Stats struct {
	Generated    int
	Submitted    int
	Accepted     int
	Duplicate    int
	Retried      int
	Failed       int
	Graded       int
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	SettleTime   time.Duration
	GradeLatency time.Duration
}
