// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/nrtgrade/internal/domain/grading"
)

// Submission is one raw score entry for one student in one subject of an
// assessment cycle. A later submission for the same key replaces the earlier.
type Submission struct {
	ID          string                // unique id for idempotency
	Cycle       string                // assessment cycle, e.g. "2024-T1"
	StudentID   string
	StudentName string                // optional; the latest non-empty name wins
	Subject     grading.Subject       // canonical subject name
	Entry       grading.RawScoreEntry // section A, section B, SBA and remark
	ReceivedAt  time.Time
}

// Key identifies the score sheet cell a submission writes.
type Key struct {
	Cycle     string
	StudentID string
	Subject   grading.Subject
}

// Key returns the sheet cell this submission targets.
func (s Submission) Key() Key {
	return Key{Cycle: s.Cycle, StudentID: s.StudentID, Subject: s.Subject}
}
