// Package repository holds the score sheet: raw entries per assessment
// cycle, student and subject.
package repository

import (
	"context"

	"github.com/okian/nrtgrade/internal/domain/grading"
	"github.com/okian/nrtgrade/internal/domain/model"
)

// CycleSummary describes one assessment cycle held in the sheet.
type CycleSummary struct {
	Cycle    string `json:"cycle"`
	Students int    `json:"students"`
	Entries  int    `json:"entries"`
}

// Store provides read/write access to the score sheet.
type Store interface {
	// Put writes the submission's entry, replacing any earlier entry for the
	// same cycle, student and subject. Returns true when an entry was replaced.
	Put(ctx context.Context, s model.Submission) (bool, error)

	// Remove deletes one entry. Returns ErrNotFound if it does not exist.
	Remove(ctx context.Context, cycle, studentID string, subject grading.Subject) error

	// Cohort returns a deep copy of a cycle's entries ordered by student ID.
	// Returns ErrNotFound if the cycle is unknown.
	Cohort(ctx context.Context, cycle string) (grading.Cohort, error)

	// Cycles lists the cycles held, ordered by name.
	Cycles(ctx context.Context) []CycleSummary

	// Count returns the number of entries in cycle, or in every cycle when
	// cycle is empty.
	Count(ctx context.Context, cycle string) int
}
