package grading

import "errors"

// Sentinel error kinds for the grading engine.
var (
	ErrInvalidConfig    = errors.New("invalid grading configuration")
	ErrInvalidSubject   = errors.New("invalid subject")
	ErrInvalidSortOrder = errors.New("invalid sort order")
)
