package repository

import "errors"

// Sentinel kinds for score sheet errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidEntry = errors.New("invalid score entry")
)
