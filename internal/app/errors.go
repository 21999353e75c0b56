package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrBackpressure      = errors.New("submission queue is full")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrNotFound          = errors.New("not found")
)
