package loadgen

import "time"

// Default run parameters.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultCycle        = "loadtest"
	DefaultStudents     = 1000
	DefaultSubjects     = 8
	DefaultTimeout      = 30 * time.Second
	DefaultSettle       = 2 * time.Minute
	DefaultPollInterval = 250 * time.Millisecond
)

// Submission retry constants.
const (
	maxSubmitAttempts = 20
	retryBackoff      = 10 * time.Millisecond
	workerChannelMult = 2
	maxReportedIssues = 20
	percentMultiplier = 100
)
