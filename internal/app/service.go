// Package service wires the score sheet, the submission pipeline and the
// grading engine together behind the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/nrtgrade/internal/adapters/mq/queue"
	"github.com/okian/nrtgrade/internal/adapters/mq/worker"
	"github.com/okian/nrtgrade/internal/adapters/repository"
	"github.com/okian/nrtgrade/internal/domain/dedupe"
	"github.com/okian/nrtgrade/internal/domain/grading"
	"github.com/okian/nrtgrade/internal/domain/model"
	"github.com/okian/nrtgrade/pkg/logger"
	"github.com/okian/nrtgrade/pkg/metrics"
)

const (
	defaultQueueSize  = 10_000
	defaultDedupeSize = 100_000
	shutdownTimeout   = 10 * time.Second
)

// Receipt acknowledges a submission.
type Receipt struct {
	ID        string `json:"submission_id"`
	Duplicate bool   `json:"duplicate"`
}

// Service implements the API dependencies for the grading system.
type Service struct {
	mu sync.RWMutex

	store   *repository.MemoryStore
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool
	engine  *grading.Engine
	cancel  context.CancelFunc

	workerCount int
	queueSize   int
	dedupeSize  int
	parallelism int
	gradingCfg  grading.Configuration

	started bool
	logger  logger.Logger
}

// New constructs a Service. Nothing runs until Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		parallelism: runtime.NumCPU(),
		gradingCfg:  grading.DefaultConfiguration(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the grading rules and starts the submission pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	engine, err := grading.NewEngine(s.gradingCfg, grading.WithParallelism(s.parallelism))
	if err != nil {
		return fmt.Errorf("grading engine: %w", err)
	}

	// The pipeline outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.engine = engine
	s.cancel = cancel
	s.store = repository.NewMemoryStore(runCtx)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store, worker.WithPoolLogger(s.logger))
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "grading service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("parallelism", s.parallelism),
	)
	return nil
}

// Stop drains queued submissions and shuts the pipeline down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	_ = s.store.Close()
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "grading service stopped")
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Submit validates a submission against the grading rules and queues it.
// A submission without an ID is given one. A repeated ID is acknowledged as a
// duplicate and not applied again.
func (s *Service) Submit(ctx context.Context, sub model.Submission) (Receipt, error) { //nolint:gocritic // hugeParam
	if !s.running() {
		return Receipt{}, ErrNotStarted
	}
	if err := s.check(&sub); err != nil {
		metrics.RecordSubmissionRejected("invalid")
		return Receipt{}, err
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.ReceivedAt.IsZero() {
		sub.ReceivedAt = time.Now().UTC()
	}

	if s.deduper.SeenAndRecord(ctx, sub.ID) {
		metrics.RecordSubmissionDuplicate()
		s.logger.Debug(ctx, "duplicate submission", logger.String("submission_id", sub.ID))
		return Receipt{ID: sub.ID, Duplicate: true}, nil
	}

	if err := s.queue.Enqueue(ctx, sub); err != nil {
		// Let the client retry the same id.
		s.deduper.Unrecord(ctx, sub.ID)
		if errors.Is(err, queue.ErrFull) {
			metrics.RecordSubmissionRejected("backpressure")
			return Receipt{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		metrics.RecordSubmissionRejected("queue")
		return Receipt{}, err
	}

	metrics.RecordSubmissionAccepted()
	return Receipt{ID: sub.ID}, nil
}

// check canonicalizes the subject and holds the marks to the configured maxima.
func (s *Service) check(sub *model.Submission) error {
	sub.Cycle = strings.TrimSpace(sub.Cycle)
	sub.StudentID = strings.TrimSpace(sub.StudentID)
	if sub.Cycle == "" || sub.StudentID == "" {
		return fmt.Errorf("%w: cycle and student_id are required", ErrInvalidSubmission)
	}
	subject, err := grading.ParseSubject(sub.Subject.String())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	sub.Subject = subject

	cfg := s.gradingCfg
	e := sub.Entry
	if e.SectionA < 0 || e.SectionB < 0 || e.SBA < 0 {
		return fmt.Errorf("%w: marks must not be negative", ErrInvalidSubmission)
	}
	if cfg.Normalization.Enabled && cfg.Normalization.Subject == subject {
		if total := e.SectionA + e.SectionB; total > cfg.Normalization.MaxScore {
			return fmt.Errorf("%w: %s is marked out of %g, got %g",
				ErrInvalidSubmission, subject, cfg.Normalization.MaxScore, total)
		}
	} else {
		if e.SectionA > cfg.MaxSectionA {
			return fmt.Errorf("%w: section_a %g exceeds %g", ErrInvalidSubmission, e.SectionA, cfg.MaxSectionA)
		}
		if e.SectionB > cfg.MaxSectionB {
			return fmt.Errorf("%w: section_b %g exceeds %g", ErrInvalidSubmission, e.SectionB, cfg.MaxSectionB)
		}
	}
	if e.SBA > cfg.MaxSBA {
		return fmt.Errorf("%w: sba %g exceeds %g", ErrInvalidSubmission, e.SBA, cfg.MaxSBA)
	}
	return nil
}

// RemoveEntry deletes one raw entry from the sheet.
func (s *Service) RemoveEntry(ctx context.Context, cycle, studentID string, subject grading.Subject) error {
	if !s.running() {
		return ErrNotStarted
	}
	if err := s.store.Remove(ctx, cycle, studentID, subject); err != nil {
		return translate(err)
	}
	s.logger.Info(ctx, "score entry removed",
		logger.String("cycle", cycle),
		logger.String("student_id", studentID),
		logger.String("subject", subject.String()),
	)
	return nil
}

func translate(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func (s *Service) cohort(ctx context.Context, cycle string) (grading.Cohort, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	c, err := s.store.Cohort(ctx, cycle)
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// Results grades the cycle's current sheet and orders the students for display.
func (s *Service) Results(ctx context.Context, cycle string, order grading.SortOrder) (*grading.Report, error) {
	cohort, err := s.cohort(ctx, cycle)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report, err := s.engine.Process(ctx, cohort)
	if err != nil {
		metrics.RecordGradingError()
		s.logger.Error(ctx, "grading run failed", logger.String("cycle", cycle), logger.Error(err))
		return nil, err
	}
	elapsed := time.Since(start)
	s.observe(report, elapsed)
	s.logger.Debug(ctx, "cycle graded",
		logger.String("cycle", cycle),
		logger.Int("students", len(report.Students)),
		logger.Duration("elapsed", elapsed),
	)

	grading.Reorder(report.Students, order)
	return report, nil
}

func (s *Service) observe(report *grading.Report, elapsed time.Duration) {
	metrics.RecordGradingRun(float64(elapsed.Microseconds())/1000, len(report.Students))

	zero := 0
	for _, st := range report.Statistics {
		if st.StdDev == 0 {
			zero++
		}
	}
	metrics.UpdateZeroVarianceSubjects(zero)

	uncategorized := 0
	for _, p := range report.Students {
		if p.Category == grading.Uncategorized {
			uncategorized++
		}
		for _, r := range p.Subjects {
			metrics.RecordGradeAwarded(r.Grade)
		}
	}
	metrics.UpdateUncategorizedStudents(uncategorized)
}

// StudentResult returns one student's processed record. The rank is relative
// to the whole cycle.
func (s *Service) StudentResult(ctx context.Context, cycle, studentID string) (grading.ProcessedStudent, error) {
	report, err := s.Results(ctx, cycle, grading.SortByRank)
	if err != nil {
		return grading.ProcessedStudent{}, err
	}
	p, ok := report.Student(studentID)
	if !ok {
		return grading.ProcessedStudent{}, fmt.Errorf("%w: student %q in cycle %q", ErrNotFound, studentID, cycle)
	}
	return p, nil
}

// Statistics returns the per-subject population statistics of a cycle.
func (s *Service) Statistics(ctx context.Context, cycle string) ([]grading.SubjectPopulationStats, error) {
	cohort, err := s.cohort(ctx, cycle)
	if err != nil {
		return nil, err
	}
	return s.engine.Statistics(ctx, cohort)
}

// GradingConfig returns the rules in force.
func (s *Service) GradingConfig() grading.Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.engine != nil {
		return s.engine.Configuration()
	}
	return s.gradingCfg
}

// Cycles lists the cycles held in the sheet.
func (s *Service) Cycles(ctx context.Context) []repository.CycleSummary {
	if !s.running() {
		return nil
	}
	return s.store.Cycles(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"parallelism": s.parallelism,
	}

	if s.started {
		entries := s.store.Count(ctx, "")
		cycles := len(s.store.Cycles(ctx))
		stats["queueLength"] = s.queue.Len(ctx)
		stats["entries"] = entries
		stats["cycles"] = cycles
		stats["applied"] = s.pool.Applied()
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateSheetEntries(entries)
		metrics.UpdateSheetCycles(cycles)
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}
