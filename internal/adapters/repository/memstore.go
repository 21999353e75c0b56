package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/nrtgrade/internal/domain/grading"
	"github.com/okian/nrtgrade/internal/domain/model"
	"github.com/okian/nrtgrade/pkg/metrics"
)

const defaultMetricsUpdateInterval = 5 * time.Second

type row struct {
	name   string
	scores map[grading.Subject]grading.RawScoreEntry
}

// sheet is one cycle: student id -> row.
type sheet map[string]*row

// MemoryStore is an in-memory Store guarded by a single RWMutex.
type MemoryStore struct {
	mu     sync.RWMutex
	cycles map[string]sheet

	metricsUpdateInterval time.Duration
	stopChan              chan struct{}
	stopOnce              sync.Once
	wg                    sync.WaitGroup
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty sheet and starts its metrics updater,
// which runs until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		cycles:                make(map[string]sheet),
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func validate(sub model.Submission) error { //nolint:gocritic // hugeParam: submissions travel by value
	switch {
	case strings.TrimSpace(sub.Cycle) == "":
		return fmt.Errorf("%w: cycle is required", ErrInvalidEntry)
	case strings.TrimSpace(sub.StudentID) == "":
		return fmt.Errorf("%w: student_id is required", ErrInvalidEntry)
	case sub.Subject == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidEntry)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"section_a", sub.Entry.SectionA},
		{"section_b", sub.Entry.SectionB},
		{"sba", sub.Entry.SBA},
	} {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidEntry, f.name)
		}
	}
	return nil
}

// Put implements Store.Put.
func (s *MemoryStore) Put(_ context.Context, sub model.Submission) (bool, error) { //nolint:gocritic // hugeParam
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := validate(sub); err != nil {
		metrics.RecordErrorByComponent("repository", "invalid_entry")
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.cycles[sub.Cycle]
	if !ok {
		sh = make(sheet)
		s.cycles[sub.Cycle] = sh
	}
	r, ok := sh[sub.StudentID]
	if !ok {
		r = &row{scores: make(map[grading.Subject]grading.RawScoreEntry)}
		sh[sub.StudentID] = r
	}
	if sub.StudentName != "" {
		r.name = sub.StudentName
	}
	_, replaced := r.scores[sub.Subject]
	r.scores[sub.Subject] = sub.Entry
	return replaced, nil
}

// Remove implements Store.Remove. Rows and cycles left empty are dropped.
func (s *MemoryStore) Remove(_ context.Context, cycle, studentID string, subject grading.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.cycles[cycle]
	if !ok {
		return fmt.Errorf("%w: cycle %q", ErrNotFound, cycle)
	}
	r, ok := sh[studentID]
	if !ok {
		return fmt.Errorf("%w: student %q", ErrNotFound, studentID)
	}
	if _, ok := r.scores[subject]; !ok {
		return fmt.Errorf("%w: %s has no %s entry", ErrNotFound, studentID, subject)
	}
	delete(r.scores, subject)
	if len(r.scores) == 0 {
		delete(sh, studentID)
	}
	if len(sh) == 0 {
		delete(s.cycles, cycle)
	}
	return nil
}

// Cohort implements Store.Cohort.
func (s *MemoryStore) Cohort(_ context.Context, cycle string) (grading.Cohort, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, ok := s.cycles[cycle]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return nil, fmt.Errorf("%w: cycle %q", ErrNotFound, cycle)
	}

	ids := make([]string, 0, len(sh))
	for id := range sh {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cohort := make(grading.Cohort, len(ids))
	for i, id := range ids {
		r := sh[id]
		scores := make(map[grading.Subject]grading.RawScoreEntry, len(r.scores))
		for subj, e := range r.scores {
			scores[subj] = e
		}
		cohort[i] = grading.StudentScores{StudentID: id, Name: r.name, Scores: scores}
	}
	return cohort, nil
}

// Cycles implements Store.Cycles.
func (s *MemoryStore) Cycles(_ context.Context) []CycleSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CycleSummary, 0, len(s.cycles))
	for name, sh := range s.cycles {
		out = append(out, CycleSummary{Cycle: name, Students: len(sh), Entries: sh.entries()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cycle < out[j].Cycle })
	return out
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context, cycle string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cycle != "" {
		return s.cycles[cycle].entries()
	}
	total := 0
	for _, sh := range s.cycles {
		total += sh.entries()
	}
	return total
}

func (sh sheet) entries() int {
	n := 0
	for _, r := range sh {
		n += len(r.scores)
	}
	return n
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics(ctx)
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics(ctx context.Context) {
	metrics.UpdateSheetEntries(s.Count(ctx, ""))
	metrics.UpdateSheetCycles(len(s.Cycles(ctx)))
}
