package grading

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Engine runs the grading pipeline for a fixed configuration.
//
// Statistics are built for the whole cohort before any student is graded, and
// ranks are assigned once every student has an aggregate. Within each stage
// the work may be spread over several goroutines; the result is the same
// either way.
type Engine struct {
	cfg         Configuration
	parallelism int
	order       SortOrder
}

// NewEngine validates cfg and returns an engine bound to it.
func NewEngine(cfg Configuration, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:         cloneConfiguration(cfg),
		parallelism: 1,
		order:       SortByRank,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Configuration returns a copy of the engine's configuration.
func (e *Engine) Configuration() Configuration { return cloneConfiguration(e.cfg) }

// Statistics builds the population statistics of the cohort. A cancelled ctx
// stops the build with ctx.Err().
func (e *Engine) Statistics(ctx context.Context, cohort Cohort) ([]SubjectPopulationStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.parallelism < 2 {
		return BuildStatistics(cohort, e.cfg), nil
	}

	bySubject := collect(cohort, e.cfg)
	subjects := sortedSubjects(bySubject)
	out := make([]SubjectPopulationStats, len(subjects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, subject := range subjects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = subjectStats(subject, bySubject[subject])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Process grades and ranks the cohort.
func (e *Engine) Process(ctx context.Context, cohort Cohort) (*Report, error) {
	stats, err := e.Statistics(ctx, cohort)
	if err != nil {
		return nil, fmt.Errorf("build statistics: %w", err)
	}
	idx := Index(stats)

	students := make([]ProcessedStudent, len(cohort))
	if e.parallelism < 2 {
		for i, s := range cohort {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("process students: %w", err)
			}
			students[i] = ProcessStudent(s, idx, e.cfg)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.parallelism)
		for i, s := range cohort {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				students[i] = ProcessStudent(s, idx, e.cfg)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("process students: %w", err)
		}
	}

	return &Report{
		Statistics: stats,
		Students:   RankCohort(students, e.order),
	}, nil
}

func cloneConfiguration(c Configuration) Configuration {
	c.Thresholds = append([]GradeThreshold(nil), c.Thresholds...)
	c.Categories = append([]CategoryBand(nil), c.Categories...)
	c.CoreSubjects = append([]Subject(nil), c.CoreSubjects...)
	return c
}
