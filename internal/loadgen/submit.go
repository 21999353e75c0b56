package loadgen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/nrtgrade/pkg/logger"
)

// counters accumulates submission outcomes across workers.
type counters struct {
	submitted atomic.Int64
	accepted  atomic.Int64
	duplicate atomic.Int64
	retried   atomic.Int64
	failed    atomic.Int64
}

// submitAll posts every submission with cfg.Workers concurrent submitters.
// Backpressure is retried with the same submission id, so a retry that races
// a late acceptance is answered as a duplicate rather than applied twice.
func submitAll(ctx context.Context, cfg *Config, client *Client, subs []Submission, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting scores", logger.Int("submissions", len(subs)), logger.Int("workers", cfg.Workers))

	var c counters
	ch := make(chan Submission, cfg.Workers*workerChannelMult)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range ch {
				submitOne(ctx, cfg, client, s, &c)
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, s := range subs {
			select {
			case <-ctx.Done():
				return
			case ch <- s:
			}
		}
	}()

	wg.Wait()

	stats.Submitted = int(c.submitted.Load())
	stats.Accepted = int(c.accepted.Load())
	stats.Duplicate = int(c.duplicate.Load())
	stats.Retried = int(c.retried.Load())
	stats.Failed = int(c.failed.Load())

	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("retried", stats.Retried),
		logger.Int("failed", stats.Failed),
	)
}

func submitOne(ctx context.Context, cfg *Config, client *Client, s Submission, c *counters) { //nolint:gocritic // hugeParam
	c.submitted.Add(1)
	for attempt := 1; ; attempt++ {
		res, err := client.postScore(ctx, s)
		switch res {
		case outcomeAccepted:
			c.accepted.Add(1)
			return
		case outcomeDuplicate:
			c.duplicate.Add(1)
			return
		case outcomeBackpressure:
			if attempt < maxSubmitAttempts {
				c.retried.Add(1)
				select {
				case <-ctx.Done():
				case <-time.After(time.Duration(attempt) * retryBackoff):
					continue
				}
				err = errors.Join(err, ctx.Err())
			}
		case outcomeFailed:
		}

		c.failed.Add(1)
		if cfg.Verbose {
			logger.Get().Warn(ctx, "submission failed",
				logger.String("submission_id", s.SubmissionID),
				logger.Int("attempts", attempt),
				logger.Error(err),
			)
		}
		return
	}
}
