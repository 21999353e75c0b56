package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/okian/nrtgrade/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// ErrIncomplete reports that the sheet never reached the expected size.
var ErrIncomplete = errors.New("score sheet incomplete")

func (cfg *Config) withDefaults() *Config {
	c := *cfg
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Cycle == "" {
		c.Cycle = DefaultCycle
	}
	if c.Workers < 1 {
		c.Workers = runtime.NumCPU() * workerChannelMult
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return &c
}

// Run executes a complete load run: health check, generation, concurrent
// submission, settling, grading and verification.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	cfg := config.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadgen")

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("cycle", cfg.Cycle),
		logger.Int("students", cfg.Students),
		logger.Int("subjects", cfg.Subjects),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	rules, err := client.GradingConfig(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch grading config: %w", err)
	}

	subs, err := NewGenerator(cfg.Seed, rules).Generate(cfg.Cycle, cfg.Students, cfg.Subjects)
	if err != nil {
		return stats, fmt.Errorf("generation failed: %w", err)
	}
	stats.Generated = len(subs)
	if cfg.OutputFile != "" {
		if err := saveSubmissions(cfg.OutputFile, subs); err != nil {
			log.Warn(ctx, "failed to save submissions", logger.Error(err))
		}
	}

	submitAll(ctx, cfg, client, subs, stats)
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d of %d submissions failed", stats.Failed, stats.Submitted)
	}

	settleStart := time.Now()
	if err := waitForEntries(ctx, cfg, client, len(subs)); err != nil {
		return stats, err
	}
	stats.SettleTime = time.Since(settleStart)

	gradeStart := time.Now()
	students, err := client.Results(ctx, cfg.Cycle)
	if err != nil {
		return stats, fmt.Errorf("fetch results: %w", err)
	}
	stats.GradeLatency = time.Since(gradeStart)
	stats.Graded = len(students)

	if err := Verify(students, rules, cfg.Students); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, log, stats)
	return stats, nil
}

// waitForEntries polls /cycles until the cycle holds at least want entries.
func waitForEntries(ctx context.Context, cfg *Config, client *Client, want int) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Settle)
	defer cancel()
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	last := 0
	for {
		n, err := client.Entries(ctx, cfg.Cycle)
		if err == nil {
			if n >= want {
				return nil
			}
			last = n
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %d of %d entries after %s", ErrIncomplete, last, want, cfg.Settle)
		case <-ticker.C:
		}
	}
}

// saveSubmissions writes the generated submissions as a JSON array.
func saveSubmissions(filename string, subs []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal submissions: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}

func logFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var acceptRate, perSecond float64
	if stats.Submitted > 0 {
		acceptRate = float64(stats.Accepted) / float64(stats.Submitted) * percentMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("retried", stats.Retried),
		logger.Int("graded", stats.Graded),
		logger.Duration("duration", stats.Duration),
		logger.Duration("settle", stats.SettleTime),
		logger.Duration("gradeLatency", stats.GradeLatency),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("submissionsPerSecond", perSecond),
	)
}
