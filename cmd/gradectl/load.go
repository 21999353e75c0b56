package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/okian/nrtgrade/internal/loadgen"
)

func newLoadCmd() *cobra.Command {
	cfg := loadgen.Config{}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Drive a running service with a synthetic cohort and verify its ranking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := loadgen.Run(cmd.Context(), &cfg)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(),
				"submitted %d (accepted %d, duplicate %d, retried %d), graded %d students in %s\n",
				stats.Submitted, stats.Accepted, stats.Duplicate, stats.Retried, stats.Graded, stats.Duration)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", loadgen.DefaultBaseURL, "base URL of the service")
	f.StringVar(&cfg.Cycle, "cycle", loadgen.DefaultCycle, "cycle to file the cohort under")
	f.IntVar(&cfg.Students, "students", loadgen.DefaultStudents, "number of students")
	f.IntVar(&cfg.Subjects, "subjects", loadgen.DefaultSubjects, "subjects per student")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "concurrent submitters")
	f.Uint64Var(&cfg.Seed, "seed", 1, "generator seed")
	f.DurationVar(&cfg.Timeout, "timeout", loadgen.DefaultTimeout, "HTTP request timeout")
	f.DurationVar(&cfg.Settle, "settle", loadgen.DefaultSettle, "how long to wait for every entry to be applied")
	f.DurationVar(&cfg.PollInterval, "poll", loadgen.DefaultPollInterval, "poll interval while waiting")
	f.StringVar(&cfg.OutputFile, "output", "", "write the generated submissions to this JSON file")
	f.BoolVar(&cfg.Verbose, "verbose", false, "log each failed submission")
	return cmd
}
