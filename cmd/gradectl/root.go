package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/nrtgrade/pkg/logger"
)

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:           "gradectl",
		Short:         "Norm-referenced grading from the command line",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(
				logger.WithWriter(cmd.ErrOrStderr()),
				logger.WithFormat(logger.Format(logFormat)),
			); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			return logger.SetLevelString(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(newGradeCmd(), newLoadCmd())
	return root
}
