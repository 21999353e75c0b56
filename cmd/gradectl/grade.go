package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okian/nrtgrade/internal/config"
	"github.com/okian/nrtgrade/internal/domain/grading"
)

// cohortFile is the YAML layout read by "gradectl grade".
type cohortFile struct {
	Cycle    string                  `yaml:"cycle"`
	Students []grading.StudentScores `yaml:"students"`
}

type gradeOptions struct {
	cohort     string
	configPath string
	order      string
	format     string
	stats      bool
}

func newGradeCmd() *cobra.Command {
	var opts gradeOptions
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade a cohort file offline",
		Long: `Grade reads a YAML cohort, runs the grading engine over it and prints
the ranked results. Rules come from --config, or from NRT_CONFIG and NRT_*
environment variables when --config is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGrade(cmd.Context(), cmd.OutOrStdout(), &opts)
		},
	}
	cmd.Flags().StringVar(&opts.cohort, "cohort", "", "YAML cohort file (required)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML configuration file")
	cmd.Flags().StringVar(&opts.order, "order", string(grading.SortByRank), "display order: rank, name, id or score")
	cmd.Flags().StringVar(&opts.format, "format", "table", "output format: table or json")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "also print per-subject statistics")
	_ = cmd.MarkFlagRequired("cohort")
	return cmd
}

func runGrade(ctx context.Context, out io.Writer, opts *gradeOptions) error {
	order, err := grading.ParseSortOrder(opts.order)
	if err != nil {
		return err
	}
	if opts.format != "table" && opts.format != "json" {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	cfg, err := loadConfig(ctx, opts.configPath)
	if err != nil {
		return err
	}
	rules, err := cfg.Grading.Configuration()
	if err != nil {
		return err
	}
	cohort, err := readCohort(opts.cohort)
	if err != nil {
		return err
	}

	engine, err := grading.NewEngine(rules,
		grading.WithParallelism(cfg.Parallelism),
		grading.WithSortOrder(order),
	)
	if err != nil {
		return err
	}
	report, err := engine.Process(ctx, cohort.Students)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Cycle string `json:"cycle,omitempty"`
			Order string `json:"order"`
			*grading.Report
		}{Cycle: cohort.Cycle, Order: string(order), Report: report})
	}
	if opts.stats {
		if err := writeStatistics(out, report.Statistics); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out)
	}
	return writeResults(out, report)
}

func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if path == "" {
		return config.Load(ctx)
	}
	return config.LoadFile(ctx, path)
}

// readCohort parses a cohort file and canonicalizes its subject names.
func readCohort(path string) (*cohortFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cohort: %w", err)
	}
	var c cohortFile
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse cohort %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(c.Students))
	for i := range c.Students {
		s := &c.Students[i]
		s.StudentID = strings.TrimSpace(s.StudentID)
		if s.StudentID == "" {
			return nil, fmt.Errorf("cohort %s: student %d has no student_id", path, i+1)
		}
		if _, dup := seen[s.StudentID]; dup {
			return nil, fmt.Errorf("cohort %s: student_id %q appears twice", path, s.StudentID)
		}
		seen[s.StudentID] = struct{}{}

		scores := make(map[grading.Subject]grading.RawScoreEntry, len(s.Scores))
		raw := make(map[grading.Subject]string, len(s.Scores))
		for name, entry := range s.Scores {
			subject, err := grading.ParseSubject(name.String())
			if err != nil {
				return nil, fmt.Errorf("cohort %s: student %s: %w", path, s.StudentID, err)
			}
			if prev, dup := raw[subject]; dup {
				keys := []string{prev, name.String()}
				sort.Strings(keys)
				return nil, fmt.Errorf("cohort %s: student %s: subjects %q and %q both name %q",
					path, s.StudentID, keys[0], keys[1], subject)
			}
			raw[subject] = name.String()
			scores[subject] = entry
		}
		s.Scores = scores
	}
	return &c, nil
}

func writeResults(out io.Writer, report *grading.Report) error {
	subjects := make([]string, len(report.Statistics))
	for i, st := range report.Statistics {
		subjects[i] = st.Subject.String()
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := append([]string{"RANK", "STUDENT", "NAME", "AGGREGATE", "CATEGORY", "TOTAL"}, subjects...)
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, p := range report.Students {
		grades := make(map[grading.Subject]string, len(p.Subjects))
		for _, r := range p.Subjects {
			grades[r.Subject] = r.Grade
		}
		row := []string{
			fmt.Sprint(p.Rank),
			p.StudentID,
			p.Name,
			fmt.Sprint(p.Aggregate),
			p.Category,
			fmt.Sprintf("%.2f", p.TotalScore),
		}
		for _, s := range report.Statistics {
			g, ok := grades[s.Subject]
			if !ok {
				g = "-"
			}
			row = append(row, g)
		}
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func writeStatistics(out io.Writer, stats []grading.SubjectPopulationStats) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SUBJECT\tCOUNT\tMEAN\tSTD DEV")
	for _, s := range stats {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\n", s.Subject, s.Count, s.Mean, s.StdDev)
	}
	return tw.Flush()
}
