package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ytsum/internal/workspace"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var all bool
	var list bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove run directories left behind by interrupted runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				runs, err := workspace.ListRuns(cfg.Paths.WorkDir)
				if err != nil {
					return fmt.Errorf("list runs: %w", err)
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No run directories")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.Name,
						time.Since(run.ModTime).Round(time.Minute).String(),
						formatSize(run.Size),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Run", "Age", "Size"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
				return nil
			}

			maxAge := olderThan
			if !cmd.Flags().Changed("older-than") {
				maxAge = time.Duration(cfg.Cleanup.StaleAfterHours) * time.Hour
			}
			if all {
				maxAge = 0
			}

			logger, err := ctx.logger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			result := workspace.CleanStale(cmd.Context(), cfg.Paths.WorkDir, maxAge, logger)
			fmt.Fprintf(out, "Removed %d run directories\n", len(result.Removed))
			for _, path := range result.Skipped {
				fmt.Fprintf(out, "Skipped %s (in use)\n", path)
			}
			for _, cleanupErr := range result.Errors {
				fmt.Fprintf(out, "Failed %s: %v\n", cleanupErr.Path, cleanupErr.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("clean: %d directories could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Remove runs older than this (default cleanup.stale_after_hours)")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every run directory not in use")
	cmd.Flags().BoolVar(&list, "list", false, "List run directories without removing them")
	return cmd
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
