package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ytsum/internal/chunker"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var opts summarizeOptions

	cmd := &cobra.Command{
		Use:   "plan <url>",
		Short: "Show how a video would be processed without downloading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *base
			if err := opts.apply(cmd, &cfg); err != nil {
				return err
			}
			logger, err := ctx.logger(&cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			inspector, err := ctx.newInspector(&cfg, logger)
			if err != nil {
				return err
			}
			meta, err := inspector.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Title:    %s\n", meta.Title)
			fmt.Fprintf(out, "Duration: %s\n", formatClock(meta.DurationSeconds))

			trigger := cfg.Chunking.TriggerSeconds
			if meta.DurationSeconds <= float64(trigger) {
				fmt.Fprintf(out, "Path:     single pass (at most %s)\n", formatClock(float64(trigger)))
				return nil
			}

			spans := chunker.Plan(meta.DurationSeconds, cfg.Chunking.LengthSeconds)
			fmt.Fprintf(out, "Path:     chunked, %d chunks of up to %s\n", len(spans), formatClock(float64(cfg.Chunking.LengthSeconds)))
			rows := make([][]string, 0, len(spans))
			for i, span := range spans {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					formatClock(span.Start),
					formatClock(span.End),
					formatClock(span.Length()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Part", "Start", "End", "Length"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.chunkLength, "chunk-length", 0, "Chunk length in seconds for long videos")
	flags.IntVar(&opts.chunkTrigger, "chunk-trigger", 0, "Videos longer than this many seconds are chunked")
	return cmd
}

func formatClock(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
