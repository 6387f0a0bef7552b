package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ytsum/internal/language"
	"ytsum/internal/preflight"
	"ytsum/internal/workspace"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkLLM bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check tools, directories and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{CheckLLM: checkLLM})

			lines := renderSectionHeader("Environment", colorize)
			for _, result := range results {
				lines = append(lines, resultStatusLine(result, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			lines = append(lines,
				renderStatusLine("Acquisition", statusInfo, cfg.Acquisition.Backend, colorize),
				renderStatusLine("Transcription", statusInfo, transcriptionDetail(cfg.Transcription.Backend, cfg.Transcription.Model, cfg.Transcription.APIModel), colorize),
				renderStatusLine("Language", statusInfo, language.DisplayName(cfg.Transcription.Language), colorize),
				renderStatusLine("Language model", statusInfo, cfg.LLM.Model, colorize),
				renderStatusLine("Chunking", statusInfo, fmt.Sprintf("chunk above %ds, %ds per chunk", cfg.Chunking.TriggerSeconds, cfg.Chunking.LengthSeconds), colorize),
			)

			runs, err := workspace.ListRuns(cfg.Paths.WorkDir)
			switch {
			case err != nil:
				lines = append(lines, renderStatusLine("Run directories", statusWarn, err.Error(), colorize))
			case len(runs) == 0:
				lines = append(lines, renderStatusLine("Run directories", statusOK, "none", colorize))
			default:
				lines = append(lines, renderStatusLine("Run directories", statusWarn, fmt.Sprintf("%d present (see 'ytsum clean')", len(runs)), colorize))
			}

			failed := preflight.Failures(results)
			lines = append(lines, "")
			if len(failed) == 0 {
				lines = append(lines, renderStatusLine("Summary", statusOK, "ready", colorize))
			} else {
				names := make([]string, 0, len(failed))
				for _, result := range failed {
					names = append(names, result.Name)
				}
				lines = append(lines, renderStatusLine("Summary", statusError, "not ready: "+strings.Join(names, ", "), colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkLLM, "check-llm", false, "Ping the language model endpoint")
	return cmd
}

func resultStatusLine(result preflight.Result, colorize bool) string {
	switch {
	case result.Passed:
		return renderStatusLine(result.Name, statusOK, result.Detail, colorize)
	case result.Optional:
		return renderStatusLine(result.Name, statusWarn, result.Detail, colorize)
	default:
		return renderStatusLine(result.Name, statusError, result.Detail, colorize)
	}
}

func transcriptionDetail(backend, model, apiModel string) string {
	if backend == "api" {
		return "hosted (" + apiModel + ")"
	}
	return "local whisper (" + model + ")"
}
