package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ytsum/internal/acquire"
	"ytsum/internal/chunker"
	"ytsum/internal/config"
	"ytsum/internal/deps"
	"ytsum/internal/fileutil"
	"ytsum/internal/logging"
	"ytsum/internal/pipeline"
	"ytsum/internal/preflight"
	"ytsum/internal/services"
	"ytsum/internal/services/llm"
	"ytsum/internal/summarize"
	"ytsum/internal/textutil"
	"ytsum/internal/transcribe"
	"ytsum/internal/workspace"
)

type summarizeOptions struct {
	whisperModel string
	chunkLength  int
	chunkTrigger int
	model        string
	output       string
	save         bool
	noProgress   bool
}

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var opts summarizeOptions

	cmd := &cobra.Command{
		Use:   "summarize <url>",
		Short: "Download, transcribe and summarize a video",
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
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}

			logger, err := ctx.logger(&cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			sweepStaleRuns(cmd.Context(), &cfg, logger)

			var observer pipeline.Observer
			var onBytes acquire.ProgressFunc
			stderr := cmd.ErrOrStderr()
			if !opts.noProgress && !ctx.verbose() && shouldColorize(stderr) {
				progress := newProgressObserver(stderr)
				defer progress.close()
				observer = progress
				onBytes = progress.downloadProgress
			}

			r, err := ctx.newRunner(&cfg, logger, observer, onBytes)
			if err != nil {
				return err
			}
			result, err := r.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeSummary(cmd, result, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.whisperModel, "whisper-model", "", "Whisper model size ("+strings.Join(config.WhisperModels, ", ")+")")
	flags.IntVar(&opts.chunkLength, "chunk-length", 0, "Chunk length in seconds for long videos")
	flags.IntVar(&opts.chunkTrigger, "chunk-trigger", 0, "Videos longer than this many seconds are chunked")
	flags.StringVar(&opts.model, "model", "", "Language model id used for summaries")
	flags.StringVarP(&opts.output, "output", "o", "", "Write the summary to this file instead of stdout")
	flags.BoolVar(&opts.save, "save", false, "Also save the summary as <title>.md in the current directory")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress display")
	return cmd
}

// apply layers explicitly set flags over cfg and revalidates the result.
func (o summarizeOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("whisper-model") {
		cfg.Transcription.Model = strings.ToLower(strings.TrimSpace(o.whisperModel))
	}
	if flags.Changed("chunk-length") {
		cfg.Chunking.LengthSeconds = o.chunkLength
	}
	if flags.Changed("chunk-trigger") {
		cfg.Chunking.TriggerSeconds = o.chunkTrigger
	}
	if flags.Changed("model") {
		cfg.LLM.Model = strings.TrimSpace(o.model)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

func sweepStaleRuns(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	if cfg.Cleanup.StaleAfterHours <= 0 {
		return
	}
	maxAge := time.Duration(cfg.Cleanup.StaleAfterHours) * time.Hour
	result := workspace.CleanStale(ctx, cfg.Paths.WorkDir, maxAge, logger)
	if len(result.Removed) > 0 {
		logger.Info("stale runs swept", logging.Int("removed", len(result.Removed)))
	}
}

func writeSummary(cmd *cobra.Command, result pipeline.Result, opts summarizeOptions) error {
	stderr := cmd.ErrOrStderr()
	text := strings.TrimRight(result.Summary, "\n") + "\n"

	if target := strings.TrimSpace(opts.output); target != "" {
		if err := fileutil.WriteFileAtomic(target, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		fmt.Fprintf(stderr, "Summary written to %s\n", target)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), text)
	}

	if opts.save {
		path := textutil.Slug(result.Title) + ".md"
		if err := fileutil.WriteFileAtomic(path, []byte(markdownDocument(result)), 0o644); err != nil {
			return fmt.Errorf("save summary: %w", err)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		fmt.Fprintf(stderr, "Summary saved to %s\n", abs)
	}
	return nil
}

func markdownDocument(result pipeline.Result) string {
	var b strings.Builder
	title := strings.TrimSpace(result.Title)
	if title == "" {
		title = "Video summary"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if result.SourceURL != "" {
		fmt.Fprintf(&b, "Source: %s\n\n", result.SourceURL)
	}
	b.WriteString(strings.TrimSpace(result.Summary))
	b.WriteString("\n")
	return b.String()
}

// buildRunner wires the production pipeline for cfg. Missing binaries fail
// here, before anything is downloaded.
func buildRunner(cfg *config.Config, logger *slog.Logger, observer pipeline.Observer, onBytes acquire.ProgressFunc) (runner, error) {
	if err := preflight.RequireRunnable(cfg); err != nil {
		return nil, err
	}

	backend, err := acquire.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if onBytes != nil {
		if native, ok := backend.(*acquire.Native); ok {
			native.SetProgress(onBytes)
		}
	}

	settings := cfg.PipelineConfig()
	transcriber, err := transcribe.New(cfg, settings, logger)
	if err != nil {
		return nil, err
	}

	client := llm.NewClient(llm.Config{
		APIKey:            settings.APICredential,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             settings.LanguageModelID,
		TimeoutSeconds:    cfg.LLM.TimeoutSeconds,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	}, llm.WithRetryMaxAttempts(cfg.LLM.RetryAttempts))
	summarizer := summarize.New(client, settings.LanguageModelID, logger)

	ffprobe := deps.ResolveFFprobe(cfg.FFmpegBinary())
	orchestrator, err := pipeline.New(settings, cfg.Paths.WorkDir, pipeline.Deps{
		Acquirer:    backend,
		Chunker:     chunker.New(cfg.FFmpegBinary(), ffprobe.Command, logger),
		Transcriber: transcriber,
		Summarizer:  summarizer,
		Combiner:    summarizer,
		Observer:    observer,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return orchestrator, nil
}

func buildInspector(cfg *config.Config, logger *slog.Logger) (acquire.Inspector, error) {
	backend, err := acquire.New(cfg, logger)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "plan", "inspector", "could not build acquisition backend", err)
	}
	return backend, nil
}
