package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ytsum/internal/config"
	"ytsum/internal/logging"
	"ytsum/internal/services"
	"ytsum/internal/services/llm"
	"ytsum/internal/services/whisper"
)

const stageName = "transcribe"

// ErrNoSpeech is wrapped into the ErrTranscription returned when a backend
// produces no text for an otherwise readable file.
var ErrNoSpeech = errors.New("no speech detected")

// Transcriber converts one audio file to plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

type whisperRunner interface {
	TranscribeFile(ctx context.Context, source, outputDir, language string) (whisper.TranscribeResult, error)
	Model() string
}

type audioClient interface {
	Transcribe(ctx context.Context, path, language string) (string, error)
}

// Local transcribes with openai-whisper on this machine.
type Local struct {
	runner   whisperRunner
	language string
	logger   *slog.Logger
}

// NewLocal wraps a Whisper service.
func NewLocal(runner whisperRunner, language string, logger *slog.Logger) *Local {
	return &Local{
		runner:   runner,
		language: language,
		logger:   logging.NewComponentLogger(logger, "transcribe"),
	}
}

// Transcribe runs Whisper on path and returns the transcript.
func (l *Local) Transcribe(ctx context.Context, path string) (string, error) {
	if err := checkAudio(path); err != nil {
		return "", err
	}
	logger := logging.WithContext(ctx, l.logger)
	started := time.Now()
	logger.Info("transcription started",
		logging.String("path", filepath.Base(path)),
		logging.String("model", l.runner.Model()),
		logging.String("backend", "local"),
	)

	result, err := l.runner.TranscribeFile(ctx, path, filepath.Dir(path), l.language)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", services.Wrap(services.ErrDependencyMissing, stageName, "whisper", "uvx not found on PATH; install uv to run openai-whisper", err)
		}
		return "", services.Wrap(services.ErrTranscription, stageName, "whisper", "whisper failed", err)
	}
	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", services.Wrap(services.ErrTranscription, stageName, "whisper", fmt.Sprintf("empty transcript for %s", filepath.Base(path)), ErrNoSpeech)
	}
	logger.Info("transcription completed",
		logging.Duration("elapsed", time.Since(started)),
		logging.Int("characters", len(text)),
		logging.String("language", result.Language),
	)
	return text, nil
}

// Hosted transcribes through an OpenAI-compatible audio endpoint.
type Hosted struct {
	client   audioClient
	language string
	ffmpeg   string
	limit    int64
	logger   *slog.Logger
}

// NewHosted wraps an audio-capable LLM client. ffmpeg re-encodes files that
// exceed the endpoint's upload limit; empty defaults to "ffmpeg".
func NewHosted(client audioClient, language, ffmpegBinary string, logger *slog.Logger) *Hosted {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &Hosted{
		client:   client,
		language: language,
		ffmpeg:   ffmpegBinary,
		limit:    config.HostedUploadLimitBytes,
		logger:   logging.NewComponentLogger(logger, "transcribe"),
	}
}

// Transcribe uploads path and returns the transcript.
func (h *Hosted) Transcribe(ctx context.Context, path string) (string, error) {
	if err := checkAudio(path); err != nil {
		return "", err
	}
	logger := logging.WithContext(ctx, h.logger)
	started := time.Now()
	logger.Info("transcription started",
		logging.String("path", filepath.Base(path)),
		logging.String("backend", "api"),
	)

	upload, cleanup, err := h.prepareUpload(ctx, path)
	if err != nil {
		return "", err
	}
	defer cleanup()

	text, err := h.client.Transcribe(ctx, upload, h.language)
	if errors.Is(err, llm.ErrEmptyContent) {
		text, err = "", nil
	}
	if err != nil {
		return "", services.Wrap(services.ErrTranscription, stageName, "api", "hosted transcription failed", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", services.Wrap(services.ErrTranscription, stageName, "api", fmt.Sprintf("empty transcript for %s", filepath.Base(path)), ErrNoSpeech)
	}
	logger.Info("transcription completed",
		logging.Duration("elapsed", time.Since(started)),
		logging.Int("characters", len(text)),
	)
	return text, nil
}

// prepareUpload returns path unchanged when it fits the upload limit, and
// otherwise a low-bitrate mono copy next to it that cleanup removes.
func (h *Hosted) prepareUpload(ctx context.Context, path string) (string, func(), error) {
	noop := func() {}
	info, err := os.Stat(path)
	if err != nil {
		return "", noop, services.Wrap(services.ErrTranscription, stageName, "open", "audio file unreadable", err)
	}
	if info.Size() <= h.limit {
		return path, noop, nil
	}

	dest := strings.TrimSuffix(path, filepath.Ext(path)) + ".upload.mp3"
	cleanup := func() { _ = os.Remove(dest) }
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-b:a", strconv.Itoa(config.HostedUploadBitsPerSecond/1000) + "k",
		dest,
	}
	cmd := exec.CommandContext(ctx, h.ffmpeg, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		cleanup()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return "", noop, services.Wrap(services.ErrDependencyMissing, stageName, "reencode", "ffmpeg not found on PATH", err)
		}
		return "", noop, services.Wrap(services.ErrTranscription, stageName, "reencode", fmt.Sprintf("ffmpeg failed for %s: %s", filepath.Base(path), strings.TrimSpace(string(output))), err)
	}
	reduced, err := os.Stat(dest)
	if err != nil {
		cleanup()
		return "", noop, services.Wrap(services.ErrTranscription, stageName, "reencode", "re-encoded audio not written", err)
	}
	if reduced.Size() > h.limit {
		cleanup()
		return "", noop, services.Wrap(services.ErrTranscription, stageName, "reencode",
			fmt.Sprintf("%s is %d bytes after re-encoding, over the %d byte upload limit; lower chunking.length_seconds", filepath.Base(path), reduced.Size(), h.limit), nil)
	}
	logging.WithContext(ctx, h.logger).Info("audio re-encoded for upload",
		logging.String("path", filepath.Base(path)),
		logging.Int("original_bytes", int(info.Size())),
		logging.Int("upload_bytes", int(reduced.Size())),
	)
	return dest, cleanup, nil
}

// New builds the transcriber selected by cfg.Transcription.Backend. The local
// model and the API credential come from settings; backend wiring (binaries,
// endpoint, language) comes from cfg.
func New(cfg *config.Config, settings config.PipelineSettings, logger *slog.Logger) (Transcriber, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new", "config required", nil)
	}
	switch cfg.Transcription.Backend {
	case "api":
		client := llm.NewClient(llm.Config{
			APIKey:             settings.APICredential,
			BaseURL:            cfg.LLM.BaseURL,
			TranscriptionModel: cfg.Transcription.APIModel,
			TimeoutSeconds:     cfg.LLM.TimeoutSeconds,
			RequestsPerMinute:  cfg.LLM.RequestsPerMinute,
		}, llm.WithRetryMaxAttempts(cfg.LLM.RetryAttempts))
		return NewHosted(client, cfg.Transcription.Language, cfg.FFmpegBinary(), logger), nil
	case "local", "":
		if err := config.ValidateWhisperModel(settings.TranscriptionModel); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, stageName, "new", "invalid whisper model", err)
		}
		svc := whisper.NewService(whisper.Config{
			Model:       settings.TranscriptionModel,
			CUDAEnabled: cfg.Transcription.CUDAEnabled,
		})
		return NewLocal(svc, cfg.Transcription.Language, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new", fmt.Sprintf("unknown transcription backend %q", cfg.Transcription.Backend), nil)
	}
}

func checkAudio(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrTranscription, stageName, "open", "audio file unreadable", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return services.Wrap(services.ErrTranscription, stageName, "open", fmt.Sprintf("audio file %s is empty", filepath.Base(path)), nil)
	}
	return nil
}
