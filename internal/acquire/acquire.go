package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"ytsum/internal/config"
	"ytsum/internal/media/ffprobe"
	"ytsum/internal/services"
)

const (
	stageName    = "acquire"
	unknownTitle = "Unknown Video"
)

// Audio is a downloaded audio track ready for transcription.
type Audio struct {
	SourceURL       string
	Path            string
	Title           string
	DurationSeconds float64
	VideoID         string
}

// Metadata describes a video without downloading it.
type Metadata struct {
	VideoID         string
	Title           string
	DurationSeconds float64
}

// Acquirer downloads the audio of a video URL into dir.
type Acquirer interface {
	Acquire(ctx context.Context, rawURL, dir string) (Audio, error)
}

// Inspector resolves video metadata without downloading media.
type Inspector interface {
	Inspect(ctx context.Context, rawURL string) (Metadata, error)
}

// Backend is implemented by every acquisition backend.
type Backend interface {
	Acquirer
	Inspector
}

// New builds the backend named by cfg.Acquisition.Backend.
func New(cfg *config.Config, logger *slog.Logger) (Backend, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new", "config required", nil)
	}
	switch cfg.Acquisition.Backend {
	case "ytdlp":
		return NewYtDlp(YtDlpOptions{
			Binary:        cfg.YtDlpBinary(),
			FFprobeBinary: cfg.FFprobeBinary(),
			AudioBitrate:  cfg.Acquisition.AudioBitrate,
			Logger:        logger,
		}), nil
	case "youtube", "":
		return NewNative(NativeOptions{
			FFmpegBinary:  cfg.FFmpegBinary(),
			FFprobeBinary: cfg.FFprobeBinary(),
			AudioBitrate:  cfg.Acquisition.AudioBitrate,
			Logger:        logger,
		}), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new", fmt.Sprintf("unknown acquisition backend %q", cfg.Acquisition.Backend), nil)
	}
}

// ValidateURL rejects anything that is not an absolute http(s) URL.
func ValidateURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", services.Wrap(services.ErrAcquisition, stageName, "validate", "video URL is empty", nil)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", services.Wrap(services.ErrAcquisition, stageName, "validate", fmt.Sprintf("invalid video URL %q", trimmed), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", services.Wrap(services.ErrAcquisition, stageName, "validate", fmt.Sprintf("unsupported URL scheme in %q", trimmed), nil)
	}
	if parsed.Host == "" {
		return "", services.Wrap(services.ErrAcquisition, stageName, "validate", fmt.Sprintf("video URL %q has no host", trimmed), nil)
	}
	return trimmed, nil
}

func normalizeTitle(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return unknownTitle
}

// probeDuration measures path when the source did not report a length.
func probeDuration(ctx context.Context, binary, path string) (float64, error) {
	seconds, err := ffprobe.Duration(ctx, binary, path)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return 0, services.Wrap(services.ErrDependencyMissing, stageName, "ffprobe", "ffprobe not found on PATH", err)
		}
		return 0, services.Wrap(services.ErrAcquisition, stageName, "ffprobe", "could not measure downloaded audio", err)
	}
	return seconds, nil
}

func checkOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrAcquisition, stageName, "verify", "downloaded audio missing", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrAcquisition, stageName, "verify", "downloaded audio is empty", nil)
	}
	return nil
}

func commandError(op, binary string, err error, output []byte) error {
	if errors.Is(err, exec.ErrNotFound) {
		return services.Wrap(services.ErrDependencyMissing, stageName, op, fmt.Sprintf("%s not found on PATH", binary), err)
	}
	detail := strings.TrimSpace(string(output))
	if len(detail) > 400 {
		detail = "..." + detail[len(detail)-400:]
	}
	if detail != "" {
		err = fmt.Errorf("%w: %s", err, detail)
	}
	return services.Wrap(services.ErrAcquisition, stageName, op, fmt.Sprintf("%s failed", binary), err)
}
