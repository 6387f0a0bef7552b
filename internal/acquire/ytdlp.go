package acquire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"ytsum/internal/logging"
	"ytsum/internal/services"
)

// YtDlpOptions configures the yt-dlp backend.
type YtDlpOptions struct {
	Binary        string
	FFprobeBinary string
	AudioBitrate  string
	Logger        *slog.Logger
}

// YtDlp shells out to yt-dlp, which handles extraction and MP3 conversion.
type YtDlp struct {
	binary  string
	ffprobe string
	quality string
	logger  *slog.Logger
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewYtDlp constructs the yt-dlp backend.
func NewYtDlp(opts YtDlpOptions) *YtDlp {
	return &YtDlp{
		binary:  firstNonEmpty(opts.Binary, "yt-dlp"),
		ffprobe: firstNonEmpty(opts.FFprobeBinary, "ffprobe"),
		quality: strings.ToUpper(firstNonEmpty(opts.AudioBitrate, "192k")),
		logger:  logging.NewComponentLogger(opts.Logger, "acquire"),
		run:     runOutput,
	}
}

type ytDlpInfo struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Filename string  `json:"_filename"`
}

// Inspect asks yt-dlp for the video's metadata without downloading it.
func (y *YtDlp) Inspect(ctx context.Context, rawURL string) (Metadata, error) {
	trimmed, err := ValidateURL(rawURL)
	if err != nil {
		return Metadata{}, err
	}
	output, err := y.run(ctx, y.binary, "--dump-single-json", "--skip-download", "--no-playlist", "--no-warnings", trimmed)
	if err != nil {
		return Metadata{}, commandError("inspect", y.binary, err, output)
	}
	info, err := parseInfo(output)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{VideoID: info.ID, Title: normalizeTitle(info.Title), DurationSeconds: info.Duration}, nil
}

// Acquire downloads the best audio of rawURL and converts it to MP3 in dir.
func (y *YtDlp) Acquire(ctx context.Context, rawURL, dir string) (Audio, error) {
	trimmed, err := ValidateURL(rawURL)
	if err != nil {
		return Audio{}, err
	}
	logger := logging.WithContext(ctx, y.logger)
	logger.Info("audio download started", logging.String("url", trimmed), logging.String("backend", "ytdlp"))
	started := time.Now()

	args := []string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", y.quality,
		"--no-playlist",
		"--no-progress",
		"--print-json",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		trimmed,
	}
	output, err := y.run(ctx, y.binary, args...)
	if err != nil {
		removeMatching(dir)
		return Audio{}, commandError("download", y.binary, err, output)
	}
	info, err := parseInfo(output)
	if err != nil {
		removeMatching(dir)
		return Audio{}, err
	}

	outPath := filepath.Join(dir, info.ID+".mp3")
	if err := checkOutput(outPath); err != nil {
		removeMatching(dir)
		return Audio{}, err
	}

	duration := info.Duration
	if duration <= 0 {
		if duration, err = probeDuration(ctx, y.ffprobe, outPath); err != nil {
			_ = os.Remove(outPath)
			return Audio{}, err
		}
	}

	logger.Info("audio download completed",
		logging.String("path", outPath),
		logging.Float64("duration_seconds", duration),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Audio{
		SourceURL:       rawURL,
		Path:            outPath,
		Title:           normalizeTitle(info.Title),
		DurationSeconds: duration,
		VideoID:         info.ID,
	}, nil
}

// parseInfo reads the last JSON object yt-dlp printed.
func parseInfo(output []byte) (ytDlpInfo, error) {
	var info ytDlpInfo
	lines := bytes.Split(bytes.TrimSpace(output), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		if err := json.Unmarshal(line, &info); err != nil {
			return info, services.Wrap(services.ErrAcquisition, stageName, "parse", "decode yt-dlp metadata", err)
		}
		if strings.TrimSpace(info.ID) == "" {
			return info, services.Wrap(services.ErrAcquisition, stageName, "parse", "yt-dlp metadata missing video id", nil)
		}
		return info, nil
	}
	return info, services.Wrap(services.ErrAcquisition, stageName, "parse", "yt-dlp printed no metadata", nil)
}

// removeMatching clears partial downloads yt-dlp leaves on failure.
func removeMatching(dir string) {
	for _, pattern := range []string{"*.part", "*.ytdl", "*.webm", "*.m4a", "*.mp3"} {
		matches, _ := filepath.Glob(filepath.Join(dir, pattern))
		for _, match := range matches {
			_ = os.Remove(match)
		}
	}
}

func runOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stderr.Bytes(), err
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
