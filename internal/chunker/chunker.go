package chunker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ytsum/internal/logging"
	"ytsum/internal/media/ffprobe"
	"ytsum/internal/services"
)

const stageName = "chunk"

// Chunk is one contiguous slice of a parent audio file. Index is 0-based and
// fixes the order chunk summaries are recombined in.
type Chunk struct {
	ParentPath string
	Index      int
	Path       string
	Span       Span
}

// Chunker splits audio files with ffmpeg stream copy.
type Chunker struct {
	ffmpeg  string
	ffprobe string
	logger  *slog.Logger
}

// New constructs a Chunker. Empty binary names default to ffmpeg and ffprobe.
func New(ffmpegBinary, ffprobeBinary string, logger *slog.Logger) *Chunker {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return &Chunker{
		ffmpeg:  ffmpegBinary,
		ffprobe: ffprobeBinary,
		logger:  logging.NewComponentLogger(logger, "chunker"),
	}
}

// ChunkPath returns the file name used for chunk index of parent inside dir.
func ChunkPath(parent, dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_chunk_%d.mp3", filepath.Base(parent), index))
}

// Split measures path and writes one MP3 per planned span into dir. On any
// failure the chunks already written are removed before the error is returned.
func (c *Chunker) Split(ctx context.Context, path string, chunkLengthSeconds int, dir string) ([]Chunk, error) {
	if chunkLengthSeconds <= 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "plan", fmt.Sprintf("chunk length must be positive, got %d", chunkLengthSeconds), nil)
	}
	if err := c.checkBinaries(); err != nil {
		return nil, err
	}

	duration, err := ffprobe.Duration(ctx, c.ffprobe, path)
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, stageName, "probe", "could not measure audio duration", err)
	}

	spans := Plan(duration, chunkLengthSeconds)
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("splitting audio",
		logging.String("path", filepath.Base(path)),
		logging.Float64("duration_seconds", duration),
		logging.Int("chunk_length_seconds", chunkLengthSeconds),
		logging.Int("chunks", len(spans)),
	)

	started := time.Now()
	chunks := make([]Chunk, 0, len(spans))
	for i, span := range spans {
		out := ChunkPath(path, dir, i)
		if err := c.extract(ctx, path, span, out); err != nil {
			_ = os.Remove(out)
			removeChunks(chunks)
			return nil, err
		}
		chunks = append(chunks, Chunk{ParentPath: path, Index: i, Path: out, Span: span})
	}

	logger.Info("audio split completed",
		logging.Int("chunks", len(chunks)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return chunks, nil
}

func (c *Chunker) checkBinaries() error {
	for _, binary := range []string{c.ffmpeg, c.ffprobe} {
		if _, err := exec.LookPath(binary); err != nil {
			return services.Wrap(services.ErrDependencyMissing, stageName, "preflight", fmt.Sprintf("%s not found on PATH; install ffmpeg to split long videos", binary), err)
		}
	}
	return nil
}

func (c *Chunker) extract(ctx context.Context, source string, span Span, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(span.Start),
		"-t", formatSeconds(span.Length()),
		"-i", source,
		"-vn",
		"-c", "copy",
		dest,
	}
	cmd := exec.CommandContext(ctx, c.ffmpeg, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrTranscription, stageName, "split", fmt.Sprintf("ffmpeg failed for %s: %s", filepath.Base(dest), strings.TrimSpace(string(output))), err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return services.Wrap(services.ErrTranscription, stageName, "split", "chunk not written", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrTranscription, stageName, "split", fmt.Sprintf("chunk %s is empty", filepath.Base(dest)), nil)
	}
	return nil
}

func removeChunks(chunks []Chunk) {
	for _, chunk := range chunks {
		_ = os.Remove(chunk.Path)
	}
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
