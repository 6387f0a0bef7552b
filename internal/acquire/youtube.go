package acquire

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"ytsum/internal/logging"
	"ytsum/internal/services"
)

type videoSource interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// ProgressFunc reports downloaded bytes against the expected total (0 when unknown).
type ProgressFunc func(done, total int64)

// NativeOptions configures the youtube backend.
type NativeOptions struct {
	FFmpegBinary  string
	FFprobeBinary string
	AudioBitrate  string
	Logger        *slog.Logger
	Progress      ProgressFunc
}

// Native downloads the best audio-only stream with the kkdai/youtube client
// and transcodes it to MP3 with ffmpeg.
type Native struct {
	source  videoSource
	ffmpeg  string
	ffprobe string
	bitrate string
	logger  *slog.Logger
	onBytes ProgressFunc
}

// NewNative constructs the youtube backend.
func NewNative(opts NativeOptions) *Native {
	n := &Native{
		source:  &youtube.Client{},
		ffmpeg:  firstNonEmpty(opts.FFmpegBinary, "ffmpeg"),
		ffprobe: firstNonEmpty(opts.FFprobeBinary, "ffprobe"),
		bitrate: firstNonEmpty(opts.AudioBitrate, "192k"),
		logger:  logging.NewComponentLogger(opts.Logger, "acquire"),
		onBytes: opts.Progress,
	}
	return n
}

// SetProgress installs a byte-progress callback for subsequent downloads.
func (n *Native) SetProgress(fn ProgressFunc) {
	n.onBytes = fn
}

// Inspect resolves the video's id, title and duration.
func (n *Native) Inspect(ctx context.Context, rawURL string) (Metadata, error) {
	video, err := n.resolve(ctx, rawURL)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		VideoID:         video.ID,
		Title:           normalizeTitle(video.Title),
		DurationSeconds: video.Duration.Seconds(),
	}, nil
}

// Acquire downloads the audio of rawURL into dir as <video id>.mp3.
func (n *Native) Acquire(ctx context.Context, rawURL, dir string) (Audio, error) {
	video, err := n.resolve(ctx, rawURL)
	if err != nil {
		return Audio{}, err
	}
	format := bestAudioFormat(video.Formats)
	if format == nil {
		return Audio{}, services.Wrap(services.ErrAcquisition, stageName, "select format", fmt.Sprintf("no audio-only stream for video %s", video.ID), nil)
	}

	logger := logging.WithContext(ctx, n.logger)
	logger.Info("audio download started",
		logging.String("video_id", video.ID),
		logging.String("title", video.Title),
		logging.String("mime_type", format.MimeType),
		logging.Int("bitrate", format.Bitrate),
	)
	started := time.Now()

	streamPath := filepath.Join(dir, video.ID+".stream")
	defer func() { _ = os.Remove(streamPath) }()
	if err := n.download(ctx, video, format, streamPath); err != nil {
		return Audio{}, err
	}

	outPath := filepath.Join(dir, video.ID+".mp3")
	if err := n.transcode(ctx, streamPath, outPath); err != nil {
		_ = os.Remove(outPath)
		return Audio{}, err
	}
	if err := checkOutput(outPath); err != nil {
		_ = os.Remove(outPath)
		return Audio{}, err
	}

	duration := video.Duration.Seconds()
	if duration <= 0 {
		if duration, err = probeDuration(ctx, n.ffprobe, outPath); err != nil {
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
		Title:           normalizeTitle(video.Title),
		DurationSeconds: duration,
		VideoID:         video.ID,
	}, nil
}

func (n *Native) resolve(ctx context.Context, rawURL string) (*youtube.Video, error) {
	trimmed, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	if !isYouTubeURL(trimmed) {
		return nil, services.Wrap(services.ErrAcquisition, stageName, "resolve", fmt.Sprintf("unsupported video host in %q", trimmed), nil)
	}
	if _, err := youtube.ExtractVideoID(trimmed); err != nil {
		return nil, services.Wrap(services.ErrAcquisition, stageName, "resolve", fmt.Sprintf("not a YouTube video URL: %q", trimmed), err)
	}
	video, err := n.source.GetVideoContext(ctx, trimmed)
	if err != nil {
		return nil, services.Wrap(services.ErrAcquisition, stageName, "resolve", "fetch video metadata", err)
	}
	return video, nil
}

func (n *Native) download(ctx context.Context, video *youtube.Video, format *youtube.Format, dest string) error {
	stream, size, err := n.source.GetStreamContext(ctx, video, format)
	if err != nil {
		return services.Wrap(services.ErrAcquisition, stageName, "download", "open audio stream", err)
	}
	defer stream.Close()

	file, err := os.Create(dest)
	if err != nil {
		return services.Wrap(services.ErrAcquisition, stageName, "download", "create stream file", err)
	}
	var writer io.Writer = file
	if n.onBytes != nil {
		writer = &progressWriter{w: file, total: size, report: n.onBytes}
	}
	if _, err := io.Copy(writer, stream); err != nil {
		_ = file.Close()
		return services.Wrap(services.ErrAcquisition, stageName, "download", "read audio stream", err)
	}
	if err := file.Close(); err != nil {
		return services.Wrap(services.ErrAcquisition, stageName, "download", "flush stream file", err)
	}
	return nil
}

func (n *Native) transcode(ctx context.Context, source, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", n.bitrate,
		dest,
	}
	cmd := exec.CommandContext(ctx, n.ffmpeg, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return commandError("transcode", n.ffmpeg, err, output)
	}
	return nil
}

var youtubeHosts = []string{"youtube.com", "youtu.be", "youtube-nocookie.com"}

func isYouTubeURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, known := range youtubeHosts {
		if host == known || strings.HasSuffix(host, "."+known) {
			return true
		}
	}
	return false
}

// bestAudioFormat picks the audio-only format with the highest bitrate,
// preferring mp4 audio when bitrates tie.
func bestAudioFormat(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		switch {
		case best == nil:
			best = f
		case f.Bitrate > best.Bitrate:
			best = f
		case f.Bitrate == best.Bitrate && isMP4(f) && !isMP4(best):
			best = f
		}
	}
	return best
}

func isMP4(f *youtube.Format) bool {
	return strings.Contains(f.MimeType, "mp4")
}

type progressWriter struct {
	w      io.Writer
	done   int64
	total  int64
	report ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.done += int64(n)
	p.report(p.done, p.total)
	return n, err
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
