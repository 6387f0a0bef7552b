package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"ytsum/internal/config"
	"ytsum/internal/services"
	"ytsum/internal/services/llm"
	"ytsum/internal/services/whisper"
)

type fakeWhisper struct {
	result whisper.TranscribeResult
	err    error
	calls  int
	lang   string
}

func (f *fakeWhisper) TranscribeFile(_ context.Context, _, _, language string) (whisper.TranscribeResult, error) {
	f.calls++
	f.lang = language
	return f.result, f.err
}

func (f *fakeWhisper) Model() string { return "tiny" }

type fakeAudioClient struct {
	text     string
	err      error
	uploaded string
	size     int64
}

func (f *fakeAudioClient) Transcribe(_ context.Context, path, _ string) (string, error) {
	f.uploaded = path
	if info, err := os.Stat(path); err == nil {
		f.size = info.Size()
	}
	return f.text, f.err
}

// ffmpegStub writes a script that fills its last argument with size bytes.
func ffmpegStub(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := fmt.Sprintf("#!/bin/sh\nfor last; do :; done\nhead -c %d /dev/zero > \"$last\"\n", size)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	return path
}

func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(path, []byte("mp3"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestLocalTranscribe(t *testing.T) {
	runner := &fakeWhisper{result: whisper.TranscribeResult{Text: "  hello world  ", Language: "en"}}
	local := NewLocal(runner, "en", nil)
	text, err := local.Transcribe(context.Background(), audioFile(t))
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if text != "hello world" || runner.lang != "en" {
		t.Fatalf("unexpected result %q lang=%q", text, runner.lang)
	}
}

func TestLocalTranscribeEmptyTextIsError(t *testing.T) {
	local := NewLocal(&fakeWhisper{result: whisper.TranscribeResult{Text: "   "}}, "", nil)
	_, err := local.Transcribe(context.Background(), audioFile(t))
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
}

func TestLocalTranscribeMissingUVX(t *testing.T) {
	runner := &fakeWhisper{err: fmt.Errorf("whisper: %w", exec.ErrNotFound)}
	_, err := NewLocal(runner, "", nil).Transcribe(context.Background(), audioFile(t))
	if !errors.Is(err, services.ErrDependencyMissing) {
		t.Fatalf("expected ErrDependencyMissing, got %v", err)
	}
}

func TestLocalTranscribeUnreadableAudio(t *testing.T) {
	runner := &fakeWhisper{}
	_, err := NewLocal(runner, "", nil).Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
	if runner.calls != 0 {
		t.Fatal("whisper should not run for unreadable audio")
	}
}

func TestHostedTranscribe(t *testing.T) {
	client := &fakeAudioClient{text: "transcript"}
	hosted := NewHosted(client, "", "", nil)
	path := audioFile(t)
	text, err := hosted.Transcribe(context.Background(), path)
	if err != nil || text != "transcript" {
		t.Fatalf("unexpected result %q %v", text, err)
	}
	if client.uploaded != path {
		t.Fatalf("small files should upload unchanged, got %s", client.uploaded)
	}

	failing := NewHosted(&fakeAudioClient{err: errors.New("http 500")}, "", "", nil)
	if _, err := failing.Transcribe(context.Background(), audioFile(t)); !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
}

func TestHostedTranscribeReencodesOversizedAudio(t *testing.T) {
	client := &fakeAudioClient{text: "transcript"}
	hosted := NewHosted(client, "", ffmpegStub(t, 4), nil)
	hosted.limit = 2

	path := audioFile(t)
	if _, err := hosted.Transcribe(context.Background(), path); err == nil {
		t.Fatal("expected error when re-encoded audio still exceeds the limit")
	} else if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
	if client.uploaded != "" {
		t.Fatalf("nothing should be uploaded over the limit, got %s", client.uploaded)
	}

	hosted = NewHosted(client, "", ffmpegStub(t, 1), nil)
	hosted.limit = 2
	text, err := hosted.Transcribe(context.Background(), path)
	if err != nil || text != "transcript" {
		t.Fatalf("unexpected result %q %v", text, err)
	}
	if filepath.Base(client.uploaded) != "audio.upload.mp3" || client.size != 1 {
		t.Fatalf("expected re-encoded upload, got %s (%d bytes)", client.uploaded, client.size)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("re-encoded copy should be removed, found %d files", len(entries))
	}
}

func TestHostedTranscribeMissingFFmpeg(t *testing.T) {
	hosted := NewHosted(&fakeAudioClient{text: "x"}, "", filepath.Join(t.TempDir(), "no-ffmpeg"), nil)
	hosted.limit = 1
	if _, err := hosted.Transcribe(context.Background(), audioFile(t)); !errors.Is(err, services.ErrDependencyMissing) {
		t.Fatalf("expected ErrDependencyMissing, got %v", err)
	}
}

func TestEmptyTranscriptReportsNoSpeech(t *testing.T) {
	local := NewLocal(&fakeWhisper{result: whisper.TranscribeResult{Text: ""}}, "", nil)
	if _, err := local.Transcribe(context.Background(), audioFile(t)); !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech from local backend, got %v", err)
	}

	hosted := NewHosted(&fakeAudioClient{err: fmt.Errorf("llm transcribe: %w", llm.ErrEmptyContent)}, "", "", nil)
	_, err := hosted.Transcribe(context.Background(), audioFile(t))
	if !errors.Is(err, ErrNoSpeech) || !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrNoSpeech from hosted backend, got %v", err)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.Backend = "local"
	cfg.Transcription.Model = "base"
	tr, err := New(&cfg, cfg.PipelineConfig(), nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := tr.(*Local); !ok {
		t.Fatalf("expected *Local, got %T", tr)
	}

	cfg.Transcription.Backend = "api"
	tr, err = New(&cfg, cfg.PipelineConfig(), nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := tr.(*Hosted); !ok {
		t.Fatalf("expected *Hosted, got %T", tr)
	}

	cfg.Transcription.Backend = "local"
	cfg.Transcription.Model = "gigantic"
	if _, err := New(&cfg, cfg.PipelineConfig(), nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestNewUsesPipelineSettingsModel(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.Backend = "local"
	cfg.Transcription.Model = "base"
	settings := cfg.PipelineConfig()
	settings.TranscriptionModel = "tiny"

	tr, err := New(&cfg, settings, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	local, ok := tr.(*Local)
	if !ok {
		t.Fatalf("expected *Local, got %T", tr)
	}
	if got := local.runner.Model(); got != "tiny" {
		t.Fatalf("expected settings model tiny, got %q", got)
	}
}
