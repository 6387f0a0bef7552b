package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ytsum/internal/acquire"
	"ytsum/internal/chunker"
	"ytsum/internal/services"
	"ytsum/internal/summarize"
	"ytsum/internal/testsupport"
	"ytsum/internal/transcribe"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, call := range r.list() {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

type fakeAcquirer struct {
	t        testing.TB
	rec      *recorder
	duration float64
	err      error
}

func (f *fakeAcquirer) Acquire(ctx context.Context, rawURL, dir string) (acquire.Audio, error) {
	f.rec.add("acquire %s", rawURL)
	if f.err != nil {
		return acquire.Audio{}, f.err
	}
	path := filepath.Join(dir, "abc123.mp3")
	testsupport.WriteFile(f.t, path, 4096)
	return acquire.Audio{
		SourceURL:       rawURL,
		Path:            path,
		Title:           "Lecture",
		VideoID:         "abc123",
		DurationSeconds: f.duration,
	}, nil
}

type fakeChunker struct {
	t   testing.TB
	rec *recorder
	err error
}

func (f *fakeChunker) Split(ctx context.Context, path string, length int, dir string) ([]chunker.Chunk, error) {
	f.rec.add("split %d", length)
	if f.err != nil {
		return nil, f.err
	}
	// The test stores the acquired duration in ctx.
	total := durationFromContext(ctx)
	spans := chunker.Plan(total, length)
	chunks := make([]chunker.Chunk, 0, len(spans))
	for i, span := range spans {
		chunkPath := chunker.ChunkPath(path, dir, i)
		testsupport.WriteFile(f.t, chunkPath, 1024)
		chunks = append(chunks, chunker.Chunk{ParentPath: path, Index: i, Path: chunkPath, Span: span})
	}
	return chunks, nil
}

type durationKey struct{}

func durationFromContext(ctx context.Context) float64 {
	v, _ := ctx.Value(durationKey{}).(float64)
	return v
}

type fakeTranscriber struct {
	rec    *recorder
	failAt int
	calls  int
	// silent names a file that yields an empty transcript.
	silent string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	f.calls++
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("transcribe input missing: %w", err)
	}
	f.rec.add("transcribe %s", filepath.Base(path))
	if f.failAt > 0 && f.calls == f.failAt {
		return "", services.Wrap(services.ErrTranscription, "transcribe", "local", "whisper failed", errors.New("boom"))
	}
	if f.silent != "" && filepath.Base(path) == f.silent {
		return "", services.Wrap(services.ErrTranscription, "transcribe", "whisper", "empty transcript", transcribe.ErrNoSpeech)
	}
	return "transcript of " + filepath.Base(path), nil
}

type fakeSummarizer struct {
	rec    *recorder
	failAt int
	calls  int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, transcript string, part summarize.Part) (string, error) {
	f.calls++
	if part.IsZero() {
		f.rec.add("summarize")
	} else {
		f.rec.add("summarize %s", part.Label())
	}
	if f.failAt > 0 && f.calls == f.failAt {
		return "", services.Wrap(services.ErrSummarization, "summarize", "complete", "llm request failed", errors.New("http 503"))
	}
	if part.IsZero() {
		return "summary(" + transcript + ")", nil
	}
	return fmt.Sprintf("summary %d", part.Index), nil
}

type fakeCombiner struct {
	rec   *recorder
	input []string
	err   error
}

func (f *fakeCombiner) Combine(ctx context.Context, summaries []string) (string, error) {
	f.rec.add("combine %d", len(summaries))
	f.input = append([]string(nil), summaries...)
	if f.err != nil {
		return "", f.err
	}
	return "combined", nil
}

type harness struct {
	rec         *recorder
	workDir     string
	acquirer    *fakeAcquirer
	chunker     *fakeChunker
	transcriber *fakeTranscriber
	summarizer  *fakeSummarizer
	combiner    *fakeCombiner
	events      []Event
	orch        *Orchestrator
}

func newHarness(t *testing.T, duration float64, trigger, length int) *harness {
	t.Helper()
	rec := &recorder{}
	h := &harness{
		rec:         rec,
		workDir:     t.TempDir(),
		acquirer:    &fakeAcquirer{t: t, rec: rec, duration: duration},
		chunker:     &fakeChunker{t: t, rec: rec},
		transcriber: &fakeTranscriber{rec: rec},
		summarizer:  &fakeSummarizer{rec: rec},
		combiner:    &fakeCombiner{rec: rec},
	}
	orch, err := New(Config{
		TranscriptionModel:  "medium",
		ChunkTriggerSeconds: trigger,
		ChunkLengthSeconds:  length,
		LanguageModelID:     "llama-3.1-8b-instant",
		APICredential:       "key",
	}, h.workDir, Deps{
		Acquirer:    h.acquirer,
		Chunker:     h.chunker,
		Transcriber: h.transcriber,
		Summarizer:  h.summarizer,
		Combiner:    h.combiner,
		Observer:    ObserverFunc(func(e Event) { h.events = append(h.events, e) }),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.orch = orch
	return h
}

func (h *harness) run(t *testing.T, url string) (Result, error) {
	t.Helper()
	ctx := context.WithValue(context.Background(), durationKey{}, h.acquirer.duration)
	return h.orch.Run(ctx, url)
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		t.Fatalf("expected %s to be empty, found %v", dir, names)
	}
}

func TestRunShortPath(t *testing.T) {
	h := newHarness(t, 600, 1800, 1800)

	result, err := h.run(t, "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Summary != "summary(transcript of abc123.mp3)" {
		t.Fatalf("unexpected summary %q", result.Summary)
	}
	if result.Chunked || result.ChunkCount != 0 {
		t.Fatalf("short path should not chunk: %+v", result)
	}
	if h.rec.count("split") != 0 || h.rec.count("combine") != 0 {
		t.Fatalf("short path invoked chunker or combiner: %v", h.rec.list())
	}
	if h.rec.count("summarize") != 1 {
		t.Fatalf("expected one summarize call, got %v", h.rec.list())
	}
	assertEmptyDir(t, h.workDir)
}

func TestRunAtTriggerStaysShort(t *testing.T) {
	h := newHarness(t, 1800, 1800, 600)

	if _, err := h.run(t, "https://youtu.be/abc123"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.rec.count("split") != 0 {
		t.Fatalf("duration equal to trigger must take the short path: %v", h.rec.list())
	}
}

func TestRunLongPath(t *testing.T) {
	h := newHarness(t, 5400, 1800, 1800)

	result, err := h.run(t, "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{
		"acquire https://youtu.be/abc123",
		"split 1800",
		"transcribe abc123.mp3_chunk_0.mp3",
		"summarize [Part 1/3]",
		"transcribe abc123.mp3_chunk_1.mp3",
		"summarize [Part 2/3]",
		"transcribe abc123.mp3_chunk_2.mp3",
		"summarize [Part 3/3]",
		"combine 3",
	}
	got := h.rec.list()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("call order mismatch\n got: %v\nwant: %v", got, want)
	}
	if result.Summary != "combined" || !result.Chunked || result.ChunkCount != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
	if strings.Join(h.combiner.input, ",") != "summary 1,summary 2,summary 3" {
		t.Fatalf("combiner received %v", h.combiner.input)
	}
	assertEmptyDir(t, h.workDir)
}

func TestRunSingleChunkSkipsCombine(t *testing.T) {
	h := newHarness(t, 1500, 1200, 1800)

	result, err := h.run(t, "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.rec.count("combine") != 0 {
		t.Fatalf("single chunk must not be combined: %v", h.rec.list())
	}
	if result.Summary != "summary 1" || result.ChunkCount != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunAcquisitionFailure(t *testing.T) {
	h := newHarness(t, 600, 1800, 1800)
	h.acquirer.err = services.Wrap(services.ErrAcquisition, "acquire", "validate", "invalid url", nil)

	_, err := h.run(t, "not a url")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected ErrAcquisition, got %v", err)
	}
	var pipeErr *services.PipelineError
	if !errors.As(err, &pipeErr) {
		t.Fatalf("expected PipelineError, got %T", err)
	}
	if pipeErr.Stage != "acquire" || pipeErr.Input != "not a url" {
		t.Fatalf("unexpected pipeline error %+v", pipeErr)
	}
	if calls := h.rec.list(); len(calls) != 1 {
		t.Fatalf("nothing beyond acquire should run: %v", calls)
	}
	assertEmptyDir(t, h.workDir)
}

func TestRunChunkFailureCleansUp(t *testing.T) {
	h := newHarness(t, 5400, 1800, 1800)
	h.transcriber.failAt = 2

	_, err := h.run(t, "https://youtu.be/abc123")
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
	var pipeErr *services.PipelineError
	if !errors.As(err, &pipeErr) || pipeErr.Stage != "transcribe" {
		t.Fatalf("expected transcribe PipelineError, got %v", err)
	}
	if h.rec.count("combine") != 0 || h.rec.count("summarize") != 1 {
		t.Fatalf("unexpected calls after failure: %v", h.rec.list())
	}
	assertEmptyDir(t, h.workDir)

	last := h.events[len(h.events)-1]
	if last.State != StateFailed || last.Err == nil {
		t.Fatalf("expected final failed event, got %+v", last)
	}
}

func TestRunLaterStageFailuresCleanUp(t *testing.T) {
	tests := []struct {
		name      string
		duration  float64
		setup     func(h *harness)
		wantStage string
		wantKind  error
		wantCalls []string
	}{
		{
			name:     "split",
			duration: 5400,
			setup: func(h *harness) {
				h.chunker.err = services.Wrap(services.ErrTranscription, "chunk", "split", "ffmpeg failed", errors.New("exit 1"))
			},
			wantStage: "chunk",
			wantKind:  services.ErrTranscription,
			wantCalls: []string{"acquire https://youtu.be/abc123", "split 1800"},
		},
		{
			name:      "short path summarize",
			duration:  600,
			setup:     func(h *harness) { h.summarizer.failAt = 1 },
			wantStage: "summarize",
			wantKind:  services.ErrSummarization,
			wantCalls: []string{"acquire https://youtu.be/abc123", "transcribe abc123.mp3", "summarize"},
		},
		{
			name:      "chunk summarize",
			duration:  5400,
			setup:     func(h *harness) { h.summarizer.failAt = 2 },
			wantStage: "summarize",
			wantKind:  services.ErrSummarization,
			wantCalls: []string{
				"acquire https://youtu.be/abc123",
				"split 1800",
				"transcribe abc123.mp3_chunk_0.mp3",
				"summarize [Part 1/3]",
				"transcribe abc123.mp3_chunk_1.mp3",
				"summarize [Part 2/3]",
			},
		},
		{
			name:     "combine",
			duration: 5400,
			setup: func(h *harness) {
				h.combiner.err = services.Wrap(services.ErrSummarization, "combine", "complete", "llm request failed", errors.New("timeout"))
			},
			wantStage: "combine",
			wantKind:  services.ErrSummarization,
			wantCalls: []string{
				"acquire https://youtu.be/abc123",
				"split 1800",
				"transcribe abc123.mp3_chunk_0.mp3",
				"summarize [Part 1/3]",
				"transcribe abc123.mp3_chunk_1.mp3",
				"summarize [Part 2/3]",
				"transcribe abc123.mp3_chunk_2.mp3",
				"summarize [Part 3/3]",
				"combine 3",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.duration, 1800, 1800)
			tt.setup(h)

			result, err := h.run(t, "https://youtu.be/abc123")
			if err == nil {
				t.Fatalf("expected error, got result %+v", result)
			}
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("expected %v, got %v", tt.wantKind, err)
			}
			var pipeErr *services.PipelineError
			if !errors.As(err, &pipeErr) || pipeErr.Stage != tt.wantStage {
				t.Fatalf("expected %s PipelineError, got %v", tt.wantStage, err)
			}
			if result.Summary != "" {
				t.Fatalf("failed run returned partial summary %q", result.Summary)
			}
			if got := h.rec.list(); strings.Join(got, "\n") != strings.Join(tt.wantCalls, "\n") {
				t.Fatalf("call mismatch\n got: %v\nwant: %v", got, tt.wantCalls)
			}
			assertEmptyDir(t, h.workDir)

			last := h.events[len(h.events)-1]
			if last.State != StateFailed || last.Err == nil {
				t.Fatalf("expected final failed event, got %+v", last)
			}
		})
	}
}

func TestRunFractionalDurationKeepsSpokenTail(t *testing.T) {
	h := newHarness(t, 3600.5, 1800, 1800)

	result, err := h.run(t, "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ChunkCount != 3 || h.rec.count("summarize [Part 3/3]") != 1 {
		t.Fatalf("expected the short tail to be summarized as part 3: %v", h.rec.list())
	}
	if strings.Join(h.combiner.input, ",") != "summary 1,summary 2,summary 3" {
		t.Fatalf("combiner received %v", h.combiner.input)
	}
	assertEmptyDir(t, h.workDir)
}

func TestRunSkipsSilentSubSecondTail(t *testing.T) {
	h := newHarness(t, 3600.5, 1800, 1800)
	h.transcriber.silent = "abc123.mp3_chunk_2.mp3"

	result, err := h.run(t, "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ChunkCount != 3 || result.Summary != "combined" {
		t.Fatalf("unexpected result %+v", result)
	}
	if h.rec.count("summarize [Part 3/3]") != 0 {
		t.Fatalf("silent tail must not be summarized: %v", h.rec.list())
	}
	if strings.Join(h.combiner.input, ",") != "summary 1,summary 2" {
		t.Fatalf("combiner received %v", h.combiner.input)
	}
	assertEmptyDir(t, h.workDir)
}

func TestRunSilentFullChunkFails(t *testing.T) {
	h := newHarness(t, 3600.5, 1800, 1800)
	h.transcriber.silent = "abc123.mp3_chunk_1.mp3"

	_, err := h.run(t, "https://youtu.be/abc123")
	if !errors.Is(err, transcribe.ErrNoSpeech) || !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected no-speech transcription error, got %v", err)
	}
	assertEmptyDir(t, h.workDir)
}

func TestRunObserverEvents(t *testing.T) {
	h := newHarness(t, 3600, 1800, 1800)

	if _, err := h.run(t, "https://youtu.be/abc123"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var states []string
	for _, e := range h.events {
		label := string(e.State)
		if e.ChunkTotal > 0 {
			label = fmt.Sprintf("%s %d/%d", e.State, e.ChunkIndex, e.ChunkTotal)
		}
		states = append(states, label)
	}
	want := []string{
		"acquiring",
		"chunking",
		"transcribing_chunk 1/2",
		"summarizing_chunk 1/2",
		"transcribing_chunk 2/2",
		"summarizing_chunk 2/2",
		"combining",
		"done",
	}
	if strings.Join(states, ",") != strings.Join(want, ",") {
		t.Fatalf("events mismatch\n got: %v\nwant: %v", states, want)
	}
	for _, e := range h.events[1:] {
		if e.Title != "Lecture" || math.Abs(e.DurationSeconds-3600) > 1e-9 {
			t.Fatalf("event missing metadata: %+v", e)
		}
	}
}

func TestRunChunkReleasedAfterTranscript(t *testing.T) {
	h := newHarness(t, 3600, 1800, 1800)
	var seen []string
	h.orch.observer = ObserverFunc(func(e Event) {
		if e.State != StateSummarizingChunk {
			return
		}
		entries, _ := os.ReadDir(filepath.Join(h.workDir, e.RunID))
		for _, entry := range entries {
			if strings.Contains(entry.Name(), fmt.Sprintf("_chunk_%d", e.ChunkIndex-1)) {
				seen = append(seen, entry.Name())
			}
		}
	})

	if _, err := h.run(t, "https://youtu.be/abc123"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 0 {
		t.Fatalf("chunk files survived their transcription: %v", seen)
	}
}

func TestSummarizeReturnsText(t *testing.T) {
	h := newHarness(t, 60, 1800, 1800)
	ctx := context.WithValue(context.Background(), durationKey{}, 60.0)

	text, err := h.orch.Summarize(ctx, "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.HasPrefix(text, "summary(") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	deps := Deps{
		Acquirer:    &fakeAcquirer{t: t, rec: &recorder{}},
		Chunker:     &fakeChunker{t: t, rec: &recorder{}},
		Transcriber: &fakeTranscriber{rec: &recorder{}},
		Summarizer:  &fakeSummarizer{rec: &recorder{}},
		Combiner:    &fakeCombiner{rec: &recorder{}},
	}
	tests := []struct {
		name    string
		cfg     Config
		workDir string
		deps    Deps
	}{
		{"zero trigger", Config{ChunkLengthSeconds: 10, APICredential: "k"}, t.TempDir(), deps},
		{"zero length", Config{ChunkTriggerSeconds: 10, APICredential: "k"}, t.TempDir(), deps},
		{"no credential", Config{ChunkTriggerSeconds: 10, ChunkLengthSeconds: 10}, t.TempDir(), deps},
		{"no work dir", Config{ChunkTriggerSeconds: 10, ChunkLengthSeconds: 10, APICredential: "k"}, " ", deps},
		{"missing deps", Config{ChunkTriggerSeconds: 10, ChunkLengthSeconds: 10, APICredential: "k"}, t.TempDir(), Deps{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, tt.workDir, tt.deps)
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestStateHelpers(t *testing.T) {
	if !StateDone.IsTerminal() || !StateFailed.IsTerminal() || StateCombining.IsTerminal() {
		t.Fatal("terminal states misreported")
	}
	if StateTranscribingChunk.Stage() != "transcribe" || StateCombining.Stage() != "combine" {
		t.Fatal("unexpected stage labels")
	}
}
