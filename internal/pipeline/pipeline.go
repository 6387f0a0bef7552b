package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ytsum/internal/acquire"
	"ytsum/internal/chunker"
	"ytsum/internal/config"
	"ytsum/internal/logging"
	"ytsum/internal/services"
	"ytsum/internal/summarize"
	"ytsum/internal/transcribe"
	"ytsum/internal/workspace"
)

// silentTailSeconds bounds the trailing chunk whose empty transcript is
// dropped rather than failing the run. Fractional ffprobe durations can leave
// a final chunk holding only a few frames.
const silentTailSeconds = 1.0

// Config is the explicit configuration an Orchestrator is built with.
type Config = config.PipelineSettings

// Acquirer downloads a video's audio into dir.
type Acquirer interface {
	Acquire(ctx context.Context, rawURL, dir string) (acquire.Audio, error)
}

// Chunker splits audio into ordered chunks inside dir.
type Chunker interface {
	Split(ctx context.Context, path string, chunkLengthSeconds int, dir string) ([]chunker.Chunk, error)
}

// Transcriber converts one audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Summarizer summarizes one transcript.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, part summarize.Part) (string, error)
}

// Combiner merges ordered chunk summaries.
type Combiner interface {
	Combine(ctx context.Context, summaries []string) (string, error)
}

// Deps are the capabilities an Orchestrator drives.
type Deps struct {
	Acquirer    Acquirer
	Chunker     Chunker
	Transcriber Transcriber
	Summarizer  Summarizer
	Combiner    Combiner
	Observer    Observer
	Logger      *slog.Logger
}

// Result is the outcome of a successful run.
type Result struct {
	RunID           string
	SourceURL       string
	VideoID         string
	Title           string
	DurationSeconds float64
	Summary         string
	Chunked         bool
	ChunkCount      int
	Elapsed         time.Duration
}

// Orchestrator runs the acquire → transcribe → summarize pipeline for one URL
// at a time. Runs share no mutable state.
type Orchestrator struct {
	cfg      Config
	workDir  string
	deps     Deps
	logger   *slog.Logger
	observer Observer
}

// New validates cfg and deps and returns an Orchestrator that keeps its
// scratch files under workDir.
func New(cfg Config, workDir string, deps Deps) (*Orchestrator, error) {
	if cfg.ChunkTriggerSeconds <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", fmt.Sprintf("chunk trigger must be positive, got %d", cfg.ChunkTriggerSeconds), nil)
	}
	if cfg.ChunkLengthSeconds <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", fmt.Sprintf("chunk length must be positive, got %d", cfg.ChunkLengthSeconds), nil)
	}
	if strings.TrimSpace(cfg.APICredential) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "language model credential not configured", nil)
	}
	if strings.TrimSpace(workDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "work directory not configured", nil)
	}
	missing := make([]string, 0, 5)
	if deps.Acquirer == nil {
		missing = append(missing, "acquirer")
	}
	if deps.Chunker == nil {
		missing = append(missing, "chunker")
	}
	if deps.Transcriber == nil {
		missing = append(missing, "transcriber")
	}
	if deps.Summarizer == nil {
		missing = append(missing, "summarizer")
	}
	if deps.Combiner == nil {
		missing = append(missing, "combiner")
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "missing capabilities: "+strings.Join(missing, ", "), nil)
	}
	observer := deps.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Orchestrator{
		cfg:      cfg,
		workDir:  workDir,
		deps:     deps,
		logger:   logging.NewComponentLogger(deps.Logger, "pipeline"),
		observer: observer,
	}, nil
}

// Summarize runs the pipeline and returns only the final summary text.
func (o *Orchestrator) Summarize(ctx context.Context, rawURL string) (string, error) {
	result, err := o.Run(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return result.Summary, nil
}

// run carries the per-invocation state of Run.
type run struct {
	o      *Orchestrator
	id     string
	url    string
	state  State
	ws     *workspace.Run
	logger *slog.Logger
	event  Event
}

// Run executes the pipeline for rawURL. Every file created along the way is
// removed before Run returns, whatever the outcome. Failures are returned as
// *services.PipelineError carrying the failed stage.
func (o *Orchestrator) Run(ctx context.Context, rawURL string) (result Result, err error) {
	started := time.Now()
	r := &run{
		o:     o,
		id:    uuid.NewString(),
		url:   strings.TrimSpace(rawURL),
		state: StateIdle,
	}
	ctx = services.WithRunID(ctx, r.id)
	r.logger = logging.WithContext(ctx, o.logger)
	r.event = Event{RunID: r.id}
	r.logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "pipeline_start"),
		logging.String("url", r.url),
		logging.String("transcription_model", o.cfg.TranscriptionModel),
		logging.String("llm_model", o.cfg.LanguageModelID),
	)

	defer func() {
		if r.ws != nil {
			if cleanupErr := r.ws.Close(); cleanupErr != nil {
				r.logger.Warn("run cleanup incomplete", logging.Error(cleanupErr))
			}
		}
		if err != nil {
			failedStage := r.state.Stage()
			r.logger.Error("pipeline failed",
				logging.String(logging.FieldEventType, "pipeline_failure"),
				logging.String("failed_state", string(r.state)),
				logging.String("error_kind", services.Kind(err)),
				logging.Error(err),
			)
			r.emit(StateFailed, 0, 0, err)
			err = services.NewPipelineError(failedStage, r.url, err)
			return
		}
		result.Elapsed = time.Since(started)
		r.logger.Info("pipeline completed",
			logging.String(logging.FieldEventType, "pipeline_complete"),
			logging.Bool("chunked", result.Chunked),
			logging.Int("chunks", result.ChunkCount),
			logging.Duration("elapsed", result.Elapsed),
		)
		r.emit(StateDone, 0, 0, nil)
	}()

	ws, err := workspace.Open(o.workDir, r.id, o.deps.Logger)
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "setup", "workspace", "could not prepare run directory", err)
	}
	r.ws = ws

	r.transition(ctx, StateAcquiring, 0, 0)
	audio, err := o.deps.Acquirer.Acquire(services.WithStage(ctx, StateAcquiring.Stage()), r.url, ws.Dir)
	if err != nil {
		return Result{}, err
	}
	audioFile := ws.Track(audio.Path)
	defer func() { _ = audioFile.Release() }()
	r.event.Title = audio.Title
	r.event.DurationSeconds = audio.DurationSeconds

	result = Result{
		RunID:           r.id,
		SourceURL:       r.url,
		VideoID:         audio.VideoID,
		Title:           audio.Title,
		DurationSeconds: audio.DurationSeconds,
	}
	r.logger.Info("audio acquired",
		logging.String("title", audio.Title),
		logging.Float64("duration_seconds", audio.DurationSeconds),
		logging.Int("chunk_trigger_seconds", o.cfg.ChunkTriggerSeconds),
	)

	if audio.DurationSeconds > float64(o.cfg.ChunkTriggerSeconds) {
		summary, count, err := r.longPath(ctx, audio)
		if err != nil {
			return Result{}, err
		}
		result.Summary = summary
		result.Chunked = true
		result.ChunkCount = count
	} else {
		summary, err := r.shortPath(ctx, audio)
		if err != nil {
			return Result{}, err
		}
		result.Summary = summary
	}

	if err := audioFile.Release(); err != nil {
		r.logger.Warn("audio cleanup failed", logging.Error(err))
	}
	return result, nil
}

func (r *run) shortPath(ctx context.Context, audio acquire.Audio) (string, error) {
	r.transition(ctx, StateTranscribing, 0, 0)
	transcript, err := r.o.deps.Transcriber.Transcribe(services.WithStage(ctx, StateTranscribing.Stage()), audio.Path)
	if err != nil {
		return "", err
	}

	r.transition(ctx, StateSummarizing, 0, 0)
	return r.o.deps.Summarizer.Summarize(services.WithStage(ctx, StateSummarizing.Stage()), transcript, summarize.Part{})
}

func (r *run) longPath(ctx context.Context, audio acquire.Audio) (string, int, error) {
	r.transition(ctx, StateChunking, 0, 0)
	chunks, err := r.o.deps.Chunker.Split(services.WithStage(ctx, StateChunking.Stage()), audio.Path, r.o.cfg.ChunkLengthSeconds, r.ws.Dir)
	if err != nil {
		return "", 0, err
	}
	handles := make([]*workspace.File, len(chunks))
	for i, chunk := range chunks {
		handles[i] = r.ws.Track(chunk.Path)
	}
	defer func() {
		for _, handle := range handles {
			_ = handle.Release()
		}
	}()
	if len(chunks) == 0 {
		return "", 0, services.Wrap(services.ErrTranscription, StateChunking.Stage(), "split", "audio produced no chunks", nil)
	}

	total := len(chunks)
	summaries := make([]string, 0, total)
	for i, chunk := range chunks {
		index := i + 1
		chunkCtx := services.WithChunk(ctx, index, total)

		r.transition(chunkCtx, StateTranscribingChunk, index, total)
		transcript, err := r.o.deps.Transcriber.Transcribe(services.WithStage(chunkCtx, StateTranscribingChunk.Stage()), chunk.Path)
		if err != nil && isSilentTail(chunk, index, total, err) {
			logging.WithContext(chunkCtx, r.o.logger).Info("trailing chunk has no speech; skipping",
				logging.Float64("chunk_seconds", chunk.Span.Length()),
			)
			_ = handles[i].Release()
			break
		}
		if err != nil {
			return "", 0, err
		}
		if err := handles[i].Release(); err != nil {
			r.logger.Warn("chunk cleanup failed", logging.Int(logging.FieldChunkIndex, index), logging.Error(err))
		}

		r.transition(chunkCtx, StateSummarizingChunk, index, total)
		summary, err := r.o.deps.Summarizer.Summarize(services.WithStage(chunkCtx, StateSummarizingChunk.Stage()), transcript, summarize.Part{Index: index, Total: total})
		if err != nil {
			return "", 0, err
		}
		summaries = append(summaries, summary)
	}

	if len(summaries) == 1 {
		return summaries[0], total, nil
	}

	r.transition(ctx, StateCombining, 0, 0)
	combined, err := r.o.deps.Combiner.Combine(services.WithStage(ctx, StateCombining.Stage()), summaries)
	if err != nil {
		return "", 0, err
	}
	return combined, total, nil
}

// isSilentTail reports whether err is an empty transcript for a final chunk
// shorter than silentTailSeconds that follows at least one other chunk.
func isSilentTail(chunk chunker.Chunk, index, total int, err error) bool {
	return index == total && total > 1 &&
		chunk.Span.Length() < silentTailSeconds &&
		errors.Is(err, transcribe.ErrNoSpeech)
}

func (r *run) transition(ctx context.Context, next State, index, total int) {
	r.state = next
	logger := logging.WithContext(ctx, r.o.logger)
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("state", string(next)),
	)
	r.emit(next, index, total, nil)
}

func (r *run) emit(state State, index, total int, err error) {
	event := r.event
	event.State = state
	event.ChunkIndex = index
	event.ChunkTotal = total
	event.Err = err
	r.o.observer.OnEvent(event)
}
