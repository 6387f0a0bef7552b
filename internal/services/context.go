package services

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	stageKey      contextKey = "stage"
	chunkIndexKey contextKey = "chunk_index"
	chunkTotalKey contextKey = "chunk_total"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithChunk annotates context with the 1-based chunk position being processed.
func WithChunk(ctx context.Context, index, total int) context.Context {
	if total <= 0 {
		return ctx
	}
	ctx = context.WithValue(ctx, chunkIndexKey, index)
	return context.WithValue(ctx, chunkTotalKey, total)
}

// ChunkFromContext returns the chunk position if present.
func ChunkFromContext(ctx context.Context) (index, total int, ok bool) {
	index, okIndex := ctx.Value(chunkIndexKey).(int)
	total, okTotal := ctx.Value(chunkTotalKey).(int)
	if !okIndex || !okTotal || total <= 0 {
		return 0, 0, false
	}
	return index, total, true
}
