// Package logging assembles structured slog loggers used across ytsum.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, stages, and chunk positions. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
//
// Console output is written to stderr; stdout belongs to the summary.
package logging
