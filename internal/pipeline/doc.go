// Package pipeline orchestrates one summary run: acquire the audio, decide
// between the short and the chunked path, transcribe and summarize, and
// combine chunk summaries when there is more than one.
//
// The orchestrator owns every scratch file through a workspace.Run, so audio
// and chunk files are gone by the time Run returns, on success or failure.
// Capabilities are injected through small interfaces; the command layer wires
// the real implementations and tests use fakes.
//
// Progress is reported to an Observer as State transitions. Observers never
// see partial summaries.
package pipeline
