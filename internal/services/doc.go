// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and chunk positions
//     for logging.
//   - The error taxonomy (acquisition, dependency, transcription,
//     summarization) plus the Wrap helper and PipelineError so every failure
//     reaching the caller names the stage and input that produced it.
//
// Subpackages hold the clients for external tools: llm for the hosted
// language model and whisper for local speech-to-text.
package services
