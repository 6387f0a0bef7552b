// Package llm provides an OpenAI-compatible client (Groq by default) for
// summary generation and hosted Whisper transcription.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send system/user prompts, receive the model's text.
// Client.Transcribe: upload an audio file, receive its transcript.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, network timeouts, and empty
// content with exponential backoff (base 1s, max 10s, 3 attempts total by
// default). A Retry-After header replaces the computed delay. Context
// cancellation aborts retries immediately.
//
// # Pacing
//
// When Config.RequestsPerMinute is positive every attempt waits on a token
// bucket limiter before it is sent.
package llm
