// Package transcribe turns audio files into plain-text transcripts.
//
// Local runs openai-whisper through uvx; Hosted uploads to an
// OpenAI-compatible Whisper endpoint. Both report failures, including audio
// that yields no speech, as services.ErrTranscription.
package transcribe
