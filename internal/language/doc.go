// Package language normalizes the transcription language setting.
//
// Users may write "english", "eng" or "en" in the config; both the local
// Whisper CLI and the hosted transcription endpoint receive the ISO 639-1 code.
package language
