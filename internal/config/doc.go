// Package config loads, normalizes, and validates ytsum configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a .env file from the working directory,
// and honours environment fallbacks such as GROQ_API_KEY, GROQ_MODEL,
// WHISPER_MODEL and MAX_CHUNK_LENGTH. File values win over the environment.
//
// The chunk trigger (when a video is long enough to split) and the chunk
// length (how long each piece is) are separate settings and are never
// derived from one another.
package config
