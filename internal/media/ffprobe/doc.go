// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect executes ffprobe and returns the parsed Result; Duration is the
// shortcut the chunker uses to measure downloaded audio before planning
// segments.
package ffprobe
