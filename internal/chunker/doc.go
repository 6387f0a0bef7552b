// Package chunker splits long audio into fixed-length pieces.
//
// Plan is the pure arithmetic: ceil(D/L) contiguous spans covering the whole
// duration. Split probes the real duration with ffprobe and cuts each span
// with ffmpeg stream copy into <audio>_chunk_<i>.mp3 beside the caller's
// other run files.
package chunker
