// Package acquire downloads the audio track of a video URL as MP3.
//
// Two backends exist. Native resolves the video with github.com/kkdai/youtube,
// streams the best audio-only format and transcodes it with ffmpeg. YtDlp
// delegates download and conversion to yt-dlp. Both write exactly one file
// into the caller's directory and fill in the duration with ffprobe when the
// source does not report one.
//
// Every failure is tagged with services.ErrAcquisition, or
// services.ErrDependencyMissing when a required binary is absent.
package acquire
