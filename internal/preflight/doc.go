// Package preflight provides readiness checks for the external tools,
// filesystem paths and services a summary run depends on.
//
// These checks run in two contexts:
//   - "ytsum summarize" calls RequireRunnable before downloading anything so a
//     missing ffmpeg or yt-dlp fails in seconds rather than after a download.
//   - "ytsum status" renders RunAll, optionally pinging the LLM endpoint.
package preflight
