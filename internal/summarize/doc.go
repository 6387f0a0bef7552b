// Package summarize turns transcripts into structured educational summaries
// and merges chunk summaries of long videos.
//
// Every request uses the same system message and asks for five fixed
// sections (see Sections). Combine numbers its inputs "=== Part k ===" in
// the order given and never reorders them.
package summarize
