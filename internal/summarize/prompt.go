package summarize

import (
	"fmt"
	"strings"
)

// SystemPrompt is sent as the system message of every summary request.
const SystemPrompt = "You are a helpful educational assistant."

// Section headers the model is asked to produce, in order.
var Sections = []string{
	"🔹 Video Summary",
	"📘 Key Concepts Explained",
	"🧮 Important Formulas (with explanations)",
	"💡 Tips & Examples",
	"✅ Final Learnings / Takeaways",
}

// Part identifies a chunk summary within a long video. Index is 1-based; the
// zero value means the transcript covers the whole video.
type Part struct {
	Index int
	Total int
}

// IsZero reports whether p carries no chunk annotation.
func (p Part) IsZero() bool {
	return p.Index == 0 && p.Total == 0
}

// Label renders the chunk annotation, e.g. "[Part 2/3]".
func (p Part) Label() string {
	if p.IsZero() {
		return ""
	}
	return fmt.Sprintf("[Part %d/%d]", p.Index, p.Total)
}

// BuildSummaryPrompt renders the user message for a summary request.
func BuildSummaryPrompt(transcript string, part Part) string {
	var b strings.Builder
	b.WriteString("You are an intelligent educational summarizer. Here's a transcript of a YouTube video")
	if label := part.Label(); label != "" {
		b.WriteString("\n")
		b.WriteString(label)
	}
	b.WriteString(". Your task is to:\n\n")
	b.WriteString("1. Provide a concise summary.\n")
	b.WriteString("2. Explain key concepts.\n")
	b.WriteString("3. Extract and explain all formulas clearly.\n")
	b.WriteString("4. Highlight examples or tips.\n")
	b.WriteString("5. List final takeaways for learners.\n\n")
	b.WriteString("Format:\n")
	for _, section := range Sections {
		b.WriteString(section)
		b.WriteString("\n")
	}
	b.WriteString("\nTranscript:\n")
	b.WriteString(transcript)
	return b.String()
}

// BuildCombinePrompt lists every summary as "=== Part k ===" in input order
// after the merge instructions.
func BuildCombinePrompt(summaries []string) string {
	var b strings.Builder
	b.WriteString("You are an intelligent educational summarizer. Below are summaries of different parts of a YouTube video.\n")
	b.WriteString("Please combine them into a coherent, comprehensive summary that:\n\n")
	b.WriteString("1. Eliminates redundancies\n")
	b.WriteString("2. Maintains a logical flow\n")
	b.WriteString("3. Preserves all important information\n")
	b.WriteString("4. Provides a unified summary of the entire video\n\n")
	b.WriteString("Summaries to combine:")
	for i, summary := range summaries {
		fmt.Fprintf(&b, "\n\n=== Part %d ===\n%s", i+1, summary)
	}
	return b.String()
}
