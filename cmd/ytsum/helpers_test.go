package main

import (
	"strings"
	"testing"
	"time"

	"ytsum/internal/pipeline"
)

func mustOldTime(t *testing.T) time.Time {
	t.Helper()
	return time.Now().Add(-72 * time.Hour)
}

func TestFormatClock(t *testing.T) {
	cases := map[float64]string{
		0:      "0:00",
		59.6:   "1:00",
		600:    "10:00",
		5400:   "1:30:00",
		3725.2: "1:02:05",
	}
	for in, want := range cases {
		if got := formatClock(in); got != want {
			t.Errorf("formatClock(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	if maskSecret("") != "" || maskSecret("short") != "****" {
		t.Fatal("unexpected short mask")
	}
	if got := maskSecret("abcdefghijkl"); got != "abcd****ijkl" {
		t.Fatalf("unexpected mask %q", got)
	}
}

func TestMarkdownDocument(t *testing.T) {
	doc := markdownDocument(pipeline.Result{Title: "", Summary: "  body  "})
	if !strings.HasPrefix(doc, "# Video summary\n\nbody\n") {
		t.Fatalf("unexpected document %q", doc)
	}
}

func TestDescribeEvent(t *testing.T) {
	got := describeEvent(pipeline.Event{State: pipeline.StateTranscribingChunk, ChunkIndex: 2, ChunkTotal: 3})
	if got != "Transcribing chunk 2/3" {
		t.Fatalf("unexpected description %q", got)
	}
	if describeEvent(pipeline.Event{State: pipeline.StateCombining}) != "Combining summaries" {
		t.Fatal("unexpected combine description")
	}
}

func TestProgressObserverHandlesLifecycle(t *testing.T) {
	var buf strings.Builder
	p := newProgressObserver(&buf)
	p.OnEvent(pipeline.Event{State: pipeline.StateAcquiring})
	p.downloadProgress(512, 1024)
	p.downloadProgress(1024, 1024)
	p.OnEvent(pipeline.Event{State: pipeline.StateTranscribing})
	p.OnEvent(pipeline.Event{State: pipeline.StateDone})
	p.close()
	if p.bar != nil {
		t.Fatal("bar should be released after close")
	}
}
