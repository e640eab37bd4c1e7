// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package classify

import (
	"testing"
	"time"
)

// =============================================================================
// FENCE BALANCE TESTS
// =============================================================================

func TestFenceCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"no fences", "plain text", 0},
		{"balanced pair", "```go\ncode\n```", 2},
		{"unclosed", "```py\nprint(1)", 1},
		{"two blocks", "```a\nx\n```\ntext\n```b\ny\n```", 4},
		{"indented fence", "  ```\nx\n  ```", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fenceCount(tt.text); got != tt.want {
				t.Errorf("fenceCount(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

// Even number of fence markers: the last block is settled.
func TestEvenFencesSettled(t *testing.T) {
	c := New()
	text := "intro\n```go\nfmt.Println(1)\n```"

	segments := c.Evaluate(text, true, 0)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	code := segments[1]
	if code.Kind != SegmentFence || !code.Closed {
		t.Fatalf("expected closed fence, got %+v", code)
	}
	if !code.Settled {
		t.Error("closed fence must be settled even while streaming")
	}
}

// Odd number of fence markers while streaming: provisional.
func TestOddFencesProvisionalWhileStreaming(t *testing.T) {
	c := New()
	text := "```py\nprint(1)"

	segments := c.Evaluate(text, true, 0)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Settled {
		t.Error("unclosed fence must be provisional while streaming")
	}
	if segments[0].Language != "py" {
		t.Errorf("expected language 'py', got %q", segments[0].Language)
	}
}

func TestUnclosedFenceSettlesAfterDelay(t *testing.T) {
	c := &Classifier{SettleDelay: 100 * time.Millisecond}
	text := "```py\nprint(1)"

	// Terminal, but inside the settle window: still provisional.
	segments := c.Evaluate(text, false, 50*time.Millisecond)
	if segments[0].Settled {
		t.Error("block must stay provisional inside the settle window")
	}

	// Past the settle window: settled.
	segments = c.Evaluate(text, false, 150*time.Millisecond)
	if !segments[0].Settled {
		t.Error("block must settle after the delay elapses")
	}
}

func TestBlocksBeforeLastFenceAreSettled(t *testing.T) {
	c := New()
	text := "```go\ndone()\n```\nmore prose\n```py\nstill typing"

	segments := c.Evaluate(text, true, 0)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if !segments[0].Settled {
		t.Error("closed fence before the trailing fence must be settled")
	}
	if !segments[1].Settled {
		t.Error("prose before the trailing fence must be settled")
	}
	if segments[2].Settled {
		t.Error("trailing unclosed fence must be provisional")
	}
}

func TestTrailingProseProvisionalWhileStreaming(t *testing.T) {
	c := New()

	segments := c.Evaluate("still arriving", true, 0)
	if segments[0].Settled {
		t.Error("trailing prose is provisional while streaming")
	}

	segments = c.Evaluate("all done", false, time.Second)
	if !segments[0].Settled {
		t.Error("prose settles once the turn is terminal")
	}
}

func TestEvaluateEmptyText(t *testing.T) {
	c := New()
	if segments := c.Evaluate("", true, 0); len(segments) != 0 {
		t.Errorf("empty text yields no segments, got %d", len(segments))
	}
}

// =============================================================================
// HTML CANDIDACY TESTS
// =============================================================================

func TestIsHTMLCandidate(t *testing.T) {
	tests := []struct {
		name     string
		language string
		content  string
		want     bool
	}{
		{"html tag", "html", "<div>x</div>", true},
		{"htm tag", "htm", "anything", true},
		{"uppercase tag", "HTML", "x", true},
		{"go tag", "go", "<html>", false},
		{"no tag doctype", "", "<!DOCTYPE html><html></html>", true},
		{"no tag html element", "", "<html lang=\"en\">", true},
		{"no tag comment", "", "<!-- header -->", true},
		{"no tag plain", "", "SELECT * FROM df", false},
		{"no tag leading space", "", "  <!doctype html>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHTMLCandidate(tt.language, tt.content); got != tt.want {
				t.Errorf("IsHTMLCandidate(%q, %q) = %v, want %v", tt.language, tt.content, got, tt.want)
			}
		})
	}
}

// =============================================================================
// SEGMENTATION TESTS
// =============================================================================

func TestSplitKeepsFenceContentVerbatim(t *testing.T) {
	c := New()
	text := "```sql\nSELECT *\nFROM df\n```"

	segments := c.Evaluate(text, false, time.Second)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Content != "SELECT *\nFROM df" {
		t.Errorf("fence content altered: %q", segments[0].Content)
	}
}

func TestTrailingSettled(t *testing.T) {
	c := New()
	if c.trailingSettled("```x\ny", true, 0) {
		t.Error("odd fences while streaming: not settled")
	}
	if !c.trailingSettled("```x\ny\n```", true, 0) {
		t.Error("even fences: settled")
	}
}
