// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package classify decides whether trailing content blocks of a turn
// are safe to render with full structured formatting ("settled") or
// must be held as raw text ("provisional") while the stream is still
// arriving.
package classify

import (
	"strings"
	"time"
)

// DefaultSettleDelay is how long after a turn reaches a terminal status
// an unclosed trailing block stays provisional. The delay avoids
// reformatting flicker at the exact instant streaming ends.
const DefaultSettleDelay = 250 * time.Millisecond

// fenceMarker delimits code blocks.
const fenceMarker = "```"

// =============================================================================
// SEGMENTS
// =============================================================================

// SegmentKind discriminates prose from fenced code.
type SegmentKind int

const (
	SegmentProse SegmentKind = iota
	SegmentFence
)

// Segment is one contiguous block of turn text with its classification.
type Segment struct {
	Kind     SegmentKind
	Language string // fence info string, empty for prose
	Content  string
	Closed   bool // fence has a matching closing marker
	Settled  bool // safe to render with full formatting
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classifier evaluates turn text. The zero value uses DefaultSettleDelay.
type Classifier struct {
	SettleDelay time.Duration
}

// New creates a classifier with the default settle delay.
func New() *Classifier {
	return &Classifier{SettleDelay: DefaultSettleDelay}
}

// Evaluate splits text into prose and fenced segments and classifies
// each one. streaming is whether the turn is still receiving events;
// sinceTerminal is how long ago the turn reached a terminal status
// (ignored while streaming).
//
// Classification rules:
//   - a closed fence is settled: its content can no longer change
//   - an unclosed trailing fence is provisional while streaming
//   - after terminal status, an unclosed fence settles once the settle
//     delay has elapsed
//   - trailing prose is provisional while streaming, settled otherwise
func (c *Classifier) Evaluate(text string, streaming bool, sinceTerminal time.Duration) []Segment {
	delay := c.SettleDelay
	if delay == 0 {
		delay = DefaultSettleDelay
	}

	segments := split(text)
	for i := range segments {
		seg := &segments[i]
		last := i == len(segments)-1

		switch {
		case seg.Kind == SegmentFence && seg.Closed:
			seg.Settled = true
		case seg.Kind == SegmentFence:
			// Unclosed fence: necessarily the trailing segment.
			seg.Settled = !streaming && sinceTerminal >= delay
		case last:
			seg.Settled = !streaming
		default:
			seg.Settled = true
		}
	}
	return segments
}

// trailingSettled reports whether the final block of text is settled.
func (c *Classifier) trailingSettled(text string, streaming bool, sinceTerminal time.Duration) bool {
	segments := c.Evaluate(text, streaming, sinceTerminal)
	if len(segments) == 0 {
		return !streaming
	}
	return segments[len(segments)-1].Settled
}

// fenceCount returns the number of fence markers in the text. An even
// count means every opening fence has a matching closing fence.
func fenceCount(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), fenceMarker) {
			n++
		}
	}
	return n
}

// =============================================================================
// HTML EMBED CANDIDACY
// =============================================================================

// htmlLanguages are the fence info strings treated as embeddable HTML.
var htmlLanguages = map[string]bool{
	"html":  true,
	"htm":   true,
	"xhtml": true,
}

// IsHTMLCandidate reports whether a fenced block should be treated as
// embeddable HTML: either its declared language tag is html-like, or,
// absent a tag, its content starts with an HTML document or comment
// marker. Candidates are only actually embedded once settled; while
// provisional they render as plain code.
func IsHTMLCandidate(language, content string) bool {
	if language != "" {
		return htmlLanguages[strings.ToLower(language)]
	}
	head := strings.TrimSpace(content)
	lower := strings.ToLower(head)
	return strings.HasPrefix(lower, "<!doctype") ||
		strings.HasPrefix(lower, "<html") ||
		strings.HasPrefix(head, "<!--")
}

// =============================================================================
// SEGMENTATION
// =============================================================================

// split walks the text line by line, toggling in and out of fenced
// blocks on fence markers.
func split(text string) []Segment {
	if text == "" {
		return nil
	}

	var segments []Segment
	var buf []string
	var language string
	inFence := false

	flush := func(kind SegmentKind, closed bool) {
		content := strings.Join(buf, "\n")
		if kind == SegmentProse && strings.TrimSpace(content) == "" {
			buf = nil
			return
		}
		segments = append(segments, Segment{
			Kind:     kind,
			Language: language,
			Content:  content,
			Closed:   closed,
		})
		buf = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), fenceMarker) {
			if inFence {
				flush(SegmentFence, true)
				language = ""
				inFence = false
			} else {
				flush(SegmentProse, false)
				language = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fenceMarker))
				inFence = true
			}
			continue
		}
		buf = append(buf, line)
	}

	if inFence {
		flush(SegmentFence, false)
	} else {
		flush(SegmentProse, false)
	}
	return segments
}
