// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render projects a transcript turn plus classifier decisions
// into an ordered list of typed display blocks. The projection is pure:
// identical input yields byte-identical output, so callers may re-run
// it on every stream update.
package render

import (
	"time"

	"github.com/jeranaias/quill-tui/internal/classify"
	"github.com/jeranaias/quill-tui/internal/transcript"
)

// =============================================================================
// DISPLAY BLOCKS
// =============================================================================

// BlockKind identifies the type of a display block.
type BlockKind int

const (
	// BlockParagraph is inline-markup prose.
	BlockParagraph BlockKind = iota

	// BlockCode is a fenced code block. While Provisional it renders
	// as raw monospaced text with a "still typing" indicator; settled
	// blocks get full syntax highlighting.
	BlockCode

	// BlockHTML is a settled embeddable-HTML block, rendered in an
	// isolated sandboxed view by the presentation layer.
	BlockHTML

	// BlockAnnotation is a reasoning step or tool invocation summary.
	BlockAnnotation
)

// AnnotationKind distinguishes annotation flavors.
type AnnotationKind int

const (
	AnnotationReasoning AnnotationKind = iota
	AnnotationToolCall
)

// Block is one render-ready unit of turn output.
type Block struct {
	Kind BlockKind

	// Text is the content for paragraphs and annotations.
	Text string

	// Code / HTML fields.
	Language    string
	Content     string
	Provisional bool

	// Annotation fields.
	Annotation AnnotationKind
	ToolName   string
	ToolFailed bool
}

// =============================================================================
// PROJECTION
// =============================================================================

// Project maps one turn and its classified segments to display blocks.
//
// Sub-item annotations are appended after the text blocks in their
// recorded arrival order, matching the upstream behavior of rendering
// completed non-text items below the text rather than interleaving
// them chronologically.
func Project(turn *transcript.Turn, segments []classify.Segment) []Block {
	var blocks []Block

	for _, seg := range segments {
		blocks = append(blocks, projectSegment(seg))
	}

	for _, item := range turn.Items {
		blocks = append(blocks, projectItem(item))
	}

	return blocks
}

// ProjectText is a convenience that classifies and projects in one
// step using the turn's current state.
func ProjectText(turn *transcript.Turn, c *classify.Classifier, sinceTerminal time.Duration) []Block {
	segments := c.Evaluate(turn.Text(), turn.Streaming(), sinceTerminal)
	return Project(turn, segments)
}

// projectSegment maps one classified segment to a block.
func projectSegment(seg classify.Segment) Block {
	if seg.Kind == classify.SegmentProse {
		return Block{
			Kind:        BlockParagraph,
			Text:        seg.Content,
			Provisional: !seg.Settled,
		}
	}

	// Embeddable HTML only once settled; provisional candidates stay
	// plain code so incomplete markup is never rendered live.
	if seg.Settled && classify.IsHTMLCandidate(seg.Language, seg.Content) {
		return Block{
			Kind:    BlockHTML,
			Content: seg.Content,
		}
	}

	return Block{
		Kind:        BlockCode,
		Language:    seg.Language,
		Content:     seg.Content,
		Provisional: !seg.Settled,
	}
}

// projectItem maps one sub-item to an annotation block.
func projectItem(item *transcript.Item) Block {
	switch item.Kind {
	case transcript.ItemReasoning:
		return Block{
			Kind:       BlockAnnotation,
			Annotation: AnnotationReasoning,
			Text:       item.Content,
		}
	default:
		return Block{
			Kind:       BlockAnnotation,
			Annotation: AnnotationToolCall,
			Text:       item.Summary(),
			ToolName:   item.Tool,
			ToolFailed: item.Resolved && item.IsError,
		}
	}
}
