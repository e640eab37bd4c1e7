// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"reflect"
	"testing"
	"time"

	"github.com/jeranaias/quill-tui/internal/classify"
	"github.com/jeranaias/quill-tui/internal/protocol"
	"github.com/jeranaias/quill-tui/internal/transcript"
)

func finishedTurn(t *testing.T, events ...protocol.Event) *transcript.Turn {
	t.Helper()
	turn := transcript.NewAssistantTurn()
	for _, ev := range events {
		transcript.ApplyTurn(turn, ev)
	}
	transcript.ApplyTurn(turn, protocol.Event{Kind: protocol.EventDone})
	return turn
}

// Projection is idempotent: two calls with the same snapshot produce
// identical output.
func TestProjectIdempotent(t *testing.T) {
	turn := finishedTurn(t,
		protocol.Event{Kind: protocol.EventContent, Content: "intro\n```go\nx()\n```"},
		protocol.Event{Kind: protocol.EventReasoning, Content: "thought"},
	)
	c := classify.New()

	first := ProjectText(turn, c, time.Second)
	second := ProjectText(turn, c, time.Second)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("projection not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestProjectParagraphAndCode(t *testing.T) {
	turn := finishedTurn(t,
		protocol.Event{Kind: protocol.EventContent, Content: "Here is code:\n```python\nprint(1)\n```"},
	)
	blocks := ProjectText(turn, classify.New(), time.Second)

	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Kind != BlockParagraph || blocks[0].Text != "Here is code:" {
		t.Errorf("unexpected paragraph block: %+v", blocks[0])
	}
	if blocks[1].Kind != BlockCode || blocks[1].Language != "python" || blocks[1].Provisional {
		t.Errorf("unexpected code block: %+v", blocks[1])
	}
	if blocks[1].Content != "print(1)" {
		t.Errorf("code content altered: %q", blocks[1].Content)
	}
}

func TestProjectProvisionalCodeWhileStreaming(t *testing.T) {
	turn := transcript.NewAssistantTurn()
	transcript.ApplyTurn(turn, protocol.Event{Kind: protocol.EventContent, Content: "```py\nprint(1)"})

	blocks := ProjectText(turn, classify.New(), 0)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Kind != BlockCode || !blocks[0].Provisional {
		t.Errorf("trailing unclosed fence must project as provisional code: %+v", blocks[0])
	}
}

func TestProjectHTMLOnlyWhenSettled(t *testing.T) {
	html := "```html\n<html><body>hi</body></html>"

	// Streaming: provisional, stays plain code.
	streaming := transcript.NewAssistantTurn()
	transcript.ApplyTurn(streaming, protocol.Event{Kind: protocol.EventContent, Content: html})
	blocks := ProjectText(streaming, classify.New(), 0)
	if blocks[0].Kind != BlockCode {
		t.Errorf("provisional html candidate must render as code, got kind %v", blocks[0].Kind)
	}

	// Settled: embedded.
	settled := finishedTurn(t, protocol.Event{Kind: protocol.EventContent, Content: html + "\n```"})
	blocks = ProjectText(settled, classify.New(), time.Second)
	if blocks[0].Kind != BlockHTML {
		t.Errorf("settled html candidate must embed, got kind %v", blocks[0].Kind)
	}
}

// Annotations come after the text blocks, in arrival order.
func TestProjectAnnotationsAfterText(t *testing.T) {
	turn := finishedTurn(t,
		protocol.Event{Kind: protocol.EventReasoning, Content: "checking data"},
		protocol.Event{Kind: protocol.EventToolCall, Tool: "query_tickets"},
		protocol.Event{Kind: protocol.EventToolResult, Tool: "query_tickets"},
		protocol.Event{Kind: protocol.EventContent, Content: "There are 3 open tickets."},
	)
	blocks := ProjectText(turn, classify.New(), time.Second)

	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if blocks[0].Kind != BlockParagraph {
		t.Errorf("text must come first, got %v", blocks[0].Kind)
	}
	if blocks[1].Kind != BlockAnnotation || blocks[1].Annotation != AnnotationReasoning {
		t.Errorf("expected reasoning annotation second, got %+v", blocks[1])
	}
	if blocks[2].Kind != BlockAnnotation || blocks[2].Annotation != AnnotationToolCall {
		t.Errorf("expected tool annotation third, got %+v", blocks[2])
	}
	if blocks[2].ToolName != "query_tickets" || blocks[2].ToolFailed {
		t.Errorf("unexpected tool annotation: %+v", blocks[2])
	}
}

func TestProjectFailedToolAnnotation(t *testing.T) {
	turn := finishedTurn(t,
		protocol.Event{Kind: protocol.EventToolCall, Tool: "refresh"},
		protocol.Event{Kind: protocol.EventToolResult, Tool: "refresh", IsError: true},
	)
	blocks := ProjectText(turn, classify.New(), time.Second)

	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if !blocks[0].ToolFailed {
		t.Error("failed tool result must mark the annotation")
	}
}

func TestProjectErroredTurnShowsFailureText(t *testing.T) {
	turn := transcript.NewAssistantTurn()
	transcript.ApplyTurn(turn, protocol.Event{Kind: protocol.EventContent, Content: "partial"})
	transcript.ApplyTurn(turn, protocol.Event{Kind: protocol.EventError, Content: "boom"})

	blocks := ProjectText(turn, classify.New(), time.Second)
	if len(blocks) != 1 || blocks[0].Kind != BlockParagraph {
		t.Fatalf("errored turn projects a single paragraph, got %+v", blocks)
	}
	if blocks[0].Text != transcript.ErrorText {
		t.Errorf("errored turn must show the fixed failure message, got %q", blocks[0].Text)
	}
}
