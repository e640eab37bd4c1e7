// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"encoding/json"
	"testing"

	"github.com/jeranaias/quill-tui/internal/protocol"
)

func newStreamingSession() (*Session, *Turn) {
	s := NewSession()
	s.Append(NewUserTurn("question"))
	turn := NewAssistantTurn()
	s.Append(turn)
	return s, turn
}

// =============================================================================
// SCENARIO TESTS
// =============================================================================

// Scenario: content "Hello", content " world", done.
func TestApplyContentThenDone(t *testing.T) {
	s, turn := newStreamingSession()

	Apply(s, protocol.Event{Kind: protocol.EventContent, Content: "Hello"})
	Apply(s, protocol.Event{Kind: protocol.EventContent, Content: " world"})
	more := Apply(s, protocol.Event{Kind: protocol.EventDone})

	if more {
		t.Error("done must signal end of events")
	}
	if turn.Status != StatusComplete {
		t.Errorf("expected complete, got %s", turn.Status)
	}
	if turn.FinalText != "Hello world" {
		t.Errorf("expected final text 'Hello world', got %q", turn.FinalText)
	}
}

// Scenario: tool_call, tool_result, done. Exactly one resolved invocation.
func TestApplyToolCallResolution(t *testing.T) {
	s, turn := newStreamingSession()

	Apply(s, protocol.Event{Kind: protocol.EventToolCall, Tool: "search", Input: json.RawMessage(`{"q":"x"}`)})
	Apply(s, protocol.Event{Kind: protocol.EventToolResult, Tool: "search", IsError: false})
	Apply(s, protocol.Event{Kind: protocol.EventDone})

	if len(turn.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(turn.Items))
	}
	it := turn.Items[0]
	if it.Kind != ItemToolInvocation || !it.Resolved || it.IsError {
		t.Errorf("unexpected item state: %+v", it)
	}
}

func TestApplyErrorEvent(t *testing.T) {
	s, turn := newStreamingSession()

	Apply(s, protocol.Event{Kind: protocol.EventContent, Content: "partial"})
	more := Apply(s, protocol.Event{Kind: protocol.EventError, Content: "backend failure"})

	if more {
		t.Error("error must signal end of events")
	}
	if turn.Status != StatusErrored {
		t.Errorf("expected errored, got %s", turn.Status)
	}
	if turn.FinalText != ErrorText {
		t.Errorf("errored turn must show the fixed failure message, got %q", turn.FinalText)
	}
	// The accumulated text is preserved internally, never discarded.
	if turn.StreamingLen() == 0 {
		t.Error("accumulated text must be preserved")
	}
}

func TestStopPreservesTextAndAnnotates(t *testing.T) {
	s, turn := newStreamingSession()

	Apply(s, protocol.Event{Kind: protocol.EventContent, Content: "partial"})
	Stop(s)

	if turn.Status != StatusStopped {
		t.Errorf("expected stopped, got %s", turn.Status)
	}
	if turn.FinalText != "partial"+StopAnnotation {
		t.Errorf("expected text plus stop annotation, got %q", turn.FinalText)
	}

	// Events after a terminal status never mutate the turn.
	Apply(s, protocol.Event{Kind: protocol.EventContent, Content: "late"})
	if turn.FinalText != "partial"+StopAnnotation {
		t.Error("terminal turn was mutated by a late event")
	}
}

// =============================================================================
// PROPERTY TESTS
// =============================================================================

// Append-only: streaming text length and item count never decrease.
func TestAppendOnlyGrowth(t *testing.T) {
	s, turn := newStreamingSession()

	events := []protocol.Event{
		{Kind: protocol.EventContent, Content: "a"},
		{Kind: protocol.EventReasoning, Content: "think"},
		{Kind: protocol.EventContent, Content: "bc"},
		{Kind: protocol.EventToolCall, Tool: "t1"},
		{Kind: protocol.EventToolResult},
		{Kind: protocol.EventContent, Content: "d"},
	}

	prevText, prevItems := 0, 0
	for i, ev := range events {
		Apply(s, ev)
		if turn.StreamingLen() < prevText {
			t.Errorf("event %d: streaming text shrank from %d to %d", i, prevText, turn.StreamingLen())
		}
		if len(turn.Items) < prevItems {
			t.Errorf("event %d: items shrank from %d to %d", i, prevItems, len(turn.Items))
		}
		prevText, prevItems = turn.StreamingLen(), len(turn.Items)
	}
}

// Resolution uniqueness: at most one unresolved invocation at any point.
func TestAtMostOneUnresolvedInvocation(t *testing.T) {
	s, turn := newStreamingSession()

	events := []protocol.Event{
		{Kind: protocol.EventToolCall, Tool: "a"},
		{Kind: protocol.EventToolResult, Tool: "a"},
		{Kind: protocol.EventToolCall, Tool: "b"},
		{Kind: protocol.EventToolResult, Tool: "b", IsError: true},
		{Kind: protocol.EventToolCall, Tool: "c"},
	}

	for i, ev := range events {
		Apply(s, ev)
		if n := turn.UnresolvedTools(); n > 1 {
			t.Errorf("after event %d: %d unresolved invocations", i, n)
		}
	}

	// Results pair backward: b's error flag landed on b, not a.
	if turn.Items[0].IsError {
		t.Error("first invocation wrongly marked as error")
	}
	if !turn.Items[1].IsError {
		t.Error("second invocation should carry the error flag")
	}
	if turn.Items[2].Resolved {
		t.Error("third invocation has no result yet")
	}
}

func TestOrphanedToolResultIsDropped(t *testing.T) {
	s, turn := newStreamingSession()

	more := Apply(s, protocol.Event{Kind: protocol.EventToolResult, Tool: "ghost"})
	if !more {
		t.Error("orphaned result is non-fatal")
	}
	if len(turn.Items) != 0 {
		t.Errorf("orphaned result must not create items, got %d", len(turn.Items))
	}
}

func TestPendingMovesToStreamingOnFirstEvent(t *testing.T) {
	s, turn := newStreamingSession()

	if turn.Status != StatusPending {
		t.Fatalf("new assistant turn should be pending, got %s", turn.Status)
	}
	Apply(s, protocol.Event{Kind: protocol.EventContent, Content: "x"})
	if turn.Status != StatusStreaming {
		t.Errorf("expected streaming after first delta, got %s", turn.Status)
	}
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestSessionHistoryWindow(t *testing.T) {
	s := NewSession()
	for i := 0; i < 8; i++ {
		s.Append(NewUserTurn("q"))
		a := NewAssistantTurn()
		s.Append(a)
		ApplyTurn(a, protocol.Event{Kind: protocol.EventContent, Content: "r"})
		ApplyTurn(a, protocol.Event{Kind: protocol.EventDone})
	}

	hist := s.History()
	if len(hist) != HistoryWindow {
		t.Fatalf("expected %d history entries, got %d", HistoryWindow, len(hist))
	}
	// The window keeps the most recent turns, alternating user/bot.
	if hist[len(hist)-1].Sender != "bot" {
		t.Errorf("last entry should be the bot reply, got %s", hist[len(hist)-1].Sender)
	}
}

func TestSessionHistoryExcludesInFlightTurn(t *testing.T) {
	s, _ := newStreamingSession()
	Apply(s, protocol.Event{Kind: protocol.EventContent, Content: "partial"})

	for _, h := range s.History() {
		if h.Sender == "bot" {
			t.Error("in-flight assistant turn leaked into history")
		}
	}
}

func TestSessionActiveTurn(t *testing.T) {
	s := NewSession()
	if s.ActiveTurn() != nil {
		t.Error("empty session has no active turn")
	}

	s.Append(NewUserTurn("q"))
	if s.ActiveTurn() != nil {
		t.Error("completed user turn is not active")
	}

	a := NewAssistantTurn()
	s.Append(a)
	if s.ActiveTurn() != a {
		t.Error("pending assistant turn should be active")
	}

	ApplyTurn(a, protocol.Event{Kind: protocol.EventDone})
	if s.ActiveTurn() != nil {
		t.Error("terminal turn must not be active")
	}
}

func TestSessionTitleFromFirstUserTurn(t *testing.T) {
	s := NewSession()
	s.Append(NewUserTurn("How many open tickets are there?"))
	if s.Title != "How many open tickets are there?" {
		t.Errorf("unexpected title: %q", s.Title)
	}
}
