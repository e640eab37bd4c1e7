// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package protocol decodes the backend's streaming chat wire format.
//
// The backend responds with a text/event-stream style body of
// newline-delimited "data: <json>" records, terminated by a literal
// "[DONE]" sentinel line or natural stream closure. Each JSON record
// carries a "type" discriminator; this package maps the loose JSON
// into a closed set of typed events.
package protocol

import (
	"encoding/json"
)

// =============================================================================
// EVENT KINDS
// =============================================================================

// EventKind identifies the type of a stream event.
type EventKind int

const (
	// EventContent carries a text delta to append to the streaming turn.
	EventContent EventKind = iota

	// EventReasoning carries a completed reasoning step. The wire uses
	// both "thinking" and "reasoning" for this kind; they are synonyms.
	EventReasoning

	// EventToolCall announces a new, not-yet-resolved tool invocation.
	EventToolCall

	// EventToolResult resolves the most recent unresolved invocation.
	EventToolResult

	// EventError is fatal for the current turn. It is surfaced, never
	// retried.
	EventError

	// EventDone marks a successful end of the exchange.
	EventDone
)

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventContent:
		return "content"
	case EventReasoning:
		return "reasoning"
	case EventToolCall:
		return "tool_call"
	case EventToolResult:
		return "tool_result"
	case EventError:
		return "error"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

// =============================================================================
// EVENT TYPE
// =============================================================================

// Event is one decoded stream record. Only the fields relevant to the
// Kind are populated.
type Event struct {
	Kind EventKind

	// Content is the text delta (EventContent), the reasoning step
	// (EventReasoning), or the user-facing failure text (EventError).
	Content string

	// Tool fields (EventToolCall, EventToolResult).
	Tool    string
	Input   json.RawMessage
	Result  string
	IsError bool
}

// wireEvent mirrors the raw JSON record. The backend is loose about key
// names, so alternates are accepted where the original frontend did.
type wireEvent struct {
	Type    string          `json:"type"`
	Content string          `json:"content"`
	Tool    string          `json:"tool"`
	Name    string          `json:"name"`
	Args    json.RawMessage `json:"args"`
	Input   json.RawMessage `json:"input"`
	ToolIn  json.RawMessage `json:"tool_input"`
	Result  string          `json:"result"`
	IsError bool            `json:"is_error"`
	Error   string          `json:"error"`
}

// decodeEvent maps a raw wire record to a typed Event.
// Returns ok=false for kinds that are recognized but carry no state
// ("status", "tool_complete") and for unrecognized discriminators.
func decodeEvent(w *wireEvent) (Event, bool) {
	switch w.Type {
	case "content":
		return Event{Kind: EventContent, Content: w.Content}, true

	case "thinking", "reasoning":
		return Event{Kind: EventReasoning, Content: w.Content}, true

	case "tool_call":
		name := w.Tool
		if name == "" {
			name = w.Name
		}
		input := w.Args
		if input == nil {
			input = w.ToolIn
		}
		if input == nil {
			input = w.Input
		}
		return Event{Kind: EventToolCall, Tool: name, Input: input}, true

	case "tool_result":
		name := w.Tool
		if name == "" {
			name = w.Name
		}
		result := w.Result
		if result == "" {
			result = w.Content
		}
		return Event{Kind: EventToolResult, Tool: name, Result: result, IsError: w.IsError}, true

	case "status", "tool_complete":
		// Reserved for future use.
		return Event{}, false

	case "error":
		msg := w.Error
		if msg == "" {
			msg = w.Content
		}
		return Event{Kind: EventError, Content: msg}, true

	case "done":
		return Event{Kind: EventDone}, true

	default:
		return Event{}, false
	}
}
