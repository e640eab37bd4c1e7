// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"log"

	"github.com/jeranaias/quill-tui/internal/protocol"
)

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Apply folds one stream event into the session's active turn. Events
// are applied in strict arrival order; text and items only ever grow.
//
// Returns true while the turn can accept further events. It returns
// false after a terminal event (done, error) so the caller stops
// reading the stream for this turn.
func Apply(s *Session, ev protocol.Event) bool {
	turn := s.ActiveTurn()
	if turn == nil {
		log.Printf("TRANSCRIPT | dropping %s event: no active turn", ev.Kind)
		return false
	}
	return ApplyTurn(turn, ev)
}

// ApplyTurn folds one event into a specific turn. See Apply.
func ApplyTurn(turn *Turn, ev protocol.Event) bool {
	if turn.Status.Terminal() {
		return false
	}

	switch ev.Kind {
	case protocol.EventContent:
		turn.appendDelta(ev.Content)
		return true

	case protocol.EventReasoning:
		turn.addReasoning(ev.Content)
		return true

	case protocol.EventToolCall:
		turn.addToolInvocation(ev.Tool, ev.Input)
		return true

	case protocol.EventToolResult:
		if !turn.resolveTool(ev.IsError) {
			// Orphaned result: nothing to pair it with. Non-fatal.
			log.Printf("TRANSCRIPT | dropping orphaned tool result for %q", ev.Tool)
		}
		return true

	case protocol.EventError:
		turn.fail()
		return false

	case protocol.EventDone:
		turn.complete()
		return false

	default:
		log.Printf("TRANSCRIPT | ignoring event kind %v", ev.Kind)
		return true
	}
}

// Stop finalizes the active turn after user cancellation, preserving
// the accumulated text and appending the stop annotation.
func Stop(s *Session) {
	if turn := s.ActiveTurn(); turn != nil {
		turn.stop()
	}
}

// Fail finalizes the active turn after a transport failure.
func Fail(s *Session) {
	if turn := s.ActiveTurn(); turn != nil {
		turn.fail()
	}
}
