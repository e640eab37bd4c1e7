// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript holds the conversation data model and the reducer
// that folds stream events into it.
package transcript

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/jeranaias/quill-tui/internal/util"
)

// =============================================================================
// ROLE AND STATUS
// =============================================================================

// Role represents the sender of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Status tracks a turn through its lifecycle. A turn is created pending,
// moves to streaming on the first byte, and ends in exactly one of the
// three terminal states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusStopped   Status = "stopped"
	StatusErrored   Status = "errored"
)

// Terminal reports whether the status is one of the terminal states.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusStopped || s == StatusErrored
}

// =============================================================================
// SUB-ITEMS
// =============================================================================

// ItemKind discriminates the sub-item variants.
type ItemKind int

const (
	// ItemReasoning is a completed reasoning step, immutable once appended.
	ItemReasoning ItemKind = iota

	// ItemToolInvocation is a tool call; Resolved is its only mutable
	// field and transitions false to true exactly once.
	ItemToolInvocation
)

// Item is a discrete non-text event captured while a turn streams.
// Items are insertion-ordered and never reordered or deleted.
type Item struct {
	Kind ItemKind  `json:"kind"`
	At   time.Time `json:"at"`

	// Reasoning payload.
	Content string `json:"content,omitempty"`

	// Tool invocation payload.
	Tool     string          `json:"tool,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
	Resolved bool            `json:"resolved,omitempty"`
	IsError  bool            `json:"is_error,omitempty"`
}

// Summary returns a short display string for the item.
func (it *Item) Summary() string {
	switch it.Kind {
	case ItemReasoning:
		return util.TruncateRunes(util.FirstLine(it.Content), 80)
	case ItemToolInvocation:
		status := "…"
		if it.Resolved {
			if it.IsError {
				status = "failed"
			} else {
				status = "ok"
			}
		}
		return it.Tool + " (" + status + ")"
	default:
		return ""
	}
}

// =============================================================================
// TURN
// =============================================================================

// Fixed user-facing texts for the two non-success terminal outcomes.
const (
	// ErrorText replaces the content of an errored turn. No protocol or
	// stack detail is ever shown to the user.
	ErrorText = "Sorry, I encountered an error. Please try again."

	// StopAnnotation is appended to the accumulated text when the user
	// cancels mid-stream.
	StopAnnotation = "\n\n_[stopped by user]_"
)

// Turn is one conversational exchange unit. It is owned by the Session
// that created it and is mutated only through its methods; text grows
// append-only while the turn is in flight.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	Status    Status    `json:"status"`

	// FinalText is written once, at finalization. It is the
	// authoritative content of a terminal turn.
	FinalText string `json:"final_text,omitempty"`

	// Items collects reasoning steps and tool invocations in arrival
	// order.
	Items []*Item `json:"items,omitempty"`

	// streaming accumulates content deltas while the turn is in flight.
	// PERFORMANCE: strings.Builder avoids quadratic allocations.
	streaming strings.Builder
}

// NewUserTurn creates a completed user turn.
func NewUserTurn(content string) *Turn {
	return &Turn{
		ID:        generateID(),
		Role:      RoleUser,
		CreatedAt: time.Now(),
		Status:    StatusComplete,
		FinalText: content,
	}
}

// NewAssistantTurn creates a pending assistant turn. It moves to
// streaming when the first event arrives.
func NewAssistantTurn() *Turn {
	return &Turn{
		ID:        generateID(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
		Status:    StatusPending,
	}
}

// Text returns the content to display: the final text for terminal
// turns, the accumulated streaming text otherwise.
func (t *Turn) Text() string {
	if t.Status.Terminal() {
		return t.FinalText
	}
	return t.streaming.String()
}

// StreamingLen returns the length of the accumulated streaming text.
func (t *Turn) StreamingLen() int {
	return t.streaming.Len()
}

// Streaming reports whether the turn is still receiving events.
func (t *Turn) Streaming() bool {
	return t.Status == StatusPending || t.Status == StatusStreaming
}

// appendDelta appends a content delta. No-op once the turn is terminal.
func (t *Turn) appendDelta(delta string) {
	if t.Status.Terminal() {
		return
	}
	if t.Status == StatusPending {
		t.Status = StatusStreaming
	}
	t.streaming.WriteString(delta)
}

// addReasoning appends an immutable reasoning sub-item.
func (t *Turn) addReasoning(content string) {
	if t.Status.Terminal() {
		return
	}
	if t.Status == StatusPending {
		t.Status = StatusStreaming
	}
	t.Items = append(t.Items, &Item{
		Kind:    ItemReasoning,
		At:      time.Now(),
		Content: content,
	})
}

// addToolInvocation appends a new unresolved invocation.
func (t *Turn) addToolInvocation(name string, input json.RawMessage) {
	if t.Status.Terminal() {
		return
	}
	if t.Status == StatusPending {
		t.Status = StatusStreaming
	}
	t.Items = append(t.Items, &Item{
		Kind:  ItemToolInvocation,
		At:    time.Now(),
		Tool:  name,
		Input: input,
	})
}

// resolveTool pairs a result with the most recently appended unresolved
// invocation (last-in-first-matched). Returns false when no unresolved
// invocation exists; such orphaned results are the caller's to drop.
func (t *Turn) resolveTool(isError bool) bool {
	for i := len(t.Items) - 1; i >= 0; i-- {
		it := t.Items[i]
		if it.Kind == ItemToolInvocation && !it.Resolved {
			it.Resolved = true
			it.IsError = isError
			return true
		}
	}
	return false
}

// complete finalizes the turn successfully, copying the streaming text
// into FinalText.
func (t *Turn) complete() {
	if t.Status.Terminal() {
		return
	}
	t.FinalText = t.streaming.String()
	t.Status = StatusComplete
}

// stop finalizes the turn after user cancellation: the accumulated
// text is preserved and the stop annotation appended.
func (t *Turn) stop() {
	if t.Status.Terminal() {
		return
	}
	t.streaming.WriteString(StopAnnotation)
	t.FinalText = t.streaming.String()
	t.Status = StatusStopped
}

// fail finalizes the turn with the fixed failure message. Whatever text
// had accumulated is kept in the streaming buffer for diagnostics but
// the user sees only ErrorText.
func (t *Turn) fail() {
	if t.Status.Terminal() {
		return
	}
	t.FinalText = ErrorText
	t.Status = StatusErrored
}

// Preview returns a truncated single-line preview of the turn content.
func (t *Turn) Preview(maxRunes int) string {
	return util.TruncateRunes(util.FirstLine(t.Text()), maxRunes)
}

// UnresolvedTools counts invocations still awaiting a result. The
// accumulator keeps this at most one.
func (t *Turn) UnresolvedTools() int {
	n := 0
	for _, it := range t.Items {
		if it.Kind == ItemToolInvocation && !it.Resolved {
			n++
		}
	}
	return n
}

// Snapshot returns a view of the turn that is safe to read without the
// writer's lock. A terminal turn never changes again and is returned
// as-is; an in-flight turn is frozen into a detached copy of its
// current text and items. The caller must hold the lock that guards
// the turn's mutations while taking the snapshot.
func (t *Turn) Snapshot() *Turn {
	if t.Status.Terminal() {
		return t
	}

	items := make([]*Item, len(t.Items))
	for i, it := range t.Items {
		copied := *it
		items[i] = &copied
	}

	clone := &Turn{
		ID:        t.ID,
		Role:      t.Role,
		CreatedAt: t.CreatedAt,
		Status:    t.Status,
		FinalText: t.FinalText,
		Items:     items,
	}
	clone.streaming.WriteString(t.streaming.String())
	return clone
}

// generateID creates a unique turn ID.
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "turn_" + hex.EncodeToString(bytes)
}
