// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/quill-tui/internal/util"
)

// HistoryWindow is the number of most recent turns sent back to the
// backend as conversation context.
const HistoryWindow = 10

// =============================================================================
// SESSION
// =============================================================================

// Session is the aggregate root for one conversation. Turns are
// append-only; no turn outlives its session. The cancellation handle
// for the in-flight exchange lives with the session controller, not
// here.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Turns []*Turn `json:"turns"`
}

// NewSession creates an empty session.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a turn to the session.
func (s *Session) Append(t *Turn) {
	s.Turns = append(s.Turns, t)
	s.UpdatedAt = time.Now()
	s.updateTitle()
}

// ActiveTurn returns the last turn if it is still in flight, nil
// otherwise. At most one turn per session can be in flight.
func (s *Session) ActiveTurn() *Turn {
	if len(s.Turns) == 0 {
		return nil
	}
	last := s.Turns[len(s.Turns)-1]
	if last.Streaming() {
		return last
	}
	return nil
}

// LastTurn returns the most recent turn, or nil for an empty session.
func (s *Session) LastTurn() *Turn {
	if len(s.Turns) == 0 {
		return nil
	}
	return s.Turns[len(s.Turns)-1]
}

// HistoryEntry is a prior turn in the shape the backend expects.
type HistoryEntry struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// History returns the trailing HistoryWindow terminal turns as backend
// history entries. In-flight and system turns are excluded.
func (s *Session) History() []HistoryEntry {
	var entries []HistoryEntry
	for _, t := range s.Turns {
		if !t.Status.Terminal() || t.Role == RoleSystem {
			continue
		}
		sender := "user"
		if t.Role == RoleAssistant {
			sender = "bot"
		}
		text := t.Text()
		if text == "" {
			continue
		}
		entries = append(entries, HistoryEntry{Sender: sender, Text: text})
	}
	if len(entries) > HistoryWindow {
		entries = entries[len(entries)-HistoryWindow:]
	}
	return entries
}

// Snapshot returns a copy of the session safe for readers on other
// goroutines. Terminal turns are shared (they are immutable); the
// in-flight turn, if any, is frozen into a detached copy. The caller
// must hold the lock that guards the session's mutations.
func (s *Session) Snapshot() *Session {
	turns := make([]*Turn, len(s.Turns))
	for i, t := range s.Turns {
		turns[i] = t.Snapshot()
	}
	return &Session{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Turns:     turns,
	}
}

// IsEmpty reports whether the session has no turns.
func (s *Session) IsEmpty() bool {
	return len(s.Turns) == 0
}

// updateTitle derives a title from the first user turn if unset.
func (s *Session) updateTitle() {
	if s.Title != "" {
		return
	}
	for _, t := range s.Turns {
		if t.Role == RoleUser {
			s.Title = util.TruncateRunes(util.FirstLine(t.Text()), 50)
			return
		}
	}
}
