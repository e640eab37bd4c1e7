// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/quill-tui/internal/protocol"
	"github.com/jeranaias/quill-tui/internal/transcript"
)

// =============================================================================
// HELPERS
// =============================================================================

func testStore(t *testing.T, maxSessions int) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), maxSessions)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// testSession builds a session with one completed exchange.
func testSession(question, answer string) *transcript.Session {
	s := transcript.NewSession()
	s.Append(transcript.NewUserTurn(question))
	s.Append(transcript.NewAssistantTurn())
	transcript.Apply(s, protocol.Event{Kind: protocol.EventContent, Content: answer})
	transcript.Apply(s, protocol.Event{Kind: protocol.EventDone})
	return s
}

// =============================================================================
// SAVE / LOAD
// =============================================================================

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := testStore(t, 0)

	sess := testSession("What is Go?", "A programming language.")
	if err := store.Save(sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(sess.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.ID != sess.ID || loaded.Title != sess.Title {
		t.Errorf("identity mismatch: %+v", loaded)
	}
	if len(loaded.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(loaded.Turns))
	}
	if loaded.Turns[0].Role != transcript.RoleUser || loaded.Turns[0].FinalText != "What is Go?" {
		t.Errorf("user turn mismatch: %+v", loaded.Turns[0])
	}
	if loaded.Turns[1].Status != transcript.StatusComplete || loaded.Turns[1].FinalText != "A programming language." {
		t.Errorf("assistant turn mismatch: %+v", loaded.Turns[1])
	}
}

func TestStoreSavePreservesItems(t *testing.T) {
	store := testStore(t, 0)

	s := transcript.NewSession()
	s.Append(transcript.NewUserTurn("search something"))
	s.Append(transcript.NewAssistantTurn())
	transcript.Apply(s, protocol.Event{Kind: protocol.EventReasoning, Content: "Considering options"})
	transcript.Apply(s, protocol.Event{
		Kind:  protocol.EventToolCall,
		Tool:  "web_search",
		Input: json.RawMessage(`{"query":"go"}`),
	})
	transcript.Apply(s, protocol.Event{Kind: protocol.EventToolResult, Tool: "web_search"})
	transcript.Apply(s, protocol.Event{Kind: protocol.EventContent, Content: "Found it."})
	transcript.Apply(s, protocol.Event{Kind: protocol.EventDone})

	if err := store.Save(s); err != nil {
		t.Fatal(err)
	}
	loaded, err := store.Load(s.ID)
	if err != nil {
		t.Fatal(err)
	}

	items := loaded.Turns[1].Items
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Kind != transcript.ItemReasoning || items[0].Content != "Considering options" {
		t.Errorf("reasoning item mismatch: %+v", items[0])
	}
	tool := items[1]
	if tool.Kind != transcript.ItemToolInvocation || tool.Tool != "web_search" {
		t.Errorf("tool item mismatch: %+v", tool)
	}
	if !tool.Resolved || tool.IsError {
		t.Errorf("tool resolution lost: resolved=%v isError=%v", tool.Resolved, tool.IsError)
	}
	if string(tool.Input) != `{"query":"go"}` {
		t.Errorf("tool input mismatch: %s", tool.Input)
	}
}

func TestStoreSkipsInFlightTurns(t *testing.T) {
	store := testStore(t, 0)

	s := testSession("q", "a")
	s.Append(transcript.NewAssistantTurn()) // still pending

	if err := store.Save(s); err != nil {
		t.Fatal(err)
	}
	loaded, err := store.Load(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Turns) != 2 {
		t.Errorf("in-flight turn must not be persisted, got %d turns", len(loaded.Turns))
	}
}

func TestStoreSaveEmptySessionIsNoop(t *testing.T) {
	store := testStore(t, 0)

	s := transcript.NewSession()
	if err := store.Save(s); err != nil {
		t.Fatal(err)
	}
	metas, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 0 {
		t.Errorf("empty session must not be stored, got %d", len(metas))
	}
}

func TestStoreResaveReplaces(t *testing.T) {
	store := testStore(t, 0)

	s := testSession("q", "a")
	if err := store.Save(s); err != nil {
		t.Fatal(err)
	}

	// Continue the conversation and save again.
	s.Append(transcript.NewUserTurn("more"))
	s.Append(transcript.NewAssistantTurn())
	transcript.Apply(s, protocol.Event{Kind: protocol.EventContent, Content: "sure"})
	transcript.Apply(s, protocol.Event{Kind: protocol.EventDone})
	if err := store.Save(s); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Turns) != 4 {
		t.Errorf("expected 4 turns after resave, got %d", len(loaded.Turns))
	}
	metas, _ := store.List()
	if len(metas) != 1 {
		t.Errorf("resave must not duplicate the session, got %d", len(metas))
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := testStore(t, 0)
	if _, err := store.Load("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStoreLoadByIndex(t *testing.T) {
	store := testStore(t, 0)

	first := testSession("first", "one")
	second := testSession("second", "two")
	first.UpdatedAt = time.Now().Add(-time.Hour)
	if err := store.Save(first); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(second); err != nil {
		t.Fatal(err)
	}

	newest, err := store.LoadByIndex(0)
	if err != nil {
		t.Fatal(err)
	}
	if newest.ID != second.ID {
		t.Errorf("index 0 should be the newest session")
	}

	if _, err := store.LoadByIndex(5); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := store.LoadByIndex(-1); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for negative index, got %v", err)
	}
}

// =============================================================================
// LIST / SEARCH
// =============================================================================

func TestStoreListNewestFirst(t *testing.T) {
	store := testStore(t, 0)

	old := testSession("old question", "old answer")
	old.UpdatedAt = time.Now().Add(-time.Hour)
	recent := testSession("new question", "new answer")

	if err := store.Save(old); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(recent); err != nil {
		t.Fatal(err)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(metas))
	}
	if metas[0].ID != recent.ID {
		t.Error("list must be newest first")
	}
	if metas[0].TurnCount != 2 {
		t.Errorf("expected 2 turns, got %d", metas[0].TurnCount)
	}
	if metas[0].Preview != "new question" {
		t.Errorf("preview should be the first user message, got %q", metas[0].Preview)
	}
}

func TestStoreSearch(t *testing.T) {
	store := testStore(t, 0)

	if err := store.Save(testSession("how do goroutines work", "they are lightweight")); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(testSession("pasta recipe", "boil water first")); err != nil {
		t.Fatal(err)
	}

	// Match on turn text, case-insensitive.
	metas, err := store.Search("GOROUTINES")
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 1 {
		t.Fatalf("expected 1 match, got %d", len(metas))
	}

	// Match on assistant text too.
	metas, err = store.Search("boil water")
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 1 {
		t.Fatalf("expected 1 match on answer text, got %d", len(metas))
	}

	// Empty query lists everything.
	metas, err = store.Search("")
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 2 {
		t.Errorf("empty query should list all, got %d", len(metas))
	}
}

// =============================================================================
// DELETE / CLEAR / LIMIT
// =============================================================================

func TestStoreDelete(t *testing.T) {
	store := testStore(t, 0)

	s := testSession("q", "a")
	if err := store.Save(s); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(s.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
	if err := store.Delete(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("deleting twice should report not found, got %v", err)
	}
}

func TestStoreClear(t *testing.T) {
	store := testStore(t, 0)

	if err := store.Save(testSession("a", "b")); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(testSession("c", "d")); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	metas, _ := store.List()
	if len(metas) != 0 {
		t.Errorf("expected empty store after Clear, got %d", len(metas))
	}
}

func TestStoreEnforceLimit(t *testing.T) {
	store := testStore(t, 3)

	var oldest string
	for i := 0; i < 5; i++ {
		s := testSession("question", "answer")
		s.UpdatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		if i == 0 {
			oldest = s.ID
		}
		if err := store.Save(s); err != nil {
			t.Fatal(err)
		}
	}

	metas, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 3 {
		t.Errorf("expected at most 3 sessions, got %d", len(metas))
	}
	if _, err := store.Load(oldest); !errors.Is(err, ErrSessionNotFound) {
		t.Error("oldest session should have been pruned")
	}
}

// =============================================================================
// FORMATTING
// =============================================================================

func TestFormatSessionList(t *testing.T) {
	if got := FormatSessionList(nil); got != "No saved sessions." {
		t.Errorf("unexpected empty listing: %q", got)
	}

	out := FormatSessionList([]SessionMeta{
		{ID: "x", Title: "Goroutines", UpdatedAt: time.Now(), TurnCount: 4},
		{ID: "y", Preview: "untitled preview", UpdatedAt: time.Now(), TurnCount: 2},
	})
	if !strings.Contains(out, "Goroutines") {
		t.Errorf("title missing from listing:\n%s", out)
	}
	if !strings.Contains(out, "untitled preview") {
		t.Errorf("preview fallback missing from listing:\n%s", out)
	}
}
