// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat sessions to a local SQLite database.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/quill-tui/internal/transcript"
	"github.com/jeranaias/quill-tui/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrSessionNotFound is returned when a session doesn't exist.
// Use errors.Is(err, ErrSessionNotFound) to check for this error.
var ErrSessionNotFound = &StoreError{Message: "session not found"}

// StoreError represents a storage operation failure.
type StoreError struct {
	Message string
	Cause   error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is matches any StoreError with the same message, so the sentinel
// works through wrapping.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	role       TEXT NOT NULL,
	status     TEXT NOT NULL,
	final_text TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	turn_id  TEXT NOT NULL REFERENCES turns(id) ON DELETE CASCADE,
	seq      INTEGER NOT NULL,
	kind     INTEGER NOT NULL,
	at       INTEGER NOT NULL,
	content  TEXT NOT NULL DEFAULT '',
	tool     TEXT NOT NULL DEFAULT '',
	input    TEXT NOT NULL DEFAULT '',
	resolved INTEGER NOT NULL DEFAULT 0,
	is_error INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (turn_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, seq);
CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
`

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionMeta contains metadata for listing sessions.
type SessionMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TurnCount int       `json:"turn_count"`
	Preview   string    `json:"preview"` // First user message truncated
}

// Store persists sessions in a SQLite database.
type Store struct {
	db *sql.DB

	// maxSessions limits stored sessions (0 = unlimited). Oldest
	// sessions by update time are pruned on save.
	maxSessions int
}

// DefaultPath returns the default database location (~/.quill/history.db).
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".quill", "history.db"), nil
}

// Open opens (creating if necessary) the session database at path.
func Open(path string, maxSessions int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &StoreError{Message: "failed to create database directory", Cause: err}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StoreError{Message: "failed to open database", Cause: err}
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, &StoreError{Message: "failed to set pragma", Cause: err}
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &StoreError{Message: "failed to initialize schema", Cause: err}
	}

	return &Store{db: db, maxSessions: maxSessions}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVE
// =============================================================================

// Save persists a session, replacing any previous version. Turns still
// in flight are skipped; only terminal turns are durable. Empty
// sessions are not saved.
func (s *Store) Save(sess *transcript.Session) error {
	if sess == nil || sess.IsEmpty() {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &StoreError{Message: "failed to begin transaction", Cause: err}
	}
	defer tx.Rollback()

	// Replace wholesale. Turns are append-only so a diff would save
	// little, and ON DELETE CASCADE takes the items with them.
	if _, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, sess.ID); err != nil {
		return &StoreError{Message: "failed to clear previous version", Cause: err}
	}

	_, err = tx.Exec(
		`INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Title, sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return &StoreError{Message: "failed to insert session", Cause: err}
	}

	for seq, turn := range sess.Turns {
		if !turn.Status.Terminal() {
			continue
		}
		_, err = tx.Exec(
			`INSERT INTO turns (id, session_id, seq, role, status, final_text, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			turn.ID, sess.ID, seq, string(turn.Role), string(turn.Status),
			turn.FinalText, turn.CreatedAt.UnixNano(),
		)
		if err != nil {
			return &StoreError{Message: "failed to insert turn", Cause: err}
		}

		for iseq, item := range turn.Items {
			_, err = tx.Exec(
				`INSERT INTO items (turn_id, seq, kind, at, content, tool, input, resolved, is_error)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				turn.ID, iseq, int(item.Kind), item.At.UnixNano(),
				item.Content, item.Tool, string(item.Input),
				boolToInt(item.Resolved), boolToInt(item.IsError),
			)
			if err != nil {
				return &StoreError{Message: "failed to insert item", Cause: err}
			}
		}
	}

	if err := s.enforceLimit(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Message: "failed to commit", Cause: err}
	}
	return nil
}

// enforceLimit prunes the oldest sessions beyond maxSessions.
func (s *Store) enforceLimit(tx *sql.Tx) error {
	if s.maxSessions <= 0 {
		return nil
	}
	_, err := tx.Exec(
		`DELETE FROM sessions WHERE id IN (
			SELECT id FROM sessions ORDER BY updated_at DESC LIMIT -1 OFFSET ?
		)`, s.maxSessions)
	if err != nil {
		return &StoreError{Message: "failed to prune old sessions", Cause: err}
	}
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load retrieves a session by ID.
func (s *Store) Load(id string) (*transcript.Session, error) {
	row := s.db.QueryRow(`SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?`, id)

	sess := &transcript.Session{}
	var created, updated int64
	if err := row.Scan(&sess.ID, &sess.Title, &created, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, &StoreError{Message: "failed to load session", Cause: err}
	}
	sess.CreatedAt = time.Unix(0, created)
	sess.UpdatedAt = time.Unix(0, updated)

	turns, err := s.loadTurns(id)
	if err != nil {
		return nil, err
	}
	sess.Turns = turns
	return sess, nil
}

// LoadByIndex retrieves the nth most recently updated session (0 = newest).
func (s *Store) LoadByIndex(index int) (*transcript.Session, error) {
	if index < 0 {
		return nil, ErrSessionNotFound
	}
	row := s.db.QueryRow(
		`SELECT id FROM sessions ORDER BY updated_at DESC LIMIT 1 OFFSET ?`, index)

	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, &StoreError{Message: "failed to load session", Cause: err}
	}
	return s.Load(id)
}

// loadTurns reads a session's turns and their items in insertion order.
func (s *Store) loadTurns(sessionID string) ([]*transcript.Turn, error) {
	rows, err := s.db.Query(
		`SELECT id, role, status, final_text, created_at
		 FROM turns WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, &StoreError{Message: "failed to load turns", Cause: err}
	}
	defer rows.Close()

	var turns []*transcript.Turn
	for rows.Next() {
		turn := &transcript.Turn{}
		var role, status string
		var created int64
		if err := rows.Scan(&turn.ID, &role, &status, &turn.FinalText, &created); err != nil {
			return nil, &StoreError{Message: "failed to scan turn", Cause: err}
		}
		turn.Role = transcript.Role(role)
		turn.Status = transcript.Status(status)
		turn.CreatedAt = time.Unix(0, created)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Message: "failed to read turns", Cause: err}
	}

	for _, turn := range turns {
		items, err := s.loadItems(turn.ID)
		if err != nil {
			return nil, err
		}
		turn.Items = items
	}
	return turns, nil
}

// loadItems reads a turn's sub-items in insertion order.
func (s *Store) loadItems(turnID string) ([]*transcript.Item, error) {
	rows, err := s.db.Query(
		`SELECT kind, at, content, tool, input, resolved, is_error
		 FROM items WHERE turn_id = ? ORDER BY seq`, turnID)
	if err != nil {
		return nil, &StoreError{Message: "failed to load items", Cause: err}
	}
	defer rows.Close()

	var items []*transcript.Item
	for rows.Next() {
		item := &transcript.Item{}
		var kind int
		var at int64
		var input string
		var resolved, isError int
		if err := rows.Scan(&kind, &at, &item.Content, &item.Tool, &input, &resolved, &isError); err != nil {
			return nil, &StoreError{Message: "failed to scan item", Cause: err}
		}
		item.Kind = transcript.ItemKind(kind)
		item.At = time.Unix(0, at)
		if input != "" {
			item.Input = json.RawMessage(input)
		}
		item.Resolved = resolved != 0
		item.IsError = isError != 0
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Message: "failed to read items", Cause: err}
	}
	return items, nil
}

// =============================================================================
// LIST / SEARCH
// =============================================================================

// List returns metadata for all stored sessions, newest first.
func (s *Store) List() ([]SessionMeta, error) {
	return s.listWhere("", nil)
}

// Search returns sessions whose title or any turn text contains the
// query (case-insensitive), newest first.
func (s *Store) Search(query string) ([]SessionMeta, error) {
	if query == "" {
		return s.List()
	}
	pattern := "%" + query + "%"
	return s.listWhere(
		`WHERE s.title LIKE ? COLLATE NOCASE OR s.id IN (
			SELECT session_id FROM turns WHERE final_text LIKE ? COLLATE NOCASE
		)`, []any{pattern, pattern})
}

func (s *Store) listWhere(where string, args []any) ([]SessionMeta, error) {
	q := `SELECT s.id, s.title, s.created_at, s.updated_at,
			(SELECT COUNT(*) FROM turns t WHERE t.session_id = s.id),
			COALESCE((SELECT final_text FROM turns t
				WHERE t.session_id = s.id AND t.role = 'user'
				ORDER BY t.seq LIMIT 1), '')
		FROM sessions s ` + where + ` ORDER BY s.updated_at DESC`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, &StoreError{Message: "failed to list sessions", Cause: err}
	}
	defer rows.Close()

	var metas []SessionMeta
	for rows.Next() {
		var m SessionMeta
		var created, updated int64
		var preview string
		if err := rows.Scan(&m.ID, &m.Title, &created, &updated, &m.TurnCount, &preview); err != nil {
			return nil, &StoreError{Message: "failed to scan session", Cause: err}
		}
		m.CreatedAt = time.Unix(0, created)
		m.UpdatedAt = time.Unix(0, updated)
		m.Preview = util.TruncateRunes(util.FirstLine(preview), 60)
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Message: "failed to read sessions", Cause: err}
	}
	return metas, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a session and all its turns.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return &StoreError{Message: "failed to delete session", Cause: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &StoreError{Message: "failed to delete session", Cause: err}
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Clear removes all stored sessions.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM sessions`); err != nil {
		return &StoreError{Message: "failed to clear sessions", Cause: err}
	}
	return nil
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatSessionList formats session metadata as an aligned table for
// terminal display.
func FormatSessionList(sessions []SessionMeta) string {
	if len(sessions) == 0 {
		return "No saved sessions."
	}

	var b []byte
	b = append(b, fmt.Sprintf("%-3s %-19s %-5s %s\n", "#", "UPDATED", "TURNS", "TITLE")...)
	for i, m := range sessions {
		title := m.Title
		if title == "" {
			title = m.Preview
		}
		if title == "" {
			title = "(untitled)"
		}
		b = append(b, fmt.Sprintf("%-3d %-19s %-5d %s\n",
			i, m.UpdatedAt.Format("2006-01-02 15:04:05"), m.TurnCount,
			util.TruncateWidth(title, 60))...)
	}
	return string(b)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
