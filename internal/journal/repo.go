package journal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/protocol"
)

// SessionRow is the stored metadata for one surface session.
type SessionRow struct {
	ID         string    `json:"id"`
	CatalogRef string    `json:"catalog_ref"`
	CreatedAt  time.Time `json:"created_at"`
	Messages   int       `json:"messages"`
}

// CreateSession records a new session. apperr.ErrAlreadyExists is returned
// for a duplicate id.
func (db *DB) CreateSession(id, catalogRef string) error {
	res, err := db.conn.Exec(
		`INSERT OR IGNORE INTO sessions (id, catalog_ref) VALUES (?, ?)`, id, catalogRef)
	if err != nil {
		return fmt.Errorf("journal: create session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("journal: create session: %w", err)
	}
	if n == 0 {
		return apperr.ErrAlreadyExists
	}
	return nil
}

// AppendLine records one raw stream line and returns its sequence number.
func (db *DB) AppendLine(sessionID, line string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("journal: session lookup: %w", err)
	}
	if exists == 0 {
		return 0, apperr.ErrNotFound
	}

	var seq int64
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id = ?`, sessionID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("journal: next seq: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO messages (session_id, seq, line) VALUES (?, ?, ?)`, sessionID, seq, line); err != nil {
		return 0, fmt.Errorf("journal: append line: %w", err)
	}
	return seq, tx.Commit()
}

// Lines returns a session's recorded lines in sequence order.
func (db *DB) Lines(sessionID string) ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT line FROM messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("journal: lines: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// Replay feeds a session's recorded lines to fn in order. A non-nil error
// from fn stops the replay.
func (db *DB) Replay(sessionID string, fn func(line string) error) error {
	lines, err := db.Lines(sessionID)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if err := fn(line); err != nil {
			return err
		}
	}
	return nil
}

// GetSession returns one session's metadata.
func (db *DB) GetSession(id string) (*SessionRow, error) {
	var row SessionRow
	err := db.conn.QueryRow(`
		SELECT s.id, s.catalog_ref, s.created_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		FROM sessions s WHERE s.id = ?`, id).
		Scan(&row.ID, &row.CatalogRef, &row.CreatedAt, &row.Messages)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("journal: get session: %w", err)
	}
	return &row, nil
}

// ListSessions returns all sessions, newest first.
func (db *DB) ListSessions() ([]SessionRow, error) {
	rows, err := db.conn.Query(`
		SELECT s.id, s.catalog_ref, s.created_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		FROM sessions s ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("journal: list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var row SessionRow
		if err := rows.Scan(&row.ID, &row.CatalogRef, &row.CreatedAt, &row.Messages); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// RecordEvent stores an outbound user event for a session.
func (db *DB) RecordEvent(sessionID string, ev protocol.UserEvent) error {
	args, _ := json.Marshal(ev.Arguments)
	_, err := db.conn.Exec(`
		INSERT INTO user_events (session_id, node_id, name, arguments, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, ev.SourceNodeID, ev.Name, string(args), ev.Timestamp)
	if err != nil {
		return fmt.Errorf("journal: record event: %w", err)
	}
	return nil
}
