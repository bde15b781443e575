// Package trail persists service events to a local SQLite database.
// Recording is best effort: if the database cannot be opened the
// gateway runs with the trail disabled instead of failing startup.
package trail

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ericksa/contractiq/internal/logging"
)

type Trail struct {
	db *sql.DB
}

// Event is one recorded service event.
type Event struct {
	ID         int64     `json:"id"`
	Event      string    `json:"event"`
	DocumentID string    `json:"document_id,omitempty"`
	Payload    string    `json:"payload,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Open opens or creates the trail database. On failure it logs and
// returns a disabled trail whose methods are all no-ops.
func Open(path string) *Trail {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("trail disabled: %v", err)
		return &Trail{}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Printf("trail disabled: %v", err)
		return &Trail{}
	}

	schema := `CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event TEXT NOT NULL,
		document_id TEXT,
		payload TEXT,
		error TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(schema); err != nil {
		log.Printf("trail disabled: %v", err)
		db.Close()
		return &Trail{}
	}
	return &Trail{db: db}
}

// Enabled reports whether events are being recorded.
func (t *Trail) Enabled() bool {
	return t.db != nil
}

// Record stores one event. The payload is sanitized before it is
// persisted so the trail never holds raw PII.
func (t *Trail) Record(event, documentID string, payload map[string]any, opErr error) {
	if t.db == nil {
		return
	}

	var payloadJSON string
	if payload != nil {
		if data, err := json.Marshal(logging.Sanitize(payload)); err == nil {
			payloadJSON = string(data)
		}
	}
	errText := ""
	if opErr != nil {
		errText = opErr.Error()
	}

	if _, err := t.db.Exec(
		"INSERT INTO events (event, document_id, payload, error) VALUES (?, ?, ?, ?)",
		event, documentID, payloadJSON, errText,
	); err != nil {
		log.Printf("failed to record trail event: %v", err)
	}
}

// Recent returns the newest events, most recent first.
func (t *Trail) Recent(limit int) ([]Event, error) {
	if t.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := t.db.Query(
		"SELECT id, event, document_id, payload, error, timestamp FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Filter returns events matching the given criteria, newest first.
// Zero-valued criteria match everything.
func (t *Trail) Filter(event, documentID string, since time.Time, limit int) ([]Event, error) {
	if t.db == nil {
		return nil, nil
	}

	query := "SELECT id, event, document_id, payload, error, timestamp FROM events WHERE 1=1"
	var args []any
	if event != "" {
		query += " AND event = ?"
		args = append(args, event)
	}
	if documentID != "" {
		query += " AND document_id = ?"
		args = append(args, documentID)
	}
	if !since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, since)
	}
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := t.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// CountsByEvent returns how many times each event has been recorded.
func (t *Trail) CountsByEvent() (map[string]int, error) {
	if t.db == nil {
		return map[string]int{}, nil
	}
	rows, err := t.db.Query("SELECT event, COUNT(*) FROM events GROUP BY event")
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var event string
		var count int
		if err := rows.Scan(&event, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[event] = count
	}
	return counts, rows.Err()
}

func (t *Trail) Close() {
	if t.db != nil {
		t.db.Close()
	}
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var docID, payload, errText sql.NullString
		if err := rows.Scan(&e.ID, &e.Event, &docID, &payload, &errText, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.DocumentID = docID.String
		e.Payload = payload.String
		e.Error = errText.String
		events = append(events, e)
	}
	return events, rows.Err()
}
