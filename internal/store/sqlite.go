package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB implements Store on SQLite (modernc.org/sqlite driver, CGO-free).
// Path is a filesystem path to the database file; use ":memory:" for tests.
type DB struct {
	db *sql.DB
}

var ErrNotFound = errors.New("store: not found")

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS service_state(
			name TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			pid INTEGER NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS service_events(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			pid INTEGER NOT NULL,
			detail TEXT NULL,
			at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_service_events_name ON service_events(name, at);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) RecordEvent(ctx context.Context, ev Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	var detail sql.NullString
	if ev.Detail != "" {
		detail = sql.NullString{String: ev.Detail, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_events(name, kind, pid, detail, at)
		VALUES(?, ?, ?, ?, ?);`,
		ev.Name, ev.Kind, ev.PID, detail, at.UTC())
	return err
}

func (s *DB) SetState(ctx context.Context, name, state string, pid int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_state(name, state, pid, updated_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			state=excluded.state,
			pid=excluded.pid,
			updated_at=excluded.updated_at;`,
		name, state, pid, time.Now().UTC())
	return err
}

func (s *DB) GetState(ctx context.Context, name string) (StateRecord, error) {
	var r StateRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT name, state, pid, updated_at FROM service_state WHERE name=?;`, name).
		Scan(&r.Name, &r.State, &r.PID, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func (s *DB) EventsByName(ctx context.Context, name string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, pid, detail, at
		FROM service_events
		WHERE name=?
		ORDER BY id DESC
		LIMIT ?;`, name, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make([]Event, 0)
	for rows.Next() {
		var ev Event
		var detail sql.NullString
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.Kind, &ev.PID, &detail, &ev.At); err != nil {
			return nil, err
		}
		ev.Detail = detail.String
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *DB) PurgeOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM service_events WHERE at < ?;`, olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
