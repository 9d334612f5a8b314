// Package record persists the input events a session drains so that a run
// can be replayed frame by frame.
package record

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"norse/internal/input"
)

//go:embed schema.sql
var schema string

// ErrSessionNotFound is returned when no recording exists for a session id.
var ErrSessionNotFound = errors.New("record: session not found")

// SessionInfo describes one recorded session.
type SessionInfo struct {
	ID        uuid.UUID
	Profile   string
	CreatedAt time.Time
	Events    int
}

// Frame is the batch of events drained during one tick.
type Frame struct {
	Number uint64
	Events []input.InputEvent
}

// Store provides SQLite-backed event recordings.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a recording database and creates its tables.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateSession registers a recording for id.
func (s *Store) CreateSession(ctx context.Context, id uuid.UUID, profile string) error {
	if id == uuid.Nil {
		return fmt.Errorf("session id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO sessions (id, profile, created_at) VALUES (?, ?, ?)`,
		id.String(), profile, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// AppendFrame stores the events of one frame in a single transaction.
func (s *Store) AppendFrame(ctx context.Context, id uuid.UUID, frame uint64, events []input.InputEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (session_id, frame, seq, type, payload) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare frame insert: %w", err)
	}
	defer stmt.Close()

	for seq, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, id.String(), int64(frame), seq, string(ev.Type), string(payload)); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit frame: %w", err)
	}
	return nil
}

// Sessions lists recordings, newest first.
func (s *Store) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT s.id, s.profile, s.created_at, COUNT(e.seq)
FROM sessions s
LEFT JOIN events e ON e.session_id = s.id
GROUP BY s.id
ORDER BY s.created_at DESC, s.id
`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var (
			info    SessionInfo
			rawID   string
			created int64
		)
		if err := rows.Scan(&rawID, &info.Profile, &created, &info.Events); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if info.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("parse session id: %w", err)
		}
		info.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

// Frames loads every non-empty frame of a recording in order.
func (s *Store) Frames(ctx context.Context, id uuid.UUID) ([]Frame, error) {
	var exists int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT frame, payload FROM events WHERE session_id = ? ORDER BY frame, seq`, id.String())
	if err != nil {
		return nil, fmt.Errorf("load frames: %w", err)
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var (
			number  int64
			payload string
			ev      input.InputEvent
		)
		if err := rows.Scan(&number, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		if n := len(frames); n == 0 || frames[n-1].Number != uint64(number) {
			frames = append(frames, Frame{Number: uint64(number)})
		}
		last := &frames[len(frames)-1]
		last.Events = append(last.Events, ev)
	}
	return frames, rows.Err()
}
