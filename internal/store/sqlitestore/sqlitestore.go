// Package sqlitestore provides a SQLite-backed event store for local and
// development setups.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"blockcal/internal/model"
	"blockcal/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	start_at   TEXT NOT NULL,
	end_at     TEXT NOT NULL,
	hours      REAL NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_start ON events (start_at);
`

// Store persists event records in SQLite. Ids are minted as UUIDs on create.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
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
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// FetchAll implements store.Store, ordered by start then id.
func (s *Store) FetchAll(ctx context.Context) ([]store.Stored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, title, start_at, end_at, hours
		   FROM events
		  ORDER BY start_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	defer rows.Close()

	out := make([]store.Stored, 0)
	for rows.Next() {
		var st store.Stored
		if err := rows.Scan(&st.ID, &st.Record.Title, &st.Record.Start, &st.Record.End, &st.Record.Hours); err != nil {
			return nil, fmt.Errorf("fetch events: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	return out, nil
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, rec model.EventRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateRecord(rec); err != nil {
		return "", err
	}

	id := uuid.NewString()
	now := time.Now().UTC().UnixMilli()
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO events (id, title, start_at, end_at, hours, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, rec.Title, rec.Start, rec.End, rec.Hours, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	return id, nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, id string, rec model.EventRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("event id is required")
	}
	if err := validateRecord(rec); err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE events
		    SET title = ?, start_at = ?, end_at = ?, hours = ?, updated_at = ?
		  WHERE id = ?`,
		rec.Title, rec.Start, rec.End, rec.Hours, time.Now().UTC().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return ensureAffected(res)
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("event id is required")
	}

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return ensureAffected(res)
}

func ensureAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func validateRecord(rec model.EventRecord) error {
	start, err := model.ParseWireTime(rec.Start)
	if err != nil {
		return fmt.Errorf("invalid start %q: %w", rec.Start, err)
	}
	end, err := model.ParseWireTime(rec.End)
	if err != nil {
		return fmt.Errorf("invalid end %q: %w", rec.End, err)
	}
	if end.Before(start) {
		return errors.New("event end is before start")
	}
	return nil
}

var _ store.Store = (*Store)(nil)
