package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/phanxgames/badgekit"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS badge_layouts (
	badge_id   TEXT PRIMARY KEY,
	layout     TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps layouts in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)
	s, err := NewSQLiteStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database and creates the table if needed.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("migrate badge_layouts: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load implements badgekit.LayoutStore.
func (s *SQLiteStore) Load(ctx context.Context, badgeID string) (badgekit.PersistedLayout, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT layout FROM badge_layouts WHERE badge_id = ?`, badgeID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", badgekit.ErrLayoutNotFound, badgeID)
	}
	if err != nil {
		return nil, fmt.Errorf("load layout %s: %w", badgeID, err)
	}
	return badgekit.DecodeLayout([]byte(raw))
}

// Save implements badgekit.LayoutStore.
func (s *SQLiteStore) Save(ctx context.Context, badgeID string, l badgekit.Layout) error {
	raw, err := badgekit.EncodeLayout(l)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO badge_layouts (badge_id, layout, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(badge_id) DO UPDATE SET layout = excluded.layout, updated_at = excluded.updated_at`,
		badgeID, string(raw), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save layout %s: %w", badgeID, err)
	}
	return nil
}

// UpdatedAt returns when a badge's layout was last saved.
func (s *SQLiteStore) UpdatedAt(ctx context.Context, badgeID string) (time.Time, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM badge_layouts WHERE badge_id = ?`, badgeID).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: %s", badgekit.ErrLayoutNotFound, badgeID)
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
