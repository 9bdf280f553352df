package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS page_cache (
	key       TEXT PRIMARY KEY,
	value     BLOB NOT NULL,
	stored_at INTEGER NOT NULL
)`

// SQLite is a Store in a local SQLite file
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite opens or creates the cache database at path
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("cache: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating cache table: %w", err)
	}

	return &SQLite{db: db, path: path}, nil
}

// Get implements Store
func (s *SQLite) Get(ctx context.Context, key string) (*Entry, error) {
	var value []byte
	var storedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, stored_at FROM page_cache WHERE key = ?`, key,
	).Scan(&value, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}
	return &Entry{Key: key, Value: value, StoredAt: time.Unix(0, storedAt)}, nil
}

// Put implements Store
func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO page_cache (key, value, stored_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at`,
		key, value, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Delete implements Store
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM page_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

// Path returns the database file path
func (s *SQLite) Path() string {
	return s.path
}

// Close implements Store
func (s *SQLite) Close() error {
	return s.db.Close()
}
