package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS page_cache (
	key       TEXT PRIMARY KEY,
	value     BYTEA NOT NULL,
	stored_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Postgres is a Store shared by several server instances
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects, verifies the connection and ensures the table exists
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create page_cache: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Get implements Store
func (p *Postgres) Get(ctx context.Context, key string) (*Entry, error) {
	e := Entry{Key: key}
	err := p.pool.QueryRow(ctx,
		`SELECT value, stored_at FROM page_cache WHERE key = $1`, key,
	).Scan(&e.Value, &e.StoredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return &e, nil
}

// Put implements Store
func (p *Postgres) Put(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO page_cache (key, value, stored_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = $2, stored_at = NOW()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

// Delete implements Store
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM page_cache WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Close implements Store
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
