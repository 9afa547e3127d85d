package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS scan_history (
	id           BIGSERIAL PRIMARY KEY,
	scanned_at   TIMESTAMPTZ NOT NULL,
	score        INTEGER     NOT NULL,
	total_issues INTEGER     NOT NULL,
	counts       JSONB       NOT NULL,
	duration_ms  BIGINT      NOT NULL
);
CREATE INDEX IF NOT EXISTS scan_history_scanned_at ON scan_history (scanned_at DESC);
`

// DB wraps pgxpool.Pool for database operations
type DB struct {
	pool  *pgxpool.Pool
	limit int
}

// NewDB creates a new DB connection pool and ensures the schema exists.
// limit is how many history rows are kept.
func NewDB(ctx context.Context, url string, limit int) (*DB, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	d := &DB{pool: pool, limit: limit}
	if err := d.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return d, nil
}

// Migrate creates the tables
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgxpool.Pool
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}
