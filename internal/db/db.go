// Package db provides PostgreSQL persistence for auction listings.
package db

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool size bounds: enough headroom for concurrent enrichment workers
// without exhausting the server's connection budget.
const (
	minPoolSize = 4
	maxPoolSize = 32
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// PoolSize returns a connection pool size for the given worker
// concurrency, clamped to [minPoolSize, maxPoolSize].
func PoolSize(concurrency int) int {
	size := concurrency / 2
	if size < minPoolSize {
		return minPoolSize
	}
	if size > maxPoolSize {
		return maxPoolSize
	}
	return size
}

// Connect establishes a connection pool sized for the given worker
// concurrency and verifies the database is reachable.
func Connect(ctx context.Context, databaseURL string, concurrency int) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	cfg.MinConns = 1
	cfg.MaxConns = int32(PoolSize(concurrency))

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Target renders a database URL as "dbname@host:port" for startup
// diagnostics, omitting credentials.
func Target(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "unknown"
	}
	name := ""
	if len(u.Path) > 1 {
		name = u.Path[1:]
	}
	return fmt.Sprintf("%s@%s", name, u.Host)
}
