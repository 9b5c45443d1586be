// Package db provides PostgreSQL storage for companies, saved prospects and the job queue.
package db

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/jonathan/prospector/internal/queue"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool   *pgxpool.Pool
	policy queue.RetryPolicy
	lease  time.Duration
}

// Option configures a DB.
type Option func(*DB)

// WithRetryPolicy sets the backoff applied by the job queue.
func WithRetryPolicy(p queue.RetryPolicy) Option {
	return func(db *DB) { db.policy = p }
}

// WithLease sets how long a running job may go without finishing before
// another worker may reclaim it.
func WithLease(d time.Duration) Option {
	return func(db *DB) { db.lease = d }
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string, opts ...Option) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{pool: pool, policy: queue.DefaultRetryPolicy, lease: 5 * time.Minute}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate runs a goose command ("up", "down", "status", ...) against the
// embedded migrations.
func (db *DB) Migrate(ctx context.Context, command string, args ...string) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)
	defer func() { _ = sqlDB.Close() }()

	if err := goose.RunContext(ctx, command, sqlDB, "migrations", args...); err != nil {
		return fmt.Errorf("migrate %s failed: %w", command, err)
	}
	return nil
}
