// Package database provides a thin PostgreSQL access layer for archive
// metadata queries.
//
// A DB wraps a pgx connection pool with convenience methods for ad hoc
// reads, writes, and transactions. Construction from an empty Config
// yields an unavailable DB whose methods fail cleanly, so callers that
// treat the database as optional can skip configuration without
// branching at every call site.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotConfigured is returned by operations on a DB built from an
// empty Config.
var ErrNotConfigured = errors.New("database: not configured")

// Config holds connection parameters. A zero Config is valid and
// produces an unavailable DB.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// dsn renders the config as a connection URL.
func (c Config) dsn() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + strconv.Itoa(port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{c.SSLMode}}.Encode()
	}
	return u.String()
}

// DB is a pooled database handle.
type DB struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for query tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// Connect opens a connection pool for cfg and verifies it with a ping.
// An empty cfg (no host) returns an unavailable DB and no error.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*DB, error) {
	db := &DB{logger: slog.Default()}
	for _, opt := range opts {
		opt(db)
	}

	if cfg.Host == "" {
		return db, nil
	}

	pool, err := pgxpool.New(ctx, cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	db.pool = pool
	db.logger.Debug("database connected", "host", cfg.Host, "database", cfg.Database)
	return db, nil
}

// Available reports whether the DB holds a live pool.
func (db *DB) Available() bool {
	return db != nil && db.pool != nil
}

// Read runs a query and returns all rows as value slices in column
// order.
func (db *DB) Read(ctx context.Context, query string, args ...any) ([][]any, error) {
	if !db.Available() {
		return nil, ErrNotConfigured
	}
	db.logger.Debug("database read", "query", query)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database: query: %w", err)
	}
	defer rows.Close()

	var results [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("database: scan row: %w", err)
		}
		results = append(results, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: read rows: %w", err)
	}
	return results, nil
}

// Write runs a statement and returns the number of rows affected.
func (db *DB) Write(ctx context.Context, query string, args ...any) (int64, error) {
	if !db.Available() {
		return 0, ErrNotConfigured
	}
	db.logger.Debug("database write", "query", query)

	tag, err := db.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("database: exec: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Transaction runs fn inside a transaction, committing on nil return
// and rolling back otherwise.
func (db *DB) Transaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if !db.Available() {
		return ErrNotConfigured
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("database: rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database: commit: %w", err)
	}
	return nil
}

// Close releases the pool. It is safe on an unavailable DB.
func (db *DB) Close() {
	if db.Available() {
		db.pool.Close()
		db.pool = nil
	}
}
