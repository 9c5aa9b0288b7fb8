package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/smarttransit/bus-booking-backend/internal/config"
)

// Querier is the query surface shared by *sqlx.DB and *sqlx.Tx, so the same
// repository method can run inside or outside a transaction.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// DB interface defines database operations
type DB interface {
	Querier
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	PingContext(ctx context.Context) error
	Ping() error
	Close() error
}

// PostgresDB implements the DB interface using sqlx
type PostgresDB struct {
	*sqlx.DB
}

// NewConnection creates a new database connection
func NewConnection(cfg config.DatabaseConfig) (*PostgresDB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	// Connection poolers (pgbouncer, Supavisor) reject the extended protocol's
	// prepared statements across sessions.
	connectionURL := cfg.URL
	if !strings.Contains(connectionURL, "prefer_simple_protocol") && strings.Contains(connectionURL, "pooler") {
		separator := "?"
		if strings.Contains(connectionURL, "?") {
			separator = "&"
		}
		connectionURL = connectionURL + separator + "prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{DB: db}, nil
}

// Transactor runs units of work in a database transaction. Every transaction
// sets a local lock_timeout so a seat mutation waiting on a schedule row lock
// fails with a retryable error instead of hanging.
type Transactor struct {
	db          DB
	lockTimeout time.Duration
}

// NewTransactor creates a transaction runner
func NewTransactor(db DB, lockTimeout time.Duration) *Transactor {
	return &Transactor{db: db, lockTimeout: lockTimeout}
}

// WithinTx runs fn in a transaction. The transaction commits only when fn
// returns nil; any error rolls everything back.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", Translate(err))
	}
	defer tx.Rollback()

	if t.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", t.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set lock timeout: %w", Translate(err))
		}
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", Translate(err))
	}
	return nil
}
