// Package postgres wraps database/sql with the lib/pq driver and owns the
// schema shared by the batch and URL stores.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/resilience"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id           TEXT PRIMARY KEY,
	user_id_hash TEXT NOT NULL,
	timestamp    BIGINT NOT NULL,
	items        JSONB NOT NULL,
	status       SMALLINT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS batches_status_idx ON batches (status, timestamp);

CREATE TABLE IF NOT EXISTS urls (
	url          TEXT PRIMARY KEY,
	domain       TEXT NOT NULL,
	status       SMALLINT NOT NULL,
	score        DOUBLE PRECISION NOT NULL DEFAULT 0,
	user_id_hash TEXT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS urls_status_idx ON urls (status, score DESC);
`

// Client owns the connection pool of one database.
type Client struct {
	DB *sql.DB
}

// New opens a pool sized by cfg and waits for the server to answer,
// retrying with backoff so the indexer can start alongside its database.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	err = resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{
		MaxAttempts:  6,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Client{DB: db}, nil
}

// NewFromDB wraps an already opened handle.
func NewFromDB(db *sql.DB) *Client {
	return &Client{DB: db}
}

// Migrate creates the batches and urls tables when missing.
func (c *Client) Migrate(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// InTx runs fn in a transaction. It commits when fn returns nil and rolls
// back otherwise, returning fn's error.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, ignoreDone(tx.Rollback()))
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func ignoreDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
