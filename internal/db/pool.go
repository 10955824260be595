package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	applicationName = "bolagsload"

	// Supabase's transaction pooler (Supavisor/pgbouncer) listens here and
	// cannot keep named prepared statements across transactions.
	transactionPoolerPort = 6543

	pingTimeout = 15 * time.Second
)

// NewPool connects to Postgres for a load run and verifies the connection.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// poolConfig parses dsn and applies the session settings for bulk loads.
func poolConfig(dsn string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	// Statement timeout is disabled for the session; per-call deadlines come
	// from the caller's context.
	rp := cfg.ConnConfig.RuntimeParams
	rp["statement_timeout"] = "0"
	if rp["application_name"] == "" {
		rp["application_name"] = applicationName
	}

	if cfg.ConnConfig.Port == transactionPoolerPort {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec
	}

	// The COPY transaction holds one connection; verification counts use
	// the other.
	cfg.MaxConns = 2
	return cfg, nil
}
