package sink

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gyeh/bolagsload/internal/model"
	embedsql "github.com/gyeh/bolagsload/internal/sql"
)

// Default SQLITE_MAX_VARIABLE_NUMBER since 3.32.
const sqliteMaxParams = 32766

// SQLite upserts batches into a local SQLite database file.
type SQLite struct {
	db    *sql.DB
	table string
	cols  []string
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// target table exists.
func OpenSQLite(ctx context.Context, path, table string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: path must not be empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One writer; the run is sequential anyway.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema(table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &SQLite{db: db, table: table, cols: model.CompanyColumns()}, nil
}

// sqliteSchema renders the embedded DDL for the given table name.
func sqliteSchema(table string) string {
	const head = "CREATE TABLE IF NOT EXISTS companies ("
	return strings.Replace(embedsql.CompaniesSchemaSQLite, head,
		"CREATE TABLE IF NOT EXISTS "+quoteFQN(table)+" (", 1)
}

// DB exposes the underlying handle for verification reads.
func (s *SQLite) DB() *sql.DB { return s.db }

// Ping checks the database handle.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Upsert writes the batch inside one transaction.
func (s *SQLite) Upsert(ctx context.Context, b model.LoadBatch, conflictKey string) error {
	if len(b.Records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback()

	per := rowsPerStatement(sqliteMaxParams, len(s.cols))
	for chunk := range slices.Chunk(b.Records, per) {
		stmt := upsertStatement(s.table, s.cols, conflictKey, len(chunk), func(int) string { return "?" })
		args := make([]any, 0, len(chunk)*len(s.cols))
		for _, r := range chunk {
			args = append(args, r.PlainValues()...)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("sqlite: upsert %d rows: %w", len(chunk), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

var _ Upserter = (*SQLite)(nil)
