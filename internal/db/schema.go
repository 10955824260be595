package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/bolagsload/internal/sql"
)

// Execer is the subset of pgxpool.Pool / pgx.Tx used for DDL.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Querier runs single-row queries.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EnsureSchema creates the companies table if it does not exist.
// The DDL uses IF NOT EXISTS so it can run on every deploy.
func EnsureSchema(ctx context.Context, db Execer, log zerolog.Logger) error {
	if _, err := db.Exec(ctx, embedsql.CompaniesSchema); err != nil {
		return fmt.Errorf("apply companies schema: %w", err)
	}
	log.Info().Msg("companies schema applied")
	return nil
}

// CountRows returns the row count of a possibly schema-qualified table.
func CountRows(ctx context.Context, db Querier, table string) (int64, error) {
	var n int64
	q := "SELECT count(*) FROM " + Identifier(table).Sanitize()
	if err := db.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Identifier splits "schema.table" into a pgx.Identifier.
func Identifier(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
