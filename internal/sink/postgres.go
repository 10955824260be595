package sink

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/bolagsload/internal/model"
)

// Postgres protocol limit on bind parameters per statement.
const pgMaxParams = 65535

// Postgres upserts batches over a direct pgx connection pool.
type Postgres struct {
	pool  *pgxpool.Pool
	table string
	cols  []string
}

// NewPostgres returns a Postgres sink. The pool stays owned by the caller.
func NewPostgres(pool *pgxpool.Pool, table string) *Postgres {
	return &Postgres{pool: pool, table: table, cols: model.CompanyColumns()}
}

// Ping checks the connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Upsert writes the batch in one transaction, split into statements that fit
// the bind parameter limit.
func (p *Postgres) Upsert(ctx context.Context, b model.LoadBatch, conflictKey string) error {
	if len(b.Records) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	per := rowsPerStatement(pgMaxParams, len(p.cols))
	for chunk := range slices.Chunk(b.Records, per) {
		if err := p.exec(ctx, tx, chunk, conflictKey); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *Postgres) exec(ctx context.Context, tx pgx.Tx, recs []*model.OrganizationRecord, key string) error {
	stmt := upsertStatement(p.table, p.cols, key, len(recs), func(n int) string {
		return "$" + strconv.Itoa(n)
	})
	args := make([]any, 0, len(recs)*len(p.cols))
	for _, r := range recs {
		args = append(args, r.CopyValues()...)
	}
	if _, err := tx.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert %d rows: %w", len(recs), err)
	}
	return nil
}

// Close is a no-op; the pool is closed by its owner.
func (p *Postgres) Close() error { return nil }

var _ Upserter = (*Postgres)(nil)
