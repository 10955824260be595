package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gyeh/bolagsload/internal/db"
	"github.com/gyeh/bolagsload/internal/model"
	"github.com/gyeh/bolagsload/internal/report"
	"github.com/gyeh/bolagsload/internal/source"
)

const copyBufferSize = 1024

// BulkCopy streams every record into Table with a single COPY inside one
// transaction. Any failure rolls the whole load back.
type BulkCopy struct {
	Pool    *pgxpool.Pool
	Table   string
	Timeout time.Duration // zero means no limit
}

// Mode implements Strategy.
func (BulkCopy) Mode() string { return "copy" }

func (s BulkCopy) load(ctx context.Context, src source.Reader, out *report.Outcome, log zerolog.Logger) error {
	start := time.Now()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	before, err := db.CountRows(ctx, s.Pool, s.Table)
	if err != nil {
		return &PipelineError{Phase: PhaseCopy, Err: err}
	}
	if before > 0 {
		log.Warn().
			Int64("existing_rows", before).
			Str("table", s.Table).
			Msg("target table is not empty; conflicting keys will abort the copy")
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return &PipelineError{Phase: PhaseCopy, Err: fmt.Errorf("begin: %w", err)}
	}
	defer tx.Rollback(context.Background())

	ch := make(chan *model.OrganizationRecord, copyBufferSize)
	g, gctx := errgroup.WithContext(ctx)

	// Producer: read → normalize → channel.
	g.Go(func() error {
		defer close(ch)
		return readRecords(gctx, src, out, log, func(rec *model.OrganizationRecord) error {
			select {
			case ch <- rec:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	// Consumer: COPY from the channel.
	var copied int64
	g.Go(func() error {
		n, err := tx.CopyFrom(gctx, db.Identifier(s.Table), model.CompanyColumns(), db.NewChannelSource(ch))
		if err != nil {
			return fmt.Errorf("copy into %s: %w", s.Table, err)
		}
		copied = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return &PipelineError{Phase: PhaseCopy, Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return &PipelineError{Phase: PhaseCopy, Err: fmt.Errorf("commit: %w", err)}
	}
	out.AddImported(int(copied))

	after, err := db.CountRows(ctx, s.Pool, s.Table)
	if err != nil {
		log.Warn().Err(err).Msg("verification count failed")
	} else {
		out.SetTableRows(after)
	}

	dur := time.Since(start)
	log.Info().
		Int64("rows_copied", copied).
		Int64("table_rows", after).
		Str("duration", dur.String()).
		Float64("rows_per_sec", float64(copied)/dur.Seconds()).
		Msg("copy complete")
	return nil
}
