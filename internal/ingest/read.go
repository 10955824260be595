package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/gyeh/bolagsload/internal/model"
	"github.com/gyeh/bolagsload/internal/normalize"
	"github.com/gyeh/bolagsload/internal/report"
	"github.com/gyeh/bolagsload/internal/source"
)

// readRecords pulls every row from src, normalizes it and passes each
// importable record to emit in input order. Empty and malformed rows are
// counted on out and never reach emit. Only read failures that end the input
// and emit errors stop the loop.
func readRecords(ctx context.Context, src source.Reader, out *report.Outcome, log zerolog.Logger,
	emit func(*model.OrganizationRecord) error) error {

	norm := normalize.New()
	var row int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		row++
		out.AddCandidate()

		if err != nil {
			var rowErr *source.RowError
			if errors.As(err, &rowErr) {
				out.AddSkipped(true)
				log.Warn().Err(err).Int64("row", row).Msg("row rejected")
				continue
			}
			return fmt.Errorf("read row %d: %w", row, err)
		}

		rec, err := norm.Record(raw)
		if err != nil {
			if errors.Is(err, normalize.ErrEmptyRecord) {
				out.AddSkipped(false)
				continue
			}
			var mal *normalize.MalformedRowError
			if errors.As(err, &mal) {
				out.AddSkipped(true)
				log.Warn().Err(err).Int64("row", row).Str("field", mal.Field).Msg("row rejected")
				continue
			}
			return fmt.Errorf("normalize row %d: %w", row, err)
		}

		if err := emit(rec); err != nil {
			return err
		}
	}
}
