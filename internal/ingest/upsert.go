package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/bolagsload/internal/batch"
	"github.com/gyeh/bolagsload/internal/model"
	"github.com/gyeh/bolagsload/internal/normalize"
	"github.com/gyeh/bolagsload/internal/report"
	"github.com/gyeh/bolagsload/internal/sink"
	"github.com/gyeh/bolagsload/internal/source"
)

// Upsert sends records to Sink in sequential batches of ChunkSize. A
// rejected batch is counted and the run moves on.
type Upsert struct {
	Sink        sink.Upserter
	ChunkSize   int
	ConflictKey string
	Timeout     time.Duration // per batch; zero means no limit

	// Progress receives one line per finished batch when set.
	Progress io.Writer
}

// Mode implements Strategy.
func (Upsert) Mode() string { return "upsert" }

func (s Upsert) load(ctx context.Context, src source.Reader, out *report.Outcome, log zerolog.Logger) error {
	if s.ChunkSize < 1 {
		return &PipelineError{Phase: PhaseConfig, Err: fmt.Errorf("chunk size must be greater than zero, got %d", s.ChunkSize)}
	}
	if s.ConflictKey == "" {
		s.ConflictKey = model.KeyColumn
	}

	if err := s.Sink.Ping(ctx); err != nil {
		return &PipelineError{Phase: PhaseConnect, Err: err}
	}

	var recs []*model.OrganizationRecord
	if n := src.NumRows(); n > 0 {
		recs = make([]*model.OrganizationRecord, 0, n)
	}
	keys := normalize.NewKeySet(cap(recs))
	err := readRecords(ctx, src, out, log, func(rec *model.OrganizationRecord) error {
		keys.Add(rec.OrganisationsIdentitet)
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return &PipelineError{Phase: PhaseSource, Err: err}
	}
	if d := keys.Duplicates(); d > 0 {
		log.Warn().Int("duplicate_keys", d).Msg("input repeats natural keys; later rows overwrite earlier ones")
	}

	log.Info().
		Int("records", len(recs)).
		Int("batches", batch.Count(len(recs), s.ChunkSize)).
		Int("chunk_size", s.ChunkSize).
		Msg("starting upsert")

	for chunk := range batch.Chunks(recs, s.ChunkSize) {
		if err := ctx.Err(); err != nil {
			return &PipelineError{Phase: PhaseUpsert, Err: err}
		}

		b, dropped := batch.Dedupe(chunk)
		out.AddDuplicates(dropped)

		if err := s.write(ctx, b); err != nil {
			berr := &BatchError{Batch: b.Number, Total: b.Total, Rows: len(b.Records), Err: err}
			out.AddBatch(false)
			log.Error().Err(berr).Int("batch", b.Number).Msg("batch rejected")
			s.progress(out.Progress(b, err))
			continue
		}
		out.AddBatch(true)
		out.AddImported(len(b.Records))
		log.Debug().Int("batch", b.Number).Int("rows", len(b.Records)).Msg("batch upserted")
		s.progress(out.Progress(b, nil))
	}
	return nil
}

func (s Upsert) write(ctx context.Context, b model.LoadBatch) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.Sink.Upsert(ctx, b, s.ConflictKey)
}

func (s Upsert) progress(line string) {
	if s.Progress != nil {
		fmt.Fprintln(s.Progress, line)
	}
}
