package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gyeh/bolagsload/internal/report"
	"github.com/gyeh/bolagsload/internal/source"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Phases reported by PipelineError.
const (
	PhaseConfig  = "config"
	PhaseSource  = "source"
	PhaseConnect = "connect"
	PhaseCopy    = "copy"
	PhaseUpsert  = "upsert"
)

// BatchError reports a batch the sink rejected. It is recorded and the run
// continues with the next batch.
type BatchError struct {
	Batch int
	Total int
	Rows  int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d/%d (%d rows): %s", e.Batch, e.Total, e.Rows, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Strategy is the loader selected for a run: BulkCopy or Upsert.
type Strategy interface {
	// Mode names the strategy in logs and reports.
	Mode() string
	load(ctx context.Context, src source.Reader, out *report.Outcome, log zerolog.Logger) error
}

// Run validates the input columns and loads every record from src with the
// given strategy. The returned outcome is finalized and carries partial
// counts when err is non-nil.
func Run(ctx context.Context, src source.Reader, strategy Strategy, log zerolog.Logger) (*report.Outcome, error) {
	out := report.New(strategy.Mode())
	defer out.Finalize()

	log = log.With().Str("mode", strategy.Mode()).Logger()

	if err := source.ValidateColumns(src.Columns()); err != nil {
		return out, &PipelineError{Phase: PhaseSource, Err: err}
	}
	if n := src.NumRows(); n >= 0 {
		log.Info().Int64("rows", n).Msg("input opened")
	}

	if err := strategy.load(ctx, src, out, log); err != nil {
		return out, err
	}

	log.Info().
		Int64("candidates", out.Candidates).
		Int64("imported", out.Imported).
		Int64("skipped", out.Skipped).
		Int64("malformed", out.Malformed).
		Int("errored_batches", out.ErroredBatches).
		Msg("load complete")
	return out, nil
}
