package ingest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gyeh/bolagsload/internal/batch"
	"github.com/gyeh/bolagsload/internal/model"
	"github.com/gyeh/bolagsload/internal/normalize"
	"github.com/gyeh/bolagsload/internal/report"
	"github.com/gyeh/bolagsload/internal/source"
)

// PlanResult describes what a load of the input would do.
type PlanResult struct {
	Outcome       *report.Outcome // candidates and skips; nothing imported
	Records       int             // records that would be sent
	DistinctKeys  int
	DuplicateKeys int // records whose key appeared earlier in the input
	Batches       int // upsert batches at the given chunk size
}

// Plan reads and normalizes the whole input without writing anywhere.
func Plan(ctx context.Context, src source.Reader, chunkSize int, log zerolog.Logger) (*PlanResult, error) {
	out := report.New("plan")
	defer out.Finalize()

	if err := source.ValidateColumns(src.Columns()); err != nil {
		return &PlanResult{Outcome: out}, &PipelineError{Phase: PhaseSource, Err: err}
	}

	hint := 0
	if n := src.NumRows(); n > 0 {
		hint = int(n)
	}
	keys := normalize.NewKeySet(hint)
	var records int
	err := readRecords(ctx, src, out, log, func(rec *model.OrganizationRecord) error {
		keys.Add(rec.OrganisationsIdentitet)
		records++
		return nil
	})
	res := &PlanResult{
		Outcome:       out,
		Records:       records,
		DistinctKeys:  keys.Len(),
		DuplicateKeys: keys.Duplicates(),
	}
	if err != nil {
		return res, &PipelineError{Phase: PhaseSource, Err: err}
	}
	if chunkSize > 0 {
		res.Batches = batch.Count(records, chunkSize)
	}
	return res, nil
}
