package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gyeh/bolagsload/internal/exitcode"
	"github.com/gyeh/bolagsload/internal/ingest"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitcode.Success},
		{"config", &ingest.PipelineError{Phase: ingest.PhaseConfig, Err: errors.New("x")}, exitcode.UsageError},
		{"source", &ingest.PipelineError{Phase: ingest.PhaseSource, Err: errors.New("x")}, exitcode.ValidationError},
		{"connect", &ingest.PipelineError{Phase: ingest.PhaseConnect, Err: errors.New("x")}, exitcode.DBConnError},
		{"copy", &ingest.PipelineError{Phase: ingest.PhaseCopy, Err: errors.New("x")}, exitcode.CopyError},
		{"wrapped copy", fmt.Errorf("run: %w", &ingest.PipelineError{Phase: ingest.PhaseCopy, Err: errors.New("x")}), exitcode.CopyError},
		{"interrupted upsert", &ingest.PipelineError{Phase: ingest.PhaseUpsert, Err: context.Canceled}, exitcode.InternalError},
		{"plain error", errors.New("boom"), exitcode.InternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
