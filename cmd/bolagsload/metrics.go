package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/bolagsload/internal/metrics"
	"github.com/gyeh/bolagsload/internal/report"
)

// pushMetrics is best effort; a failed push never changes the exit code.
func pushMetrics(log zerolog.Logger, out *report.Outcome) {
	p, err := metrics.NewPusher(cfg.PushgatewayURL, metrics.DefaultJob)
	if err != nil {
		log.Warn().Err(err).Msg("metrics disabled")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.Push(ctx, out); err != nil {
		log.Warn().Err(err).Msg("metrics push failed")
		return
	}
	log.Debug().Str("gateway", cfg.PushgatewayURL).Msg("metrics pushed")
}
