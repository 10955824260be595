// Package metrics pushes the final outcome of a load run to a Prometheus
// Pushgateway. A batch job has no scrape endpoint, so counters are pushed
// once at the end.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/gyeh/bolagsload/internal/report"
)

// DefaultJob is the Pushgateway job name used when none is given.
const DefaultJob = "bolagsload"

// Pusher owns a private registry with the run collectors.
type Pusher struct {
	gatewayURL string
	job        string
	reg        *prometheus.Registry

	records  *prometheus.GaugeVec // bolagsload_records{kind}
	batches  *prometheus.GaugeVec // bolagsload_batches{status}
	duration prometheus.Gauge
	lastRun  prometheus.Gauge
}

// NewPusher builds a Pusher for gatewayURL.
func NewPusher(gatewayURL, job string) (*Pusher, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("metrics: gateway URL is required")
	}
	if job == "" {
		job = DefaultJob
	}

	reg := prometheus.NewRegistry()
	records := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bolagsload_records",
		Help: "Record counts of the last run by kind (candidate, imported, skipped, malformed, duplicate).",
	}, []string{"kind"})
	batches := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bolagsload_batches",
		Help: "Upsert batches of the last run by status.",
	}, []string{"status"})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bolagsload_duration_seconds",
		Help: "Wall time of the last run.",
	})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bolagsload_last_run_timestamp_seconds",
		Help: "Unix time the last run finished.",
	})

	for _, c := range []prometheus.Collector{records, batches, duration, lastRun} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}

	return &Pusher{
		gatewayURL: gatewayURL,
		job:        job,
		reg:        reg,
		records:    records,
		batches:    batches,
		duration:   duration,
		lastRun:    lastRun,
	}, nil
}

// Record copies the outcome counters into the collectors.
func (p *Pusher) Record(o *report.Outcome) {
	p.records.WithLabelValues("candidate").Set(float64(o.Candidates))
	p.records.WithLabelValues("imported").Set(float64(o.Imported))
	p.records.WithLabelValues("skipped").Set(float64(o.Skipped))
	p.records.WithLabelValues("malformed").Set(float64(o.Malformed))
	p.records.WithLabelValues("duplicate").Set(float64(o.DuplicateKeys))
	p.batches.WithLabelValues("ok").Set(float64(o.Batches - o.ErroredBatches))
	p.batches.WithLabelValues("error").Set(float64(o.ErroredBatches))
	p.duration.Set(o.Duration.Seconds())
	p.lastRun.Set(float64(o.Started.Add(o.Duration).Unix()))
}

// Push records o and replaces the metric group for this job and mode.
func (p *Pusher) Push(ctx context.Context, o *report.Outcome) error {
	p.Record(o)
	pu := push.New(p.gatewayURL, p.job).Gatherer(p.reg)
	if o.Mode != "" {
		pu = pu.Grouping("mode", o.Mode)
	}
	if err := pu.PushContext(ctx); err != nil {
		return fmt.Errorf("metrics: push: %w", err)
	}
	return nil
}
