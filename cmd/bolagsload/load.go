package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/bolagsload/internal/config"
	"github.com/gyeh/bolagsload/internal/db"
	"github.com/gyeh/bolagsload/internal/exitcode"
	"github.com/gyeh/bolagsload/internal/ingest"
	"github.com/gyeh/bolagsload/internal/logging"
	"github.com/gyeh/bolagsload/internal/sink"
	"github.com/gyeh/bolagsload/internal/source"
)

var createTable bool

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a snapshot file into the companies table",
	RunE:  runLoad,
}

func init() {
	f := loadCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to .parquet or .csv snapshot (required)")
	f.StringVar((*string)(&cfg.Mode), "mode", string(cfg.Mode), "Loader: copy (one COPY, empty table) or upsert (batched insert-or-update)")
	f.StringVar((*string)(&cfg.Sink), "sink", string(cfg.Sink), "Upsert sink: postgres, rest or sqlite")
	f.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "Records per upsert batch")
	f.StringVar(&cfg.ConflictKey, "conflict-key", cfg.ConflictKey, "Natural key column for upserts")
	f.DurationVar(&cfg.BatchTimeout, "batch-timeout", cfg.BatchTimeout, "Per-batch upsert timeout (0 disables)")
	f.DurationVar(&cfg.CopyTimeout, "copy-timeout", cfg.CopyTimeout, "Whole-COPY timeout (0 disables)")
	f.StringVar(&cfg.RESTURL, "rest-url", os.Getenv("SUPABASE_URL"), "Record API base URL for the rest sink (or set SUPABASE_URL)")
	f.StringVar(&cfg.RESTKey, "rest-key", os.Getenv("SUPABASE_SERVICE_ROLE_KEY"), "Service role key for the rest sink (or set SUPABASE_SERVICE_ROLE_KEY)")
	f.StringVar(&cfg.SQLitePath, "sqlite-path", "", "Database file for the sqlite sink")
	f.StringVar(&cfg.PushgatewayURL, "pushgateway-url", os.Getenv("PUSHGATEWAY_URL"), "Push run metrics to this Pushgateway (or set PUSHGATEWAY_URL)")
	f.BoolVar(&createTable, "create-table", false, "Apply the companies DDL before loading (postgres only)")
	_ = loadCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	if code := load(); code != exitcode.Success {
		os.Exit(code)
	}
	return nil
}

func load() int {
	log, runID := logging.WithRun(logging.Setup(cfg.LogFormat, cfg.LogLevel))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.ValidateForLoad(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		return exitcode.UsageError
	}

	fp, err := source.FingerprintFile(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash file")
		return exitcode.ValidationError
	}
	log.Info().
		Str("file", fp.Path).
		Str("sha256", fp.SHA256).
		Int64("bytes", fp.Size).
		Str("run_id", runID).
		Msg("starting load")

	src, err := source.Open(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to open input")
		return exitcode.ValidationError
	}
	defer src.Close()

	strategy, closeFn, err := buildStrategy(ctx, log)
	if err != nil {
		log.Error().Err(err).Msg("sink connection failed")
		return exitcode.DBConnError
	}
	defer closeFn()

	out, err := ingest.Run(ctx, src, strategy, log)
	code := exitCodeFor(err)
	if err != nil {
		var pe *ingest.PipelineError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("load failed")
		} else {
			log.Error().Err(err).Msg("load failed")
		}
	}

	if out != nil {
		if code == exitcode.Success {
			_ = out.WriteSummary(os.Stdout)
		}
		if cfg.PushgatewayURL != "" {
			pushMetrics(log, out)
		}
	}
	return code
}

// buildStrategy opens the sink for the configured mode. closeFn releases it.
func buildStrategy(ctx context.Context, log zerolog.Logger) (ingest.Strategy, func(), error) {
	noop := func() {}

	if cfg.Mode == config.ModeCopy || cfg.Sink == config.SinkPostgres {
		pool, err := db.NewPool(ctx, cfg.DSN)
		if err != nil {
			return nil, noop, err
		}
		if createTable {
			if err := db.EnsureSchema(ctx, pool, log); err != nil {
				pool.Close()
				return nil, noop, err
			}
		}
		if cfg.Mode == config.ModeCopy {
			return ingest.BulkCopy{Pool: pool, Table: cfg.Table, Timeout: cfg.CopyTimeout}, pool.Close, nil
		}
		return upsertStrategy(sink.NewPostgres(pool, cfg.Table)), pool.Close, nil
	}

	var up sink.Upserter
	switch cfg.Sink {
	case config.SinkREST:
		r, err := sink.NewREST(cfg.RESTURL, cfg.RESTKey, cfg.Table, sink.WithLogger(log))
		if err != nil {
			return nil, noop, err
		}
		up = r
	case config.SinkSQLite:
		s, err := sink.OpenSQLite(ctx, cfg.SQLitePath, cfg.Table)
		if err != nil {
			return nil, noop, err
		}
		up = s
	default:
		return nil, noop, fmt.Errorf("unknown sink %q", cfg.Sink)
	}
	return upsertStrategy(up), func() { _ = up.Close() }, nil
}

func upsertStrategy(up sink.Upserter) ingest.Upsert {
	return ingest.Upsert{
		Sink:        up,
		ChunkSize:   cfg.ChunkSize,
		ConflictKey: cfg.ConflictKey,
		Timeout:     cfg.BatchTimeout,
		Progress:    os.Stdout,
	}
}

// exitCodeFor maps a run error to the process exit code. Errored upsert
// batches are not run errors.
func exitCodeFor(err error) int {
	if err == nil {
		return exitcode.Success
	}
	var pe *ingest.PipelineError
	if !errors.As(err, &pe) {
		return exitcode.InternalError
	}
	switch pe.Phase {
	case ingest.PhaseConfig:
		return exitcode.UsageError
	case ingest.PhaseSource:
		return exitcode.ValidationError
	case ingest.PhaseConnect:
		return exitcode.DBConnError
	case ingest.PhaseCopy:
		return exitcode.CopyError
	default:
		return exitcode.InternalError
	}
}
