package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gyeh/bolagsload/internal/exitcode"
	"github.com/gyeh/bolagsload/internal/ingest"
	"github.com/gyeh/bolagsload/internal/logging"
	"github.com/gyeh/bolagsload/internal/source"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run validation and stats (no writes)",
	RunE:  runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to .parquet or .csv snapshot (required)")
	f.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "Records per upsert batch")
	_ = planCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	fp, err := source.FingerprintFile(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash file")
		os.Exit(exitcode.ValidationError)
	}

	src, err := source.Open(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to open input")
		os.Exit(exitcode.ValidationError)
	}
	defer src.Close()

	res, err := ingest.Plan(context.Background(), src, cfg.ChunkSize, log)
	if err != nil {
		src.Close()
		log.Error().Err(err).Msg("plan failed")
		os.Exit(exitCodeFor(err))
	}
	o := res.Outcome

	fmt.Println("=== bolagsload plan ===")
	fmt.Printf("File:           %s\n", cfg.FilePath)
	fmt.Printf("SHA-256:        %s\n", fp.SHA256)
	fmt.Printf("Size:           %s\n", humanize.Bytes(uint64(fp.Size)))
	fmt.Printf("Columns:        %d\n", len(src.Columns()))
	fmt.Printf("Rows read:      %s\n", humanize.Comma(o.Candidates))
	fmt.Printf("Empty rows:     %s\n", humanize.Comma(o.Skipped-o.Malformed))
	fmt.Printf("Malformed rows: %s\n", humanize.Comma(o.Malformed))
	fmt.Printf("Records:        %s\n", humanize.Comma(int64(res.Records)))
	fmt.Printf("Distinct keys:  %s\n", humanize.Comma(int64(res.DistinctKeys)))
	fmt.Printf("Duplicate keys: %s\n", humanize.Comma(int64(res.DuplicateKeys)))
	fmt.Printf("Upsert batches: %d (chunk size %d)\n", res.Batches, cfg.ChunkSize)
	fmt.Println("Column validation: OK")
	return nil
}
