package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/bolagsload/internal/db"
	"github.com/gyeh/bolagsload/internal/exitcode"
	"github.com/gyeh/bolagsload/internal/logging"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the companies table if it does not exist",
	RunE:  runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or SUPABASE_DB_URL is required")
		os.Exit(exitcode.UsageError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool, log); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("schema apply failed")
		os.Exit(exitcode.InternalError)
	}
	return nil
}
