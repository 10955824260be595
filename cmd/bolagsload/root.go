package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gyeh/bolagsload/internal/config"
)

// .env is optional; real environment variables take precedence. Loaded in a
// var initializer so every init sees it.
var _ = godotenv.Load()

var (
	cfg        = config.Defaults()
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "bolagsload",
	Short: "Bolagsverket snapshot → Postgres bulk loader",
	Long: "Reads the Bolagsverket organisation snapshot (Parquet or CSV) and loads it into the companies " +
		"table, either with one COPY or with batched upserts keyed on organisationsidentitet.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfigFile,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("SUPABASE_DB_URL"), "Postgres connection string (or set SUPABASE_DB_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	pf.StringVar(&cfg.Table, "table", cfg.Table, "Target table")
	pf.StringVar(&configPath, "config", "", "Optional YAML config file; explicit flags win")
}

func loadConfigFile(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return nil
	}
	return cfg.LoadFromFile(configPath, func(name string) bool {
		return cmd.Flags().Changed(name)
	})
}
