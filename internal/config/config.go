package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gyeh/bolagsload/internal/model"
)

// Mode selects the loader strategy for a run.
type Mode string

const (
	ModeCopy   Mode = "copy"   // bulk COPY into an empty table
	ModeUpsert Mode = "upsert" // batched insert-or-update on the conflict key
)

// Sink selects where upsert batches are written.
type Sink string

const (
	SinkPostgres Sink = "postgres"
	SinkREST     Sink = "rest"
	SinkSQLite   Sink = "sqlite"
)

const (
	DefaultChunkSize    = 500
	DefaultTable        = "companies"
	DefaultBatchTimeout = 2 * time.Minute
)

// Config holds all runtime configuration for a bolagsload run.
type Config struct {
	DSN         string
	FilePath    string
	LogFormat   string // "text" or "json"
	LogLevel    string
	Table       string
	Mode        Mode
	Sink        Sink
	ChunkSize   int
	ConflictKey string

	// Per-call timeouts; zero disables.
	BatchTimeout time.Duration
	CopyTimeout  time.Duration

	// Record API endpoint (Supabase/PostgREST) for the rest sink.
	RESTURL string
	RESTKey string

	SQLitePath string

	PushgatewayURL string
}

// FileConfig is the on-disk YAML structure. Empty fields leave the
// corresponding Config value untouched.
type FileConfig struct {
	Table          string `yaml:"table"`
	Mode           string `yaml:"mode"`
	Sink           string `yaml:"sink"`
	ChunkSize      int    `yaml:"chunk_size"`
	ConflictKey    string `yaml:"conflict_key"`
	BatchTimeout   string `yaml:"batch_timeout"`
	CopyTimeout    string `yaml:"copy_timeout"`
	RESTURL        string `yaml:"rest_url"`
	SQLitePath     string `yaml:"sqlite_path"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	LogFormat      string `yaml:"log_format"`
	LogLevel       string `yaml:"log_level"`
}

// Defaults returns a Config with the built-in defaults applied.
func Defaults() Config {
	return Config{
		LogFormat:    "text",
		LogLevel:     "info",
		Table:        DefaultTable,
		Mode:         ModeUpsert,
		Sink:         SinkPostgres,
		ChunkSize:    DefaultChunkSize,
		ConflictKey:  model.KeyColumn,
		BatchTimeout: DefaultBatchTimeout,
	}
}

// LoadFromFile reads a YAML config file. Values are applied to Config only
// for settings whose flag was not set explicitly; explicit reports whether
// the flag with the given name was set on the command line.
func (c *Config) LoadFromFile(path string, explicit func(flag string) bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if explicit == nil {
		explicit = func(string) bool { return false }
	}

	setStr := func(flag, v string, dst *string) {
		if v != "" && !explicit(flag) {
			*dst = v
		}
	}
	setStr("table", fc.Table, &c.Table)
	setStr("conflict-key", fc.ConflictKey, &c.ConflictKey)
	setStr("rest-url", fc.RESTURL, &c.RESTURL)
	setStr("sqlite-path", fc.SQLitePath, &c.SQLitePath)
	setStr("pushgateway-url", fc.PushgatewayURL, &c.PushgatewayURL)
	setStr("log-format", fc.LogFormat, &c.LogFormat)
	setStr("log-level", fc.LogLevel, &c.LogLevel)
	if fc.Mode != "" && !explicit("mode") {
		c.Mode = Mode(fc.Mode)
	}
	if fc.Sink != "" && !explicit("sink") {
		c.Sink = Sink(fc.Sink)
	}
	if fc.ChunkSize != 0 && !explicit("chunk-size") {
		c.ChunkSize = fc.ChunkSize
	}
	if fc.BatchTimeout != "" && !explicit("batch-timeout") {
		d, err := time.ParseDuration(fc.BatchTimeout)
		if err != nil {
			return fmt.Errorf("batch_timeout: %w", err)
		}
		c.BatchTimeout = d
	}
	if fc.CopyTimeout != "" && !explicit("copy-timeout") {
		d, err := time.ParseDuration(fc.CopyTimeout)
		if err != nil {
			return fmt.Errorf("copy_timeout: %w", err)
		}
		c.CopyTimeout = d
	}
	return nil
}

// Validate checks the input file and loader options.
func (c *Config) Validate() error {
	if c.FilePath == "" {
		return fmt.Errorf("--file is required")
	}
	if _, err := os.Stat(c.FilePath); err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be greater than zero, got %d", c.ChunkSize)
	}
	if c.BatchTimeout < 0 || c.CopyTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// ValidateForLoad additionally checks mode, sink and credentials.
func (c *Config) ValidateForLoad() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Table == "" {
		return fmt.Errorf("--table is required")
	}
	switch c.Mode {
	case ModeCopy:
		if c.Sink != SinkPostgres {
			return fmt.Errorf("mode %q needs a direct postgres connection, not sink %q", c.Mode, c.Sink)
		}
	case ModeUpsert:
		if !slices.Contains(model.CompanyColumns(), c.ConflictKey) {
			return fmt.Errorf("conflict key %q is not a column of %s", c.ConflictKey, c.Table)
		}
	default:
		return fmt.Errorf("unknown mode %q (want copy or upsert)", c.Mode)
	}

	switch c.Sink {
	case SinkPostgres:
		if c.DSN == "" {
			return fmt.Errorf("--dsn or SUPABASE_DB_URL is required")
		}
	case SinkREST:
		if c.RESTURL == "" || c.RESTKey == "" {
			return fmt.Errorf("--rest-url and --rest-key (or SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY) are required")
		}
	case SinkSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("--sqlite-path is required")
		}
	default:
		return fmt.Errorf("unknown sink %q (want postgres, rest or sqlite)", c.Sink)
	}
	return nil
}
