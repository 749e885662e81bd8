/*
Package config loads server configuration.

PRECEDENCE (lowest to highest):
  1. Defaults
  2. YAML file given by -config (or LEDGER_CONFIG)
  3. Environment variables LEDGER_*; a .env file in the working
     directory is loaded into the environment first if present
  4. Command-line flags that were explicitly set

ENVIRONMENT:
  LEDGER_CONFIG            path to YAML config file
  LEDGER_ADDR              listen address (":8000")
  LEDGER_DB_DRIVER         "sqlite3" or "postgres"
  LEDGER_DSN               SQLite path or PostgreSQL connection string
  LEDGER_STRICT_DATES      "true" to reject non-calendar dates
  LEDGER_ALLOWED_ORIGINS   comma-separated CORS origins
  LEDGER_LOG_LEVEL         debug | info | warn | error
  LEDGER_LOG_FORMAT        text | json
  LEDGER_SHUTDOWN_TIMEOUT  Go duration, e.g. "30s"

EXAMPLE FILE:
  addr: ":8080"
  db_driver: sqlite3
  dsn: ./data/ledgerdb.sqlite
  allowed_origins:
    - http://localhost:8080
  log_format: json
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Addr            string        `yaml:"addr"`
	DBDriver        string        `yaml:"db_driver"`
	DSN             string        `yaml:"dsn"`
	StrictDates     bool          `yaml:"strict_dates"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:            ":8000",
		DBDriver:        "sqlite3",
		DSN:             "ledgerdb.sqlite",
		AllowedOrigins:  []string{"http://localhost:8000"},
		LogLevel:        "info",
		LogFormat:       "text",
		ShutdownTimeout: 30 * time.Second,
	}
}

// Load builds a Config from defaults, file, environment and args
// (typically os.Args[1:]).
func Load(args []string) (Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return load(args, os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	addr := fs.String("addr", cfg.Addr, "HTTP listen address")
	driver := fs.String("db-driver", cfg.DBDriver, "database driver: sqlite3 or postgres")
	dsn := fs.String("db", cfg.DSN, "SQLite path (\":memory:\" for in-memory) or PostgreSQL DSN")
	strict := fs.Bool("strict-dates", cfg.StrictDates, "reject dates that are not real calendar days")
	origins := fs.String("allowed-origins", strings.Join(cfg.AllowedOrigins, ","), "comma-separated CORS origins")
	level := fs.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	format := fs.String("log-format", cfg.LogFormat, "log format: text or json")
	shutdown := fs.Duration("shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	path := *configPath
	if path == "" {
		path, _ = lookup("LEDGER_CONFIG")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.mergeEnv(lookup); err != nil {
		return Config{}, err
	}

	// explicitly set flags win
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "db-driver":
			cfg.DBDriver = *driver
		case "db":
			cfg.DSN = *dsn
		case "strict-dates":
			cfg.StrictDates = *strict
		case "allowed-origins":
			cfg.AllowedOrigins = splitList(*origins)
		case "log-level":
			cfg.LogLevel = *level
		case "log-format":
			cfg.LogFormat = *format
		case "shutdown-timeout":
			cfg.ShutdownTimeout = *shutdown
		}
	})

	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("LEDGER_ADDR"); ok {
		c.Addr = v
	}
	if v, ok := lookup("LEDGER_DB_DRIVER"); ok {
		c.DBDriver = v
	}
	if v, ok := lookup("LEDGER_DSN"); ok {
		c.DSN = v
	}
	if v, ok := lookup("LEDGER_STRICT_DATES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LEDGER_STRICT_DATES: %w", err)
		}
		c.StrictDates = b
	}
	if v, ok := lookup("LEDGER_ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("LEDGER_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup("LEDGER_LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	if v, ok := lookup("LEDGER_SHUTDOWN_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LEDGER_SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("db_driver must be sqlite3 or postgres, got %q", c.DBDriver)
	}
	if c.DSN == "" {
		return errors.New("dsn must not be empty")
	}
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be positive")
	}
	return nil
}

// SlogLevel converts LogLevel for log/slog.
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// NewLogger builds the process logger described by the config.
func (c Config) NewLogger() *slog.Logger {
	level, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
