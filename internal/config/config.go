// Package config defines the top-level configuration for the tips job and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by TIPSJOB_* environment
// variables.
type Config struct {
	Blob     BlobConfig     `toml:"blob"`
	Cache    CacheConfig    `toml:"cache"`
	Retry    RetryConfig    `toml:"retry"`
	Agent    AgentConfig    `toml:"agent"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Input    InputConfig    `toml:"input"`
	Output   OutputConfig   `toml:"output"`
	Report   ReportConfig   `toml:"report"`
	Notify   NotifyConfig   `toml:"notify"`
	Date     string         `toml:"date"` // run date YYYY-MM-DD; empty means today
	LogLevel string         `toml:"log_level"`
}

// BlobConfig selects where input, output, and reports live.
type BlobConfig struct {
	// Backend is "s3" or "local".
	Backend   string `toml:"backend"`
	LocalRoot string `toml:"local_root"`
}

// CacheConfig holds result-cache parameters.
type CacheConfig struct {
	Enabled bool `toml:"enabled"`
	// Precision is the number of decimals in the odds key.
	Precision int `toml:"precision"`
	// Backend is "file", "blob", "postgres", or "redis".
	Backend  string `toml:"backend"`
	FilePath string `toml:"file_path"`
	BlobKey  string `toml:"blob_key"`
	RedisKey string `toml:"redis_key"`
}

// RetryConfig holds attempt supervision parameters.
type RetryConfig struct {
	MaxAttempts      int      `toml:"max_attempts"`
	AttemptTimeout   duration `toml:"attempt_timeout"`
	GracePeriod      duration `toml:"grace_period"`
	KillPause        duration `toml:"kill_pause"`
	NameSweepEnabled bool     `toml:"name_sweep_enabled"`
	SweepPatterns    []string `toml:"sweep_patterns"`
}

// AgentConfig holds the prediction site endpoints and credentials.
type AgentConfig struct {
	LoginURL      string `toml:"login_url"`
	BackURL       string `toml:"back_url"`
	IndicatorsURL string `toml:"indicators_url"`
	Username      string `toml:"username"`
	Password      string `toml:"password"`
	Headless      bool   `toml:"headless"`
	UserAgent     string `toml:"user_agent"`
}

// PostgresConfig holds PostgreSQL connection parameters for the cache store.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// RedisConfig holds Redis connection parameters for the cache store.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// InputConfig locates the daily fixtures CSV inside the blob backend.
type InputConfig struct {
	Key     string `toml:"key"`
	MaxRows int    `toml:"max_rows"`
}

// OutputConfig locates the results CSV. Rows land under prefix/<date>/.
type OutputConfig struct {
	Prefix   string `toml:"prefix"`
	Filename string `toml:"filename"`
}

// ReportConfig controls the published HTML report.
type ReportConfig struct {
	Enabled bool   `toml:"enabled"`
	Prefix  string `toml:"prefix"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "25s", "500ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Blob: BlobConfig{
			Backend:   "local",
			LocalRoot: "./data",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Precision: 2,
			Backend:   "file",
			FilePath:  "model-cache.csv",
			BlobKey:   "cache/model-cache.csv",
			RedisKey:  "tipsjob:model-cache",
		},
		Retry: RetryConfig{
			MaxAttempts:      5,
			AttemptTimeout:   duration{25 * time.Second},
			GracePeriod:      duration{3 * time.Second},
			KillPause:        duration{500 * time.Millisecond},
			NameSweepEnabled: false,
			SweepPatterns:    []string{"chromedriver", "chrome"},
		},
		Agent: AgentConfig{
			Headless: true,
		},
		Postgres: PostgresConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "postgres",
			User:         "postgres",
			SSLMode:      "disable",
			PoolMaxConns: 4,
			PoolMinConns: 1,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Input: InputConfig{
			Key:     "input/fixtures.csv",
			MaxRows: 0,
		},
		Output: OutputConfig{
			Prefix:   "outputs",
			Filename: "results.csv",
		},
		Report: ReportConfig{
			Enabled: true,
			Prefix:  "site",
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validBlobBackends enumerates the accepted values for Blob.Backend.
var validBlobBackends = map[string]bool{
	"s3":    true,
	"local": true,
}

// validCacheBackends enumerates the accepted values for Cache.Backend.
var validCacheBackends = map[string]bool{
	"file":     true,
	"blob":     true,
	"postgres": true,
	"redis":    true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Date != "" {
		if _, err := time.Parse("2006-01-02", c.Date); err != nil {
			errs = append(errs, fmt.Sprintf("date %q must be YYYY-MM-DD", c.Date))
		}
	}

	// Blob
	if !validBlobBackends[c.Blob.Backend] {
		errs = append(errs, fmt.Sprintf("blob: unknown backend %q (valid: s3, local)", c.Blob.Backend))
	}
	if c.Blob.Backend == "local" && c.Blob.LocalRoot == "" {
		errs = append(errs, "blob: local_root must not be empty for the local backend")
	}
	if c.Blob.Backend == "s3" && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty for the s3 blob backend")
	}

	// Cache
	if c.Cache.Enabled {
		if !validCacheBackends[c.Cache.Backend] {
			errs = append(errs, fmt.Sprintf("cache: unknown backend %q (valid: file, blob, postgres, redis)", c.Cache.Backend))
		}
		if c.Cache.Precision < 0 || c.Cache.Precision > 6 {
			errs = append(errs, fmt.Sprintf("cache: precision must be 0-6, got %d", c.Cache.Precision))
		}
		switch c.Cache.Backend {
		case "file":
			if c.Cache.FilePath == "" {
				errs = append(errs, "cache: file_path must not be empty for the file backend")
			}
		case "blob":
			if c.Cache.BlobKey == "" {
				errs = append(errs, "cache: blob_key must not be empty for the blob backend")
			}
		case "postgres":
			if strings.TrimSpace(c.Postgres.DSN) == "" {
				if c.Postgres.Host == "" {
					errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
				}
				if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
					errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
				}
				if c.Postgres.Database == "" {
					errs = append(errs, "postgres: database must not be empty")
				}
			}
			if c.Postgres.PoolMaxConns < 1 {
				errs = append(errs, "postgres: pool_max_conns must be >= 1")
			}
			if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
				errs = append(errs, "postgres: pool_min_conns must be 0..pool_max_conns")
			}
		case "redis":
			if c.Redis.Addr == "" {
				errs = append(errs, "redis: addr must not be empty")
			}
			if c.Cache.RedisKey == "" {
				errs = append(errs, "cache: redis_key must not be empty for the redis backend")
			}
		}
	}

	// Retry
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("retry: max_attempts must be >= 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.AttemptTimeout.Duration <= 0 {
		errs = append(errs, "retry: attempt_timeout must be positive")
	}
	if c.Retry.GracePeriod.Duration <= 0 {
		errs = append(errs, "retry: grace_period must be positive")
	}
	if c.Retry.KillPause.Duration <= 0 {
		errs = append(errs, "retry: kill_pause must be positive")
	}
	if c.Retry.NameSweepEnabled && len(c.Retry.SweepPatterns) == 0 {
		errs = append(errs, "retry: sweep_patterns must not be empty when name_sweep_enabled is set")
	}

	// Agent
	if c.Agent.LoginURL == "" || c.Agent.BackURL == "" || c.Agent.IndicatorsURL == "" {
		errs = append(errs, "agent: login_url, back_url, and indicators_url must all be set")
	}
	if c.Agent.Username == "" || c.Agent.Password == "" {
		errs = append(errs, "agent: username and password must be set")
	}

	// Input / output
	if c.Input.Key == "" {
		errs = append(errs, "input: key must not be empty")
	}
	if c.Input.MaxRows < 0 {
		errs = append(errs, "input: max_rows must be >= 0")
	}
	if c.Output.Prefix == "" || c.Output.Filename == "" {
		errs = append(errs, "output: prefix and filename must not be empty")
	}
	if c.Report.Enabled && c.Report.Prefix == "" {
		errs = append(errs, "report: prefix must not be empty when enabled")
	}

	// Notify channels are optional, but Telegram needs both halves.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// RunDate returns the configured run date, defaulting to today in UTC.
func (c *Config) RunDate() string {
	if c.Date != "" {
		return c.Date
	}
	return time.Now().UTC().Format("2006-01-02")
}
