package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Agent.LoginURL = "https://example.com/login"
	cfg.Agent.BackURL = "https://example.com/back"
	cfg.Agent.IndicatorsURL = "https://example.com/indicators"
	cfg.Agent.Username = "user"
	cfg.Agent.Password = "pass"
	return cfg
}

func TestDefaults_ValidOnceCredentialsSet(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with credentials should validate: %v", err)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "loud"
	cfg.Retry.MaxAttempts = 0
	cfg.Cache.Precision = 9
	cfg.Agent.Username = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"log_level", "max_attempts", "precision", "username"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestValidate_BackendSpecificRequirements(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"s3 blob needs bucket", func(c *Config) { c.Blob.Backend = "s3"; c.S3.Bucket = "" }, "bucket"},
		{"postgres needs host or dsn", func(c *Config) { c.Cache.Backend = "postgres"; c.Postgres.Host = "" }, "host"},
		{"redis needs addr", func(c *Config) { c.Cache.Backend = "redis"; c.Redis.Addr = "" }, "addr"},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "backend"},
		{"telegram halves together", func(c *Config) { c.Notify.TelegramToken = "tok" }, "telegram"},
		{"sweep needs patterns", func(c *Config) { c.Retry.NameSweepEnabled = true; c.Retry.SweepPatterns = nil }, "sweep_patterns"},
		{"bad date", func(c *Config) { c.Date = "23-08-2026" }, "YYYY-MM-DD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoad_TOMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	doc := `
log_level = "debug"

[cache]
backend = "blob"
precision = 3

[retry]
max_attempts = 7
attempt_timeout = "40s"

[agent]
login_url = "https://example.com/login"
back_url = "https://example.com/back"
indicators_url = "https://example.com/indicators"
username = "from-file"
password = "secret"
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TIPSJOB_AGENT_USERNAME", "from-env")
	t.Setenv("TIPSJOB_RETRY_ATTEMPT_TIMEOUT", "55s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}
	if cfg.Cache.Backend != "blob" || cfg.Cache.Precision != 3 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Retry.MaxAttempts != 7 {
		t.Errorf("max_attempts = %d", cfg.Retry.MaxAttempts)
	}
	// Env beats file; file beats defaults.
	if cfg.Agent.Username != "from-env" {
		t.Errorf("username = %q, want from-env", cfg.Agent.Username)
	}
	if cfg.Retry.AttemptTimeout.Duration != 55*time.Second {
		t.Errorf("attempt_timeout = %s, want 55s", cfg.Retry.AttemptTimeout.Duration)
	}
	// Untouched sections keep their defaults.
	if cfg.Retry.GracePeriod.Duration != 3*time.Second {
		t.Errorf("grace_period = %s, want 3s", cfg.Retry.GracePeriod.Duration)
	}
}

func TestRunDate_DefaultsToToday(t *testing.T) {
	cfg := Defaults()
	if got := cfg.RunDate(); got != time.Now().UTC().Format("2006-01-02") {
		t.Errorf("RunDate = %q", got)
	}
	cfg.Date = "2026-08-01"
	if got := cfg.RunDate(); got != "2026-08-01" {
		t.Errorf("RunDate = %q, want 2026-08-01", got)
	}
}
