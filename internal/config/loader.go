package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TIPSJOB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TIPSJOB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Blob ──
	setStr(&cfg.Blob.Backend, "TIPSJOB_BLOB_BACKEND")
	setStr(&cfg.Blob.LocalRoot, "TIPSJOB_BLOB_LOCAL_ROOT")

	// ── Cache ──
	setBool(&cfg.Cache.Enabled, "TIPSJOB_CACHE_ENABLED")
	setInt(&cfg.Cache.Precision, "TIPSJOB_CACHE_PRECISION")
	setStr(&cfg.Cache.Backend, "TIPSJOB_CACHE_BACKEND")
	setStr(&cfg.Cache.FilePath, "TIPSJOB_CACHE_FILE_PATH")
	setStr(&cfg.Cache.BlobKey, "TIPSJOB_CACHE_BLOB_KEY")
	setStr(&cfg.Cache.RedisKey, "TIPSJOB_CACHE_REDIS_KEY")

	// ── Retry ──
	setInt(&cfg.Retry.MaxAttempts, "TIPSJOB_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.Retry.AttemptTimeout, "TIPSJOB_RETRY_ATTEMPT_TIMEOUT")
	setDuration(&cfg.Retry.GracePeriod, "TIPSJOB_RETRY_GRACE_PERIOD")
	setDuration(&cfg.Retry.KillPause, "TIPSJOB_RETRY_KILL_PAUSE")
	setBool(&cfg.Retry.NameSweepEnabled, "TIPSJOB_RETRY_NAME_SWEEP_ENABLED")
	setStringSlice(&cfg.Retry.SweepPatterns, "TIPSJOB_RETRY_SWEEP_PATTERNS")

	// ── Agent ──
	setStr(&cfg.Agent.LoginURL, "TIPSJOB_AGENT_LOGIN_URL")
	setStr(&cfg.Agent.BackURL, "TIPSJOB_AGENT_BACK_URL")
	setStr(&cfg.Agent.IndicatorsURL, "TIPSJOB_AGENT_INDICATORS_URL")
	setStr(&cfg.Agent.Username, "TIPSJOB_AGENT_USERNAME")
	setStr(&cfg.Agent.Password, "TIPSJOB_AGENT_PASSWORD")
	setBool(&cfg.Agent.Headless, "TIPSJOB_AGENT_HEADLESS")
	setStr(&cfg.Agent.UserAgent, "TIPSJOB_AGENT_USER_AGENT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "TIPSJOB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "TIPSJOB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TIPSJOB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TIPSJOB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TIPSJOB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TIPSJOB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TIPSJOB_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "TIPSJOB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "TIPSJOB_POSTGRES_POOL_MIN_CONNS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "TIPSJOB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TIPSJOB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TIPSJOB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TIPSJOB_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "TIPSJOB_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "TIPSJOB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TIPSJOB_S3_REGION")
	setStr(&cfg.S3.Bucket, "TIPSJOB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TIPSJOB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TIPSJOB_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "TIPSJOB_S3_FORCE_PATH_STYLE")

	// ── Input / output / report ──
	setStr(&cfg.Input.Key, "TIPSJOB_INPUT_KEY")
	setInt(&cfg.Input.MaxRows, "TIPSJOB_INPUT_MAX_ROWS")
	setStr(&cfg.Output.Prefix, "TIPSJOB_OUTPUT_PREFIX")
	setStr(&cfg.Output.Filename, "TIPSJOB_OUTPUT_FILENAME")
	setBool(&cfg.Report.Enabled, "TIPSJOB_REPORT_ENABLED")
	setStr(&cfg.Report.Prefix, "TIPSJOB_REPORT_PREFIX")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TIPSJOB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TIPSJOB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TIPSJOB_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.Date, "TIPSJOB_DATE")
	setStr(&cfg.LogLevel, "TIPSJOB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
