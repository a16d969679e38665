package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	localblob "github.com/supermms/betfair-tips/internal/blob/local"
	s3blob "github.com/supermms/betfair-tips/internal/blob/s3"
	"github.com/supermms/betfair-tips/internal/cache"
	"github.com/supermms/betfair-tips/internal/config"
	"github.com/supermms/betfair-tips/internal/domain"
	"github.com/supermms/betfair-tips/internal/notify"
	"github.com/supermms/betfair-tips/internal/reclaim"
	"github.com/supermms/betfair-tips/internal/store/postgres"
)

// Dependencies bundles everything the run needs. It is constructed by Wire
// and torn down by the returned cleanup function.
type Dependencies struct {
	BlobReader domain.BlobReader
	BlobWriter domain.BlobWriter

	Cache    *cache.Cache
	Registry *reclaim.Registry
	Sweeper  *reclaim.NameSweeper
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Blob storage (input, output, report; optionally the cache) ---
	switch cfg.Blob.Backend {
	case "s3":
		client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         true,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.BlobReader = s3blob.NewReader(client)
		deps.BlobWriter = s3blob.NewWriter(client)
	case "local":
		store, err := localblob.New(cfg.Blob.LocalRoot)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: local blob: %w", err)
		}
		deps.BlobReader = store
		deps.BlobWriter = store
	default:
		cleanup()
		return nil, nil, fmt.Errorf("wire: unknown blob backend %q", cfg.Blob.Backend)
	}

	// --- Cache store ---
	var cacheStore domain.CacheStore
	if cfg.Cache.Enabled {
		switch cfg.Cache.Backend {
		case "file":
			cacheStore = cache.NewFileStore(cfg.Cache.FilePath, cfg.Cache.Precision)
		case "blob":
			cacheStore = cache.NewBlobStore(deps.BlobReader, deps.BlobWriter, cfg.Cache.BlobKey, cfg.Cache.Precision)
		case "postgres":
			pgClient, err := postgres.New(ctx, postgres.ClientConfig{
				DSN:      cfg.Postgres.DSN,
				Host:     cfg.Postgres.Host,
				Port:     cfg.Postgres.Port,
				Database: cfg.Postgres.Database,
				User:     cfg.Postgres.User,
				Password: cfg.Postgres.Password,
				SSLMode:  cfg.Postgres.SSLMode,
				MaxConns: cfg.Postgres.PoolMaxConns,
				MinConns: cfg.Postgres.PoolMinConns,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres: %w", err)
			}
			closers = append(closers, pgClient.Close)

			cacheStore, err = cache.NewPGStore(ctx, pgClient.Pool(), cfg.Cache.Precision)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres cache store: %w", err)
			}
		case "redis":
			opts := &redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
				PoolSize: cfg.Redis.PoolSize,
			}
			if cfg.Redis.TLSEnabled {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
			rdb := redis.NewClient(opts)
			if err := rdb.Ping(ctx).Err(); err != nil {
				rdb.Close()
				cleanup()
				return nil, nil, fmt.Errorf("wire: redis: %w", err)
			}
			closers = append(closers, func() { _ = rdb.Close() })

			cacheStore = cache.NewRedisStore(rdb, cfg.Cache.RedisKey, cfg.Cache.Precision)
		default:
			cleanup()
			return nil, nil, fmt.Errorf("wire: unknown cache backend %q", cfg.Cache.Backend)
		}
	}
	deps.Cache = cache.New(cacheStore, cfg.Cache.Precision, cfg.Cache.Enabled, logger)

	// --- Process reclamation ---
	deps.Registry = reclaim.NewRegistry(logger)
	if cfg.Retry.NameSweepEnabled {
		deps.Sweeper = reclaim.NewNameSweeper(true, cfg.Retry.SweepPatterns, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.New(senders, logger)

	return deps, cleanup, nil
}
