package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/supermms/betfair-tips/internal/domain"
)

// RedisStore persists the cache as one CSV document under a single Redis
// key. Load and Save move the whole document, matching the cache's
// read-once/write-once lifecycle; no per-record Redis operations exist.
type RedisStore struct {
	rdb       *redis.Client
	key       string
	precision int
}

// NewRedisStore creates a RedisStore using the given client and key.
func NewRedisStore(rdb *redis.Client, key string, precision int) *RedisStore {
	return &RedisStore{rdb: rdb, key: key, precision: precision}
}

// Load fetches and decodes the cache document. A missing key is an empty
// cache; connection failures are reported as ErrCacheUnavailable.
func (s *RedisStore) Load(ctx context.Context) ([]domain.CacheRecord, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrCacheUnavailable, s.key, err)
	}
	return decodeCSV(bytes.NewReader(data), s.precision)
}

// Save stores the full record set, replacing the previous document.
func (s *RedisStore) Save(ctx context.Context, records []domain.CacheRecord) error {
	data, err := encodeCSV(records, s.precision)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", s.key, err)
	}
	return nil
}
