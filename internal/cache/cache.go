// Package cache implements the odds-keyed result cache: an in-memory record
// set loaded wholesale from a pluggable store at run start, mutated only in
// memory, and persisted wholesale exactly once at run end. One record per
// key; a record counts as a hit only when both prediction texts are present.
package cache

import (
	"context"
	"log/slog"
	"sort"

	"github.com/supermms/betfair-tips/internal/domain"
)

// Cache is the run-scoped result cache. It is not safe for concurrent use;
// the job processes items sequentially under a single-run-at-a-time invariant.
type Cache struct {
	store     domain.CacheStore
	precision int
	enabled   bool
	records   []domain.CacheRecord
	index     map[string]int // key → position in records
	logger    *slog.Logger
}

// New creates a Cache backed by the given store. When enabled is false every
// Lookup misses, Upsert is a no-op, and the store is never touched.
func New(store domain.CacheStore, precision int, enabled bool, logger *slog.Logger) *Cache {
	if precision < 0 {
		precision = domain.DefaultKeyPrecision
	}
	return &Cache{
		store:     store,
		precision: precision,
		enabled:   enabled,
		index:     make(map[string]int),
		logger:    logger.With(slog.String("component", "cache")),
	}
}

// Load reads the persisted record set. An absent or unreadable store is
// never fatal: the cache degrades to empty with a warning and the run
// proceeds, recomputing whatever it needs.
func (c *Cache) Load(ctx context.Context) {
	if !c.enabled || c.store == nil {
		return
	}

	records, err := c.store.Load(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "cache store unavailable, starting with empty cache",
			slog.String("error", err.Error()),
		)
		c.records = nil
		c.index = make(map[string]int)
		return
	}

	c.records = dedupe(records)
	c.sort()

	c.logger.InfoContext(ctx, "cache loaded",
		slog.Int("records", len(c.records)),
		slog.Int("complete_pairs", c.CompletePairs()),
	)
}

// Lookup returns the cached prediction for key. It is a hit only when the
// key exists and both result fields are present; a record with a single
// field filled is a miss. An empty key short-circuits to a miss.
func (c *Cache) Lookup(key string) (domain.Prediction, bool) {
	if !c.enabled || key == "" || len(c.records) == 0 {
		return domain.Prediction{}, false
	}
	i, ok := c.index[key]
	if !ok {
		return domain.Prediction{}, false
	}
	rec := c.records[i]
	if !rec.Complete() {
		return domain.Prediction{}, false
	}
	return rec.Prediction, true
}

// Upsert inserts a record for key, or overwrites both prediction fields of
// the existing one: last write wins, never a partial merge. The record set
// is re-sorted by the numeric triple so persistence stays deterministic.
func (c *Cache) Upsert(key string, triple domain.OddsTriple, pred domain.Prediction) {
	if !c.enabled || key == "" {
		return
	}

	if i, ok := c.index[key]; ok {
		c.records[i].Triple = triple
		c.records[i].Prediction = pred
	} else {
		c.records = append(c.records, domain.CacheRecord{
			Key:        key,
			Triple:     triple,
			Prediction: pred,
		})
	}

	c.sort()
}

// Save persists the entire record set, replacing the stored copy. Called
// exactly once per run, after all items have been processed.
func (c *Cache) Save(ctx context.Context) error {
	if !c.enabled || c.store == nil {
		return nil
	}
	return c.store.Save(ctx, c.records)
}

// Len returns the number of records currently held.
func (c *Cache) Len() int {
	return len(c.records)
}

// CompletePairs counts records with both prediction fields present.
func (c *Cache) CompletePairs() int {
	n := 0
	for _, r := range c.records {
		if r.Complete() {
			n++
		}
	}
	return n
}

func (c *Cache) sort() {
	sort.Slice(c.records, func(i, j int) bool {
		return c.records[i].Triple.Less(c.records[j].Triple)
	})
	c.reindex()
}

func (c *Cache) reindex() {
	c.index = make(map[string]int, len(c.records))
	for i, r := range c.records {
		c.index[r.Key] = i
	}
}

// dedupe enforces the one-record-per-key invariant on loaded data; the last
// occurrence wins, mirroring upsert semantics.
func dedupe(records []domain.CacheRecord) []domain.CacheRecord {
	seen := make(map[string]int, len(records))
	out := records[:0]
	for _, r := range records {
		if r.Key == "" {
			continue
		}
		if i, ok := seen[r.Key]; ok {
			out[i] = r
			continue
		}
		seen[r.Key] = len(out)
		out = append(out, r)
	}
	return out
}
