package cache

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supermms/betfair-tips/internal/domain"
)

// PGStore persists the cache in a PostgreSQL table. Save replaces the whole
// table contents inside one transaction, so the wholesale-overwrite contract
// of the cache holds here too.
type PGStore struct {
	pool      *pgxpool.Pool
	precision int
}

const pgSchema = `
	CREATE TABLE IF NOT EXISTS model_cache (
		key                TEXT PRIMARY KEY,
		home_odd           DOUBLE PRECISION NOT NULL,
		draw_odd           DOUBLE PRECISION NOT NULL,
		away_odd           DOUBLE PRECISION NOT NULL,
		back_result        TEXT NOT NULL DEFAULT '',
		indicators_result  TEXT NOT NULL DEFAULT ''
	);`

// NewPGStore ensures the cache table exists and returns the store.
func NewPGStore(ctx context.Context, pool *pgxpool.Pool, precision int) (*PGStore, error) {
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("cache: ensure model_cache table: %w", err)
	}
	return &PGStore{pool: pool, precision: precision}, nil
}

// Load reads every stored record, ordered by the numeric triple.
func (s *PGStore) Load(ctx context.Context) ([]domain.CacheRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, home_odd, draw_odd, away_odd, back_result, indicators_result
		FROM model_cache
		ORDER BY home_odd, draw_odd, away_odd`)
	if err != nil {
		return nil, fmt.Errorf("%w: select model_cache: %v", domain.ErrCacheUnavailable, err)
	}
	defer rows.Close()

	var records []domain.CacheRecord
	for rows.Next() {
		var rec domain.CacheRecord
		if err := rows.Scan(
			&rec.Key,
			&rec.Triple.Home, &rec.Triple.Draw, &rec.Triple.Away,
			&rec.Prediction.Back, &rec.Prediction.Indicators,
		); err != nil {
			return nil, fmt.Errorf("%w: scan model_cache row: %v", domain.ErrCacheUnavailable, err)
		}
		rec.Prediction.Back = domain.CleanText(rec.Prediction.Back)
		rec.Prediction.Indicators = domain.CleanText(rec.Prediction.Indicators)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read model_cache rows: %v", domain.ErrCacheUnavailable, err)
	}
	return records, nil
}

// Save truncates the table and inserts every record in a single transaction.
func (s *PGStore) Save(ctx context.Context, records []domain.CacheRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cache: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE model_cache`); err != nil {
		return fmt.Errorf("cache: truncate model_cache: %w", err)
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO model_cache (key, home_odd, draw_odd, away_odd, back_result, indicators_result)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			rec.Key,
			rec.Triple.Home, rec.Triple.Draw, rec.Triple.Away,
			rec.Prediction.Back, rec.Prediction.Indicators,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("cache: insert model_cache rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("cache: commit: %w", err)
	}
	return nil
}
