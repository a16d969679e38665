package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/supermms/betfair-tips/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory CacheStore for tests.
type memStore struct {
	records []domain.CacheRecord
	loadErr error
	saves   int
}

func (m *memStore) Load(context.Context) ([]domain.CacheRecord, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.records, nil
}

func (m *memStore) Save(_ context.Context, records []domain.CacheRecord) error {
	m.records = append([]domain.CacheRecord(nil), records...)
	m.saves++
	return nil
}

func mustTriple(t *testing.T, h, d, a string) (domain.OddsTriple, string) {
	t.Helper()
	triple, key, err := domain.NormalizeOdds(h, d, a, 2)
	if err != nil {
		t.Fatal(err)
	}
	return triple, key
}

func TestLookup_PartialRecordIsMiss(t *testing.T) {
	triple, key := mustTriple(t, "2.10", "3.40", "3.20")
	store := &memStore{records: []domain.CacheRecord{
		{Key: key, Triple: triple, Prediction: domain.Prediction{Back: "BACK OK"}},
	}}

	c := New(store, 2, true, testLogger())
	c.Load(context.Background())

	if _, ok := c.Lookup(key); ok {
		t.Error("lookup must miss when indicators_result is absent")
	}
}

func TestLookup_EmptyKeyShortCircuits(t *testing.T) {
	c := New(&memStore{}, 2, true, testLogger())
	c.Load(context.Background())

	if _, ok := c.Lookup(""); ok {
		t.Error("empty key must never hit")
	}
}

func TestLookup_CompleteRecordHits(t *testing.T) {
	triple, key := mustTriple(t, "2.10", "3.40", "3.20")
	c := New(&memStore{}, 2, true, testLogger())
	c.Upsert(key, triple, domain.Prediction{Back: "B", Indicators: "I"})

	pred, ok := c.Lookup(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if pred.Back != "B" || pred.Indicators != "I" {
		t.Errorf("pred = %+v", pred)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	triple, key := mustTriple(t, "2.10", "3.40", "3.20")
	c := New(&memStore{}, 2, true, testLogger())

	for i := 0; i < 3; i++ {
		c.Upsert(key, triple, domain.Prediction{Back: "B", Indicators: "I"})
	}

	if c.Len() != 1 {
		t.Errorf("records = %d, want exactly 1 per key", c.Len())
	}
}

func TestUpsert_LastWriteWins(t *testing.T) {
	triple, key := mustTriple(t, "2.10", "3.40", "3.20")
	c := New(&memStore{}, 2, true, testLogger())

	c.Upsert(key, triple, domain.Prediction{Back: "old", Indicators: "old"})
	c.Upsert(key, triple, domain.Prediction{Back: "new", Indicators: "new"})

	pred, ok := c.Lookup(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if pred.Back != "new" || pred.Indicators != "new" {
		t.Errorf("pred = %+v, want both fields overwritten", pred)
	}
}

func TestUpsert_KeepsRecordsSorted(t *testing.T) {
	c := New(&memStore{}, 2, true, testLogger())

	t3, k3 := mustTriple(t, "3.00", "3.00", "3.00")
	t1, k1 := mustTriple(t, "1.50", "4.00", "6.00")
	t2, k2 := mustTriple(t, "1.50", "4.20", "5.00")

	pred := domain.Prediction{Back: "B", Indicators: "I"}
	c.Upsert(k3, t3, pred)
	c.Upsert(k1, t1, pred)
	c.Upsert(k2, t2, pred)

	wantOrder := []string{k1, k2, k3}
	for i, want := range wantOrder {
		if c.records[i].Key != want {
			t.Fatalf("records[%d].Key = %q, want %q", i, c.records[i].Key, want)
		}
	}
}

func TestLoad_DegradesToEmptyOnStoreError(t *testing.T) {
	store := &memStore{loadErr: domain.ErrCacheUnavailable}
	c := New(store, 2, true, testLogger())
	c.Load(context.Background())

	if c.Len() != 0 {
		t.Errorf("cache should be empty after store failure, got %d records", c.Len())
	}
}

func TestLoad_DedupesByKey(t *testing.T) {
	triple, key := mustTriple(t, "2.10", "3.40", "3.20")
	store := &memStore{records: []domain.CacheRecord{
		{Key: key, Triple: triple, Prediction: domain.Prediction{Back: "old", Indicators: "old"}},
		{Key: key, Triple: triple, Prediction: domain.Prediction{Back: "new", Indicators: "new"}},
	}}

	c := New(store, 2, true, testLogger())
	c.Load(context.Background())

	if c.Len() != 1 {
		t.Fatalf("records = %d, want 1", c.Len())
	}
	pred, _ := c.Lookup(key)
	if pred.Back != "new" {
		t.Errorf("last occurrence should win, got %+v", pred)
	}
}

func TestDisabledCache(t *testing.T) {
	triple, key := mustTriple(t, "2.10", "3.40", "3.20")
	store := &memStore{}
	c := New(store, 2, false, testLogger())

	c.Load(context.Background())
	c.Upsert(key, triple, domain.Prediction{Back: "B", Indicators: "I"})
	if _, ok := c.Lookup(key); ok {
		t.Error("disabled cache must always miss")
	}
	if err := c.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.saves != 0 {
		t.Error("disabled cache must never touch the store")
	}
}
