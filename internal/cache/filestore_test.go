package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/supermms/betfair-tips/internal/domain"
)

func TestFileStore_MissingFileIsEmptyCache(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.csv"), 2)

	records, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("missing file must not error, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %d, want 0", len(records))
	}
}

func TestFileStore_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "model-cache.csv")
	store := NewFileStore(path, 2)

	triple, key, err := domain.NormalizeOdds("2.10", "3.40", "3.20", 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []domain.CacheRecord{{
		Key:        key,
		Triple:     triple,
		Prediction: domain.Prediction{Back: "BACK OK", Indicators: "IND OK"},
	}}

	if err := store.Save(context.Background(), want); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("loaded %+v, want %+v", got, want)
	}
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model-cache.csv")
	store := NewFileStore(path, 2)

	triple, key, _ := domain.NormalizeOdds("2.10", "3.40", "3.20", 2)
	rec := domain.CacheRecord{Key: key, Triple: triple, Prediction: domain.Prediction{Back: "B", Indicators: "I"}}

	if err := store.Save(context.Background(), []domain.CacheRecord{rec, rec}); err != nil {
		t.Fatal(err)
	}
	// Second save with an empty set must fully replace, not append.
	if err := store.Save(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("records = %d after overwrite with empty set, want 0", len(got))
	}
}
