package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/supermms/betfair-tips/internal/domain"
)

// FileStore persists the cache as a CSV file on the local filesystem. It is
// the default backend for single-host runs and for development.
type FileStore struct {
	path      string
	precision int
}

// NewFileStore creates a FileStore writing to the given path.
func NewFileStore(path string, precision int) *FileStore {
	return &FileStore{path: path, precision: precision}
}

// Load reads the CSV document. A missing file is an empty cache, not an
// error; any other failure is reported as ErrCacheUnavailable.
func (s *FileStore) Load(_ context.Context) ([]domain.CacheRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrCacheUnavailable, s.path, err)
	}
	return decodeCSV(bytes.NewReader(data), s.precision)
}

// Save writes the full record set to a temp file in the same directory and
// renames it over the destination, so readers never observe a torn file.
func (s *FileStore) Save(_ context.Context, records []domain.CacheRecord) error {
	data, err := encodeCSV(records, s.precision)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cache: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("cache: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cache: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: replace %s: %w", s.path, err)
	}
	return nil
}
