package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/supermms/betfair-tips/internal/domain"
)

// BlobStore persists the cache as a single CSV object in blob storage
// (S3 or compatible). The whole document is replaced on every Save; the
// object store makes the overwrite atomic from the reader's viewpoint.
type BlobStore struct {
	reader    domain.BlobReader
	writer    domain.BlobWriter
	key       string
	precision int
}

// NewBlobStore creates a BlobStore reading and writing the object at key.
func NewBlobStore(reader domain.BlobReader, writer domain.BlobWriter, key string, precision int) *BlobStore {
	return &BlobStore{reader: reader, writer: writer, key: key, precision: precision}
}

// Load fetches and decodes the cache object. An absent object is an empty
// cache; any other failure is reported as ErrCacheUnavailable.
func (s *BlobStore) Load(ctx context.Context) ([]domain.CacheRecord, error) {
	body, err := s.reader.Get(ctx, s.key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrCacheUnavailable, s.key, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrCacheUnavailable, s.key, err)
	}
	return decodeCSV(bytes.NewReader(data), s.precision)
}

// Save uploads the full record set as one CSV object.
func (s *BlobStore) Save(ctx context.Context, records []domain.CacheRecord) error {
	data, err := encodeCSV(records, s.precision)
	if err != nil {
		return err
	}
	if err := s.writer.Put(ctx, s.key, bytes.NewReader(data), "text/csv"); err != nil {
		return fmt.Errorf("cache: put %s: %w", s.key, err)
	}
	return nil
}
