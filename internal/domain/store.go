package domain

import (
	"context"
	"io"
	"time"
)

// CacheStore persists the full cache record list. Load returns every stored
// record; Save replaces the stored set wholesale (full overwrite, never
// append). Implementations exist for local files, S3 objects, Postgres
// tables, and Redis keys.
type CacheStore interface {
	Load(ctx context.Context) ([]CacheRecord, error)
	Save(ctx context.Context, records []CacheRecord) error
}

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}
