// Package localblob implements the domain blob interfaces on the local
// filesystem under a root directory. It is the fallback when no object store
// is configured, so the job can run end to end on a laptop with plain files.
package localblob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/supermms/betfair-tips/internal/domain"
)

// Store reads and writes blobs as files below Root. Object paths map to
// relative file paths; path traversal outside the root is rejected.
type Store struct {
	root string
}

// New creates a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("localblob: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("localblob: create root %s: %w", dir, err)
	}
	return &Store{root: dir}, nil
}

func (s *Store) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("localblob: path %q escapes root", path)
	}
	return filepath.Join(s.root, clean), nil
}

// Get opens the file at path. Returns domain.ErrNotFound when absent.
func (s *Store) Get(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("localblob: get %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("localblob: get %s: %w", path, err)
	}
	return f, nil
}

// List walks the tree below prefix and returns file metadata.
func (s *Store) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var infos []domain.BlobInfo
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, relErr := filepath.Rel(s.root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		infos = append(infos, domain.BlobInfo{
			Path:         rel,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("localblob: list prefix %s: %w", prefix, err)
	}
	return infos, nil
}

// Exists reports whether a file exists at path.
func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("localblob: exists %s: %w", path, err)
	}
	return true, nil
}

// Put writes data to the file at path, creating parent directories. The
// contentType is ignored; the filesystem has no use for it.
func (s *Store) Put(_ context.Context, path string, data io.Reader, _ string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("localblob: mkdir for %s: %w", path, err)
	}

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("localblob: create %s: %w", path, err)
	}
	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		return fmt.Errorf("localblob: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("localblob: close %s: %w", path, err)
	}
	return nil
}

// PutMultipart is identical to Put for local files.
func (s *Store) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return s.Put(ctx, path, data, "")
}
