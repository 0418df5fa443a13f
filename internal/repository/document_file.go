package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFilePermissions is applied to every document file.
const DefaultFilePermissions = 0o600

// DocumentFile stores each document as <dir>/<kind>.json. Writes go to a temp
// file in the same directory and are renamed over the target.
type DocumentFile struct {
	dir string
	mu  sync.Mutex
}

// NewDocumentFile creates dir if needed.
func NewDocumentFile(dir string) (*DocumentFile, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &DocumentFile{dir: dir}, nil
}

var _ DocumentStore = (*DocumentFile)(nil)

func (r *DocumentFile) path(kind string) string {
	return filepath.Join(r.dir, kind+".json")
}

// Get reads the document from disk.
func (r *DocumentFile) Get(_ context.Context, kind string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path(kind))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read document %q: %w", kind, err)
	}
	return contents, nil
}

// Put writes body to a temp file, syncs it and renames it into place.
func (r *DocumentFile) Put(_ context.Context, kind string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tmp, err := os.CreateTemp(r.dir, kind+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp document: %w", err)
	}
	if err := os.Chmod(tmpName, DefaultFilePermissions); err != nil {
		return fmt.Errorf("chmod temp document: %w", err)
	}
	if err := os.Rename(tmpName, r.path(kind)); err != nil {
		return fmt.Errorf("replace document %q: %w", kind, err)
	}
	return nil
}
