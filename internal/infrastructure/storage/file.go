package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/herbalscanner/backend/internal/domain"
)

const valueFileExt = ".json"

// FileStore keeps one file per key under a root directory.
// Writes land in a temp file first and are renamed into place, so a reader
// sees either the previous value or the new one, never a partial write.
type FileStore struct {
	fs    afero.Fs
	root  string
	mutex sync.RWMutex
}

// NewFileStore creates the root directory if needed
func NewFileStore(fsys afero.Fs, root string) (*FileStore, error) {
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir %s: %v", domain.ErrStorageUnavailable, root, err)
	}
	return &FileStore{fs: fsys, root: root}, nil
}

// Get reads the value stored under key
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	data, err := afero.ReadFile(s.fs, s.pathFor(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStorageUnavailable, key, err)
	}
	return data, nil
}

// Set atomically replaces the value stored under key
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	target := s.pathFor(key)
	tmp := filepath.Join(s.root, ".tmp-"+uuid.NewString())

	if err := afero.WriteFile(s.fs, tmp, value, 0o600); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorageUnavailable, key, err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("%w: commit %s: %v", domain.ErrStorageUnavailable, key, err)
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.fs.Remove(s.pathFor(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: delete %s: %v", domain.ErrStorageUnavailable, key, err)
	}
	return nil
}

// Close is a no-op; every write is already durable
func (s *FileStore) Close() error {
	return nil
}

// pathFor escapes the key so separators like ':' and '/' stay inside one file name
func (s *FileStore) pathFor(key string) string {
	return filepath.Join(s.root, url.PathEscape(key)+valueFileExt)
}
