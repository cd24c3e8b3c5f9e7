// Package memory stores blob content in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/JakeFAU/sitecrawler/internal/storage"
)

// Object is one stored blob with the options it was written with.
type Object struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// BlobStore stores artifacts in-memory.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	writes  int
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		objects: make(map[string]Object),
	}
}

// Upload persists a copy of data and returns key.
func (s *BlobStore) Upload(_ context.Context, key string, data []byte, opts storage.UploadOptions) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; exists && !opts.Upsert {
		return "", fmt.Errorf("upload %s: %w", key, storage.ErrObjectExists)
	}
	s.objects[key] = Object{
		Data:         append([]byte(nil), data...),
		ContentType:  opts.ContentType,
		CacheControl: storage.CacheControlHeader(opts.CacheControl),
	}
	s.writes++
	return key, nil
}

// Get returns the stored object for key.
func (s *BlobStore) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Len returns the number of distinct keys stored.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Writes returns how many uploads succeeded, overwrites included.
func (s *BlobStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
