// Package storage defines the object-storage capability used to publish crawl artifacts.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrObjectExists is returned when Upsert is false and the key is already taken.
var ErrObjectExists = errors.New("object already exists")

// UploadOptions mirrors the per-object settings the crawl sets on artifacts.
type UploadOptions struct {
	ContentType  string
	CacheControl string
	// Upsert overwrites an existing object instead of failing with ErrObjectExists.
	Upsert bool
}

// BlobStore stores bytes under a key and returns the key callers should reference.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, opts UploadOptions) (string, error)
}

// CacheControlHeader turns a bare number of seconds ("3600") into "max-age=3600" and
// passes any other value through unchanged.
func CacheControlHeader(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return v
		}
	}
	return "max-age=" + v
}
