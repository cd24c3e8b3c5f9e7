// Package gcs provides a BlobStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/JakeFAU/sitecrawler/internal/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	// Prefix is prepended to every object name. The returned key never includes it.
	Prefix string
}

// BlobStore writes artifacts to a configured GCS bucket.
type BlobStore struct {
	client *gcs.Client
	bucket string
	prefix string
}

// New creates a GCS-backed blob store.
func New(client *gcs.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Upload writes data to the bucket and returns key. Without Upsert the write is
// conditioned on the object not existing yet.
func (s *BlobStore) Upload(ctx context.Context, key string, data []byte, opts storage.UploadOptions) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("key is required")
	}
	obj := s.client.Bucket(s.bucket).Object(s.objectName(key))
	if !opts.Upsert {
		obj = obj.If(gcs.Conditions{DoesNotExist: true})
	}
	writer := obj.NewWriter(ctx)
	if opts.ContentType != "" {
		writer.ContentType = opts.ContentType
	}
	writer.CacheControl = storage.CacheControlHeader(opts.CacheControl)

	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if isPreconditionFailed(err) || isPreconditionFailed(closeErr) {
			return "", fmt.Errorf("upload %s: %w", key, storage.ErrObjectExists)
		}
		if closeErr != nil {
			return "", fmt.Errorf("write object %s: %w (close writer: %v)", key, err, closeErr)
		}
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			return "", fmt.Errorf("upload %s: %w", key, storage.ErrObjectExists)
		}
		return "", fmt.Errorf("close writer for %s: %w", key, err)
	}
	return key, nil
}

func (s *BlobStore) objectName(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}
