// Package screenshot captures page images and stores them under slug-derived keys.
package screenshot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecrawler/internal/hash/sha256"
	"github.com/JakeFAU/sitecrawler/internal/metrics"
	"github.com/JakeFAU/sitecrawler/internal/storage"
)

const contentType = "image/png"

// Capturer is the part of a page the publisher needs.
type Capturer interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Config controls how screenshots are stored.
type Config struct {
	CacheControl string
	Upsert       bool
}

// Publisher captures and uploads screenshots.
type Publisher struct {
	store  storage.BlobStore
	cfg    Config
	logger *zap.Logger
}

// NewPublisher constructs a Publisher.
func NewPublisher(store storage.BlobStore, cfg Config, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{store: store, cfg: cfg, logger: logger}
}

// Key returns the storage key for a record name.
func Key(name string) string {
	return name + ".png"
}

// Publish captures page and stores it under "{name}.png". Capture and storage errors
// are returned unchanged in meaning; the crawl treats both as fatal.
func (p *Publisher) Publish(ctx context.Context, page Capturer, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("screenshot name is required")
	}
	key := Key(name)
	image, err := page.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("capture %s: %w", key, err)
	}
	stored, err := p.store.Upload(ctx, key, image, storage.UploadOptions{
		ContentType:  contentType,
		CacheControl: p.cfg.CacheControl,
		Upsert:       p.cfg.Upsert,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	metrics.ObserveScreenshotBytes(len(image))
	p.logger.Debug("screenshot stored",
		zap.String("key", stored),
		zap.Int("bytes", len(image)),
		zap.String("sha256", sha256.Digest(image)),
	)
	return stored, nil
}
