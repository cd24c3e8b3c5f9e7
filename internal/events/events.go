// Package events announces completed crawls to downstream consumers.
package events

import (
	"context"
	"time"
)

// Event describes one completed crawl. It carries identifiers and the vetted tags but
// not the generated content.
type Event struct {
	CrawlID       string    `json:"crawl_id"`
	Name          string    `json:"name"`
	URL           string    `json:"url"`
	ScreenshotKey string    `json:"screenshot_key"`
	Tags          []string  `json:"tags"`
	Languages     []string  `json:"languages"`
	CrawledAt     time.Time `json:"crawled_at"`
}

// Publisher delivers events and returns the broker's message id.
type Publisher interface {
	Publish(ctx context.Context, event Event) (string, error)
}

// Noop discards events.
type Noop struct{}

// Publish does nothing.
func (Noop) Publish(context.Context, Event) (string, error) { return "", nil }
