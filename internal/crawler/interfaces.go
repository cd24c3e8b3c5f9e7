package crawler

import (
	"context"
	"time"

	"github.com/JakeFAU/sitecrawler/internal/browser"
	"github.com/JakeFAU/sitecrawler/internal/enrich"
	"github.com/JakeFAU/sitecrawler/internal/screenshot"
)

// PageLoader opens a page and runs the best-effort settle protocol on it. The caller
// owns the returned page.
type PageLoader interface {
	Load(ctx context.Context, url string) (browser.Page, error)
}

// ScreenshotPublisher captures a page image and stores it under a key derived from name.
type ScreenshotPublisher interface {
	Publish(ctx context.Context, page screenshot.Capturer, name string) (string, error)
}

// Enricher runs the language-model enrichment steps.
type Enricher interface {
	Run(ctx context.Context, in enrich.Input) (enrich.Output, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces crawl IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
