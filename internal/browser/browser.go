// Package browser defines the page-automation capability used to acquire rendered pages.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by Page methods after Close.
var ErrClosed = errors.New("page closed")

// Browser opens isolated pages. Implementations bound how many pages may be open at once.
type Browser interface {
	Open(ctx context.Context) (Page, error)
	Close() error
}

// HealthChecker is implemented by browsers that can report whether they are usable.
type HealthChecker interface {
	Healthy() error
}

// Page is one rendered document. It is owned by a single crawl and is not safe for
// concurrent use.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitNetworkIdle(ctx context.Context) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	Evaluate(ctx context.Context, script string) error
	Content(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}
