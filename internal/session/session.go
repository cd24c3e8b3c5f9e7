// Package session acquires rendered pages with a best-effort load-and-settle protocol.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecrawler/internal/browser"
	"github.com/JakeFAU/sitecrawler/internal/metrics"
)

const (
	scrollToBottomScript = "window.scrollTo(0, document.body.scrollHeight)"
	scrollToTopScript    = "window.scrollTo(0, 0)"
)

// Config tunes the settle protocol.
type Config struct {
	BodySelector  string
	SelectorWait  time.Duration
	LazyLoadPause time.Duration
}

// DefaultConfig waits up to 10s for <body> and pauses 2s after scrolling.
func DefaultConfig() Config {
	return Config{
		BodySelector:  "body",
		SelectorWait:  10 * time.Second,
		LazyLoadPause: 2 * time.Second,
	}
}

// Loader opens pages and drives them through the settle protocol.
type Loader struct {
	browser browser.Browser
	cfg     Config
	logger  *zap.Logger
}

// NewLoader constructs a Loader.
func NewLoader(b browser.Browser, cfg Config, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BodySelector == "" {
		cfg.BodySelector = "body"
	}
	return &Loader{browser: b, cfg: cfg, logger: logger}
}

// step is one guarded part of the load protocol. A failed required step skips the
// steps after it; every other failure is only logged.
type step struct {
	name     string
	required bool
	run      func(ctx context.Context, p browser.Page) error
}

// Load opens a page for url and runs each settle step. Step failures are logged and
// swallowed so the caller always receives the page in whatever state it reached.
// Only failing to open a page at all is returned as an error. The caller owns the
// returned page and must Close it.
func (l *Loader) Load(ctx context.Context, url string) (browser.Page, error) {
	p, err := l.browser.Open(ctx)
	if err != nil {
		return nil, err
	}
	l.Settle(ctx, p, url)
	return p, nil
}

// Settle runs the load protocol against an already opened page.
func (l *Loader) Settle(ctx context.Context, p browser.Page, url string) {
	for _, s := range l.steps(url) {
		if err := s.run(ctx, p); err != nil {
			metrics.ObservePageLoadStepFailure(s.name)
			l.logger.Info("page load step failed, continuing with available content",
				zap.String("step", s.name),
				zap.String("url", url),
				zap.Error(err),
			)
			if s.required {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (l *Loader) steps(url string) []step {
	return []step{
		{
			name:     "navigate",
			required: true,
			run: func(ctx context.Context, p browser.Page) error {
				return p.Navigate(ctx, url)
			},
		},
		{
			name: "network_idle",
			run:  func(ctx context.Context, p browser.Page) error { return p.WaitNetworkIdle(ctx) },
		},
		{
			name: "wait_body",
			run: func(ctx context.Context, p browser.Page) error {
				return p.WaitForSelector(ctx, l.cfg.BodySelector, l.cfg.SelectorWait)
			},
		},
		{
			name: "scroll_bottom",
			run: func(ctx context.Context, p browser.Page) error {
				if err := p.Evaluate(ctx, scrollToBottomScript); err != nil {
					return err
				}
				return pause(ctx, l.cfg.LazyLoadPause)
			},
		},
		{
			name: "scroll_top",
			run:  func(ctx context.Context, p browser.Page) error { return p.Evaluate(ctx, scrollToTopScript) },
		},
	}
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
