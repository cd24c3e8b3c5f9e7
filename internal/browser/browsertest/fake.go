// Package browsertest provides scriptable in-memory browser.Browser and browser.Page
// implementations for tests.
package browsertest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JakeFAU/sitecrawler/internal/browser"
)

// Page is a fake page. Err* fields make the matching call fail.
type Page struct {
	HTML  string
	Image []byte

	NavigateErr   error
	IdleErr       error
	SelectorErr   error
	EvaluateErr   error
	ContentErr    error
	ScreenshotErr error

	mu       sync.Mutex
	calls    []string
	scripts  []string
	url      string
	timeouts []time.Duration
	closed   bool
}

// Navigate records the url.
func (p *Page) Navigate(_ context.Context, url string) error {
	p.record("navigate")
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
	return p.NavigateErr
}

// WaitNetworkIdle records the call.
func (p *Page) WaitNetworkIdle(_ context.Context) error {
	p.record("network_idle")
	return p.IdleErr
}

// WaitForSelector records the selector timeout.
func (p *Page) WaitForSelector(_ context.Context, selector string, timeout time.Duration) error {
	p.record("wait:" + selector)
	p.mu.Lock()
	p.timeouts = append(p.timeouts, timeout)
	p.mu.Unlock()
	return p.SelectorErr
}

// Evaluate records the script.
func (p *Page) Evaluate(_ context.Context, script string) error {
	p.record("evaluate")
	p.mu.Lock()
	p.scripts = append(p.scripts, script)
	p.mu.Unlock()
	return p.EvaluateErr
}

// Content returns HTML.
func (p *Page) Content(_ context.Context) (string, error) {
	p.record("content")
	if p.ContentErr != nil {
		return "", p.ContentErr
	}
	return p.HTML, nil
}

// Screenshot returns Image.
func (p *Page) Screenshot(_ context.Context) ([]byte, error) {
	p.record("screenshot")
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	return append([]byte(nil), p.Image...), nil
}

// Close marks the page closed.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Calls returns the recorded call names in order.
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Scripts returns evaluated scripts in order.
func (p *Page) Scripts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.scripts...)
}

// Timeouts returns the selector timeouts passed to WaitForSelector.
func (p *Page) Timeouts() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.timeouts...)
}

// URL returns the last navigated url.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) record(call string) {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
}

// Browser hands out pages built by NewPage, or OpenErr.
type Browser struct {
	NewPage func() *Page
	OpenErr error

	mu     sync.Mutex
	opened []*Page
	closed bool
}

// Open returns a new fake page.
func (b *Browser) Open(ctx context.Context) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	if b.NewPage == nil {
		return nil, errors.New("browsertest: NewPage not set")
	}
	p := b.NewPage()
	b.mu.Lock()
	b.opened = append(b.opened, p)
	b.mu.Unlock()
	return p, nil
}

// Close marks the browser closed.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Healthy fails after Close.
func (b *Browser) Healthy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("browsertest: browser closed")
	}
	return nil
}

// Opened returns every page handed out so far.
func (b *Browser) Opened() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Page(nil), b.opened...)
}
