// Package headless implements browser.Browser on top of chromedp and headless Chrome.
package headless

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/sitecrawler/internal/browser"
)

const (
	defaultNavigationTimeout  = 45 * time.Second
	defaultNetworkIdleTimeout = 30 * time.Second
	defaultViewportWidth      = 1920
	defaultViewportHeight     = 1080
)

// Config controls the behavior of the headless browser.
type Config struct {
	MaxParallel        int
	UserAgents         []string
	ViewportWidth      int64
	ViewportHeight     int64
	FullPage           bool
	NavigationTimeout  time.Duration
	NetworkIdleTimeout time.Duration
	NoSandbox          bool
	ExecPath           string
}

// Browser shares one Chrome process and hands out one tab per Open call.
type Browser struct {
	cfg           Config
	sem           *semaphore.Weighted
	allocator     context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	startOnce     sync.Once
	startErr      error
	logger        *zap.Logger
}

// New creates a headless browser. Chrome is started lazily on the first Open.
func New(cfg Config, logger *zap.Logger) (*Browser, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if cfg.NetworkIdleTimeout <= 0 {
		cfg.NetworkIdleTimeout = defaultNetworkIdleTimeout
	}
	if cfg.ViewportWidth <= 0 || cfg.ViewportHeight <= 0 {
		cfg.ViewportWidth, cfg.ViewportHeight = defaultViewportWidth, defaultViewportHeight
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var sem *semaphore.Weighted
	if cfg.MaxParallel > 0 {
		sem = semaphore.NewWeighted(int64(cfg.MaxParallel))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &Browser{
		cfg:           cfg,
		sem:           sem,
		allocator:     allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(int(cfg.ViewportWidth), int(cfg.ViewportHeight)),
	)
	if cfg.NoSandbox {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// Close shuts down the shared browser and its allocator.
func (b *Browser) Close() error {
	b.browserCancel()
	b.allocCancel()
	return nil
}

// Healthy reports an error once the browser was closed or Chrome went away.
func (b *Browser) Healthy() error {
	if err := b.browserCtx.Err(); err != nil {
		return fmt.Errorf("browser unavailable: %w", err)
	}
	return nil
}

// Open waits for a free slot, then opens a new tab prepared with a rotated user agent,
// screen media emulation and the configured viewport.
func (b *Browser) Open(ctx context.Context) (browser.Page, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.start(); err != nil {
		release()
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	t := &tab{
		cfg:     b.cfg,
		tabCtx:  tabCtx,
		cancel:  tabCancel,
		idle:    make(chan struct{}, 1),
		release: release,
	}
	chromedp.ListenTarget(tabCtx, t.captureEvent)

	ua := b.pickUserAgent()
	if err := t.run(ctx, 0, b.setupActions(ua)...); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("prepare tab: %w", err)
	}
	b.logger.Debug("tab opened", zap.String("user_agent", ua))
	return t, nil
}

func (b *Browser) start() error {
	b.startOnce.Do(func() {
		if err := chromedp.Run(b.browserCtx); err != nil {
			b.startErr = fmt.Errorf("start browser: %w", err)
		}
	})
	return b.startErr
}

func (b *Browser) setupActions(userAgent string) []chromedp.Action {
	actions := []chromedp.Action{
		page.SetLifecycleEventsEnabled(true),
		emulation.SetEmulatedMedia().WithMedia("screen"),
		chromedp.EmulateViewport(b.cfg.ViewportWidth, b.cfg.ViewportHeight),
	}
	if userAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(userAgent))
	}
	return actions
}

func (b *Browser) pickUserAgent() string {
	switch len(b.cfg.UserAgents) {
	case 0:
		return ""
	case 1:
		return b.cfg.UserAgents[0]
	default:
		return b.cfg.UserAgents[rand.IntN(len(b.cfg.UserAgents))]
	}
}

func (b *Browser) acquire(ctx context.Context) (func(), error) {
	if b.sem == nil {
		return func() {}, nil
	}
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("browser slot wait canceled: %w", err)
	}
	var once sync.Once
	return func() { once.Do(func() { b.sem.Release(1) }) }, nil
}

type tab struct {
	cfg     Config
	tabCtx  context.Context
	cancel  context.CancelFunc
	idle    chan struct{}
	release func()

	mu     sync.Mutex
	closed bool
}

func (t *tab) captureEvent(ev any) {
	lifecycle, ok := ev.(*page.EventLifecycleEvent)
	if !ok || lifecycle.Name != "networkIdle" {
		return
	}
	select {
	case t.idle <- struct{}{}:
	default:
	}
}

// Navigate loads url and waits for the load event.
func (t *tab) Navigate(ctx context.Context, url string) error {
	select {
	case <-t.idle:
	default:
	}
	if err := t.run(ctx, t.cfg.NavigationTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

// WaitNetworkIdle blocks until Chrome reports the networkIdle lifecycle event.
func (t *tab) WaitNetworkIdle(ctx context.Context) error {
	if t.isClosed() {
		return browser.ErrClosed
	}
	timer := time.NewTimer(t.cfg.NetworkIdleTimeout)
	defer timer.Stop()
	select {
	case <-t.idle:
		return nil
	case <-timer.C:
		return fmt.Errorf("network idle: timed out after %s", t.cfg.NetworkIdleTimeout)
	case <-ctx.Done():
		return fmt.Errorf("network idle: %w", ctx.Err())
	case <-t.tabCtx.Done():
		return browser.ErrClosed
	}
}

// WaitForSelector waits up to timeout for selector to be ready in the DOM.
func (t *tab) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := t.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// Evaluate runs script in the page and discards its result.
func (t *tab) Evaluate(ctx context.Context, script string) error {
	if err := t.run(ctx, 0, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

// Content returns the current serialized document.
func (t *tab) Content(ctx context.Context) (string, error) {
	var html string
	if err := t.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return html, nil
}

// Screenshot captures a PNG of the viewport, or of the whole page when FullPage is set.
func (t *tab) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	action := chromedp.CaptureScreenshot(&buf)
	if t.cfg.FullPage {
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := t.run(ctx, 0, action); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

// Close closes the tab and frees its browser slot. It is safe to call more than once.
func (t *tab) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.cancel()
	t.release()
	return nil
}

func (t *tab) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *tab) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if t.isClosed() {
		return browser.ErrClosed
	}
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(t.tabCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(t.tabCtx)
	}
	defer cancel()

	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
