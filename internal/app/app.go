// Package app builds long-lived services from configuration and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecrawler/internal/api"
	"github.com/JakeFAU/sitecrawler/internal/browser"
	"github.com/JakeFAU/sitecrawler/internal/browser/headless"
	"github.com/JakeFAU/sitecrawler/internal/clock/system"
	"github.com/JakeFAU/sitecrawler/internal/config"
	"github.com/JakeFAU/sitecrawler/internal/crawler"
	"github.com/JakeFAU/sitecrawler/internal/enrich"
	"github.com/JakeFAU/sitecrawler/internal/events"
	memoryevents "github.com/JakeFAU/sitecrawler/internal/events/memory"
	pubsubevents "github.com/JakeFAU/sitecrawler/internal/events/pubsub"
	"github.com/JakeFAU/sitecrawler/internal/extract"
	"github.com/JakeFAU/sitecrawler/internal/id/uuid"
	"github.com/JakeFAU/sitecrawler/internal/llm"
	"github.com/JakeFAU/sitecrawler/internal/llm/openai"
	"github.com/JakeFAU/sitecrawler/internal/logging"
	"github.com/JakeFAU/sitecrawler/internal/screenshot"
	"github.com/JakeFAU/sitecrawler/internal/session"
	"github.com/JakeFAU/sitecrawler/internal/storage"
	gcsstorage "github.com/JakeFAU/sitecrawler/internal/storage/gcs"
	localstorage "github.com/JakeFAU/sitecrawler/internal/storage/local"
	memorystorage "github.com/JakeFAU/sitecrawler/internal/storage/memory"
	"github.com/JakeFAU/sitecrawler/internal/telemetry"
)

const serviceName = "sitecrawler"

// App contains the application's dependencies.
type App struct {
	cfg             config.Config
	logger          *zap.Logger
	browser         browser.Browser
	orchestrator    *crawler.Orchestrator
	apiServer       *api.Server
	storage         *gcs.Client
	pubsubClient    *pubsub.Client
	pubsubPublisher *pubsubevents.Publisher
	tracerShutdown  func(context.Context) error
	closing         atomic.Bool
	closeOnce       sync.Once
}

// Option overrides a dependency Build would otherwise construct from config.
type Option func(*overrides)

type overrides struct {
	logger  *zap.Logger
	browser browser.Browser
	model   llm.Client
	store   storage.BlobStore
	events  events.Publisher
}

// WithLogger uses logger instead of building one from config.
func WithLogger(logger *zap.Logger) Option {
	return func(o *overrides) { o.logger = logger }
}

// WithBrowser uses b instead of launching Chrome.
func WithBrowser(b browser.Browser) Option {
	return func(o *overrides) { o.browser = b }
}

// WithModel uses m instead of the configured language model.
func WithModel(m llm.Client) Option {
	return func(o *overrides) { o.model = m }
}

// WithBlobStore uses s instead of the configured storage provider.
func WithBlobStore(s storage.BlobStore) Option {
	return func(o *overrides) { o.store = s }
}

// WithEvents uses p instead of the configured events provider.
func WithEvents(p events.Publisher) Option {
	return func(o *overrides) { o.events = p }
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o overrides
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
		zap.ReplaceGlobals(logger)
	}
	app := &App{cfg: cfg, logger: logger}

	tp, err := telemetry.InitTracerProvider(ctx, serviceName)
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	app.tracerShutdown = tp.Shutdown

	app.logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("storage_provider", cfg.Storage.Provider),
		zap.String("events_provider", cfg.Events.Provider),
	)

	if err := app.setupBrowser(o.browser); err != nil {
		app.Close(ctx)
		return nil, err
	}
	store, err := app.setupStorage(ctx, o.store)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	model, err := app.setupModel(o.model)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	publisher, err := app.setupEvents(ctx, o.events)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	loader := session.NewLoader(app.browser, session.Config{
		BodySelector:  "body",
		SelectorWait:  cfg.Browser.SelectorTimeout(),
		LazyLoadPause: cfg.Browser.SettleDelay(),
	}, logger.Named("session"))
	shots := screenshot.NewPublisher(store, screenshot.Config{
		CacheControl: cfg.Storage.CacheControl,
		Upsert:       cfg.Storage.Upsert,
	}, logger.Named("screenshot"))
	pipeline := enrich.New(model, enrich.Config{
		Prompts: enrich.Prompts{
			Detail:      cfg.Prompts.Detail,
			TagSelector: cfg.Prompts.TagSelector,
			Language:    cfg.Prompts.Language,
		},
		TranslationConcurrency: cfg.Enrich.TranslationConcurrency,
	}, logger.Named("enrich"))

	app.orchestrator, err = crawler.New(crawler.Dependencies{
		Loader:      loader,
		Screenshots: shots,
		Enricher:    pipeline,
		Events:      publisher,
		IDs:         uuid.New(),
		Clock:       system.New(),
	}, crawler.Config{
		DefaultLanguages: cfg.Enrich.DefaultLanguages,
		TextMode:         extract.TextMode(cfg.Enrich.TextMode),
	}, logger.Named("crawler"))
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("crawler init failed: %w", err)
	}

	app.apiServer = api.NewServer(app.orchestrator, api.Options{
		CrawlTimeout: cfg.CrawlTimeout(),
		Ready:        app.Ready,
	}, logger.Named("api"))
	return app, nil
}

// Crawler returns the crawl orchestrator.
func (a *App) Crawler() *crawler.Orchestrator {
	return a.orchestrator
}

// Crawl runs one crawl bounded by the configured crawl timeout.
func (a *App) Crawl(ctx context.Context, req crawler.Request) (crawler.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.CrawlTimeout())
	defer cancel()
	return a.orchestrator.Crawl(ctx, req)
}

// Ready fails once shutdown has begun or the browser is no longer usable.
func (a *App) Ready(context.Context) error {
	if a.closing.Load() {
		return errors.New("shutting down")
	}
	if hc, ok := a.browser.(browser.HealthChecker); ok {
		return hc.Healthy()
	}
	return nil
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Run serves HTTP and blocks until ctx is canceled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")
	a.closing.Store(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close(shutdownCtx)

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// Close releases every service Build created. It is safe to call on a partially
// built App and more than once; only the first call does any work.
func (a *App) Close(ctx context.Context) {
	a.closing.Store(true)
	a.closeOnce.Do(func() { a.close(ctx) })
}

func (a *App) close(ctx context.Context) {
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			a.logger.Warn("browser close failed", zap.Error(err))
		}
	}
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("logger sync failed", zap.Error(err))
	}
}

func (a *App) setupBrowser(override browser.Browser) error {
	if override != nil {
		a.browser = override
		return nil
	}
	b, err := headless.New(headless.Config{
		MaxParallel:        a.cfg.Browser.MaxParallel,
		UserAgents:         a.cfg.Browser.UserAgents,
		ViewportWidth:      a.cfg.Browser.ViewportWidth,
		ViewportHeight:     a.cfg.Browser.ViewportHeight,
		FullPage:           a.cfg.Browser.FullPage,
		NavigationTimeout:  a.cfg.Browser.NavTimeout(),
		NetworkIdleTimeout: a.cfg.Browser.IdleTimeout(),
		NoSandbox:          a.cfg.Browser.NoSandbox,
		ExecPath:           a.cfg.Browser.ExecPath,
	}, a.logger.Named("browser"))
	if err != nil {
		return fmt.Errorf("browser init failed: %w", err)
	}
	a.browser = b
	return nil
}

func (a *App) setupStorage(ctx context.Context, override storage.BlobStore) (storage.BlobStore, error) {
	if override != nil {
		return override, nil
	}
	switch a.cfg.Storage.Provider {
	case "gcs":
		a.logger.Info("using GCS storage backend", zap.String("bucket", a.cfg.Storage.Bucket))
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.storage = client
		store, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket: a.cfg.Storage.Bucket,
			Prefix: a.cfg.Storage.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		return store, nil
	case "local":
		a.logger.Info("using local storage backend", zap.String("path", a.cfg.Storage.BaseDir))
		store, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return store, nil
	default:
		a.logger.Info("using in-memory storage backend")
		return memorystorage.NewBlobStore(), nil
	}
}

func (a *App) setupModel(override llm.Client) (llm.Client, error) {
	if override != nil {
		return override, nil
	}
	if a.cfg.LLM.Provider == "echo" {
		a.logger.Warn("using echo language model; generated content will mirror its input")
		return llm.Echo{}, nil
	}
	client, err := openai.New(openai.Config{
		BaseURL:        a.cfg.LLM.BaseURL,
		APIKey:         a.cfg.LLM.APIKey,
		Model:          a.cfg.LLM.Model,
		MaxTokens:      a.cfg.LLM.MaxTokens,
		Temperature:    a.cfg.LLM.Temperature,
		RequestTimeout: a.cfg.LLM.RequestTimeout(),
	}, a.logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("llm init failed: %w", err)
	}
	return client, nil
}

func (a *App) setupEvents(ctx context.Context, override events.Publisher) (events.Publisher, error) {
	if override != nil {
		return override, nil
	}
	switch a.cfg.Events.Provider {
	case "pubsub":
		client, err := pubsub.NewClient(ctx, a.cfg.Events.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub client init failed: %w", err)
		}
		a.pubsubClient = client
		a.pubsubPublisher = pubsubevents.New(client.Topic(a.cfg.Events.Topic))
		a.logger.Info("publishing crawl events to Pub/Sub", zap.String("topic", a.cfg.Events.Topic))
		return a.pubsubPublisher, nil
	case "memory":
		return memoryevents.New(), nil
	default:
		return events.Noop{}, nil
	}
}
