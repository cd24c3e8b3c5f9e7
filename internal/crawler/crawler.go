package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecrawler/internal/clock/system"
	"github.com/JakeFAU/sitecrawler/internal/enrich"
	"github.com/JakeFAU/sitecrawler/internal/events"
	"github.com/JakeFAU/sitecrawler/internal/extract"
	"github.com/JakeFAU/sitecrawler/internal/metrics"
)

var tracer = otel.Tracer("github.com/JakeFAU/sitecrawler/internal/crawler")

// Config holds orchestrator settings.
type Config struct {
	// DefaultLanguages replaces an empty request language list. Falls back to
	// the package DefaultLanguages.
	DefaultLanguages []string
	TextMode         extract.TextMode
}

// Dependencies bundles the collaborators an Orchestrator needs. Events, IDs and Clock
// are optional.
type Dependencies struct {
	Loader      PageLoader
	Screenshots ScreenshotPublisher
	Enricher    Enricher
	Events      events.Publisher
	IDs         IDGenerator
	Clock       Clock
}

// Orchestrator runs one crawl end to end.
type Orchestrator struct {
	loader      PageLoader
	screenshots ScreenshotPublisher
	enricher    Enricher
	events      events.Publisher
	ids         IDGenerator
	clock       Clock
	cfg         Config
	logger      *zap.Logger
}

// New wires an Orchestrator.
func New(deps Dependencies, cfg Config, logger *zap.Logger) (*Orchestrator, error) {
	if deps.Loader == nil {
		return nil, errors.New("page loader is required")
	}
	if deps.Screenshots == nil {
		return nil, errors.New("screenshot publisher is required")
	}
	if deps.Enricher == nil {
		return nil, errors.New("enricher is required")
	}
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.DefaultLanguages) == 0 {
		cfg.DefaultLanguages = DefaultLanguages
	}
	if cfg.TextMode == "" {
		cfg.TextMode = extract.TextModePlain
	}
	return &Orchestrator{
		loader:      deps.Loader,
		screenshots: deps.Screenshots,
		enricher:    deps.Enricher,
		events:      deps.Events,
		ids:         deps.IDs,
		clock:       deps.Clock,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Crawl loads req.URL, extracts metadata, publishes a screenshot, enriches the page
// text and returns the assembled record. Page-load problems are tolerated; extraction
// yields empty strings for missing fields. Screenshot, model and storage errors abort
// the crawl and no partial result is returned. The page is always closed.
func (o *Orchestrator) Crawl(ctx context.Context, req Request) (result Result, err error) {
	start := time.Now()
	target, name, err := ValidateURL(req.URL)
	if err != nil {
		metrics.ObserveCrawl("unknown", "rejected", time.Since(start))
		return Result{}, err
	}
	site := metrics.SanitizeSite(target)
	ctx, span := tracer.Start(ctx, "crawl", trace.WithAttributes(
		attribute.String("crawl.url", target),
		attribute.String("crawl.name", name),
	))
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		metrics.ObserveCrawl(site, outcome, time.Since(start))
	}()

	languages := req.Languages
	if len(languages) == 0 {
		languages = append([]string(nil), o.cfg.DefaultLanguages...)
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	logger := o.logger.With(zap.String("url", target), zap.String("name", name))
	logger.Info("crawl started", zap.Strings("tags", tags), zap.Strings("languages", languages))

	stageStart := time.Now()
	page, err := o.loader.Load(ctx, target)
	observeStage(span, "load", stageStart)
	if err != nil {
		return Result{}, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logger.Warn("failed to close page", zap.Error(cerr))
		}
	}()

	stageStart = time.Now()
	html, err := page.Content(ctx)
	if err != nil {
		logger.Info("page content unavailable, continuing with empty document", zap.Error(err))
		html = ""
	}
	doc, err := extract.Parse(html)
	if err != nil {
		return Result{}, fmt.Errorf("parse page: %w", err)
	}
	meta := extract.ExtractMetadata(doc, target)
	observeStage(span, "extract", stageStart)

	stageStart = time.Now()
	key, err := o.screenshots.Publish(ctx, page, name)
	observeStage(span, "screenshot", stageStart)
	if err != nil {
		return Result{}, fmt.Errorf("publish screenshot: %w", err)
	}

	text, err := extract.Text(doc, html, o.cfg.TextMode)
	if err != nil {
		return Result{}, fmt.Errorf("extract text: %w", err)
	}

	stageStart = time.Now()
	out, err := o.enricher.Run(ctx, enrich.Input{
		Title:       meta.Title,
		Description: meta.Description,
		Text:        text,
		Tags:        tags,
		Languages:   languages,
	})
	observeStage(span, "enrich", stageStart)
	if err != nil {
		return Result{}, fmt.Errorf("enrich: %w", err)
	}

	result = Result{
		CrawledAt:     o.clock.Now(),
		Name:          name,
		URL:           target,
		Title:         meta.Title,
		Description:   meta.Description,
		ScreenshotKey: key,
		Tags:          out.Tags,
		Languages:     out.Translations,
	}
	if o.ids != nil {
		id, idErr := o.ids.NewID()
		if idErr != nil {
			return Result{}, fmt.Errorf("generate crawl id: %w", idErr)
		}
		result.ID = id
	}
	o.announce(ctx, result, languages, logger)
	logger.Info("crawl finished",
		zap.String("crawl_id", result.ID),
		zap.Int("tags", len(result.Tags)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// announce publishes a completion event. Failures never fail the crawl.
func (o *Orchestrator) announce(ctx context.Context, result Result, languages []string, logger *zap.Logger) {
	msgID, err := o.events.Publish(ctx, events.Event{
		CrawlID:       result.ID,
		Name:          result.Name,
		URL:           result.URL,
		ScreenshotKey: result.ScreenshotKey,
		Tags:          result.Tags,
		Languages:     languages,
		CrawledAt:     result.CrawledAt,
	})
	if err != nil {
		logger.Warn("failed to publish crawl event", zap.Error(err))
		return
	}
	if msgID != "" {
		logger.Debug("crawl event published", zap.String("message_id", msgID))
	}
}

func observeStage(span trace.Span, stage string, began time.Time) {
	elapsed := time.Since(began)
	metrics.ObserveStage(stage, elapsed)
	span.AddEvent(stage, trace.WithAttributes(attribute.Int64("duration_ms", elapsed.Milliseconds())))
}
