// Package enrich turns page text and metadata into generated detail, a vetted tag set
// and per-language variants using a language model.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/sitecrawler/internal/llm"
	"github.com/JakeFAU/sitecrawler/internal/metrics"
)

const (
	stepDetail    = "detail"
	stepTags      = "tags"
	stepTranslate = "translate"

	defaultTranslationConcurrency = 4
)

// Config tunes the pipeline.
type Config struct {
	Prompts Prompts
	// TranslationConcurrency bounds concurrent model calls across languages.
	TranslationConcurrency int
}

// Input is the raw material gathered by the crawl.
type Input struct {
	Title       string
	Description string
	Text        string
	Tags        []string
	Languages   []string
}

// Translation is one language variant of the generated record.
type Translation struct {
	Language    string `json:"language"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Detail      string `json:"detail"`
}

// Output is the result of a full pipeline run.
type Output struct {
	Detail       string
	Tags         []string
	Translations []Translation
}

// Pipeline runs detail generation, tag selection and translation.
type Pipeline struct {
	model       llm.Client
	prompts     Prompts
	concurrency int
	logger      *zap.Logger
}

// New constructs a Pipeline around model.
func New(model llm.Client, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TranslationConcurrency <= 0 {
		cfg.TranslationConcurrency = defaultTranslationConcurrency
	}
	return &Pipeline{
		model:       model,
		prompts:     cfg.Prompts.withDefaults(),
		concurrency: cfg.TranslationConcurrency,
		logger:      logger,
	}
}

// Run executes the three steps in order. Any model error aborts the run.
func (p *Pipeline) Run(ctx context.Context, in Input) (Output, error) {
	detail, err := p.Detail(ctx, in.Text)
	if err != nil {
		return Output{}, err
	}
	tags, err := p.SelectTags(ctx, in.Tags, detail)
	if err != nil {
		return Output{}, err
	}
	translations, err := p.Translate(ctx, in.Languages, in.Title, in.Description, detail)
	if err != nil {
		return Output{}, err
	}
	return Output{Detail: detail, Tags: tags, Translations: translations}, nil
}

// Detail generates long-form markdown content from page text.
func (p *Pipeline) Detail(ctx context.Context, text string) (string, error) {
	detail, err := p.complete(ctx, stepDetail, p.prompts.Detail, text)
	if err != nil {
		return "", fmt.Errorf("generate detail: %w", err)
	}
	return detail, nil
}

// SelectTags asks the model to pick from candidates and keeps only candidate tags from
// its answer. With no candidates the model is not called.
func (p *Pipeline) SelectTags(ctx context.Context, candidates []string, detail string) ([]string, error) {
	if len(candidates) == 0 {
		return []string{}, nil
	}
	out, err := p.complete(ctx, stepTags, p.prompts.TagSelector, TagInput(candidates, detail))
	if err != nil {
		return nil, fmt.Errorf("select tags: %w", err)
	}
	tags := ParseTags(out, candidates)
	p.logger.Debug("tags selected", zap.Strings("tags", tags), zap.String("raw", out))
	return tags, nil
}

// Translate produces one Translation per language, in input order. Languages are
// processed concurrently. Each language normally costs three model calls (title,
// description, detail); a field that is empty or whitespace is not sent to the model
// and stays "" in that language.
func (p *Pipeline) Translate(ctx context.Context, languages []string, title, description, detail string) ([]Translation, error) {
	results := make([]Translation, len(languages))
	if len(languages) == 0 {
		return results, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, language := range languages {
		g.Go(func() error {
			t, err := p.translateOne(gctx, language, title, description, detail)
			if err != nil {
				return fmt.Errorf("translate %s: %w", language, err)
			}
			results[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) translateOne(ctx context.Context, language, title, description, detail string) (Translation, error) {
	prompt := p.prompts.LanguagePrompt(language)
	out := Translation{Language: language}
	fields := []struct {
		src string
		dst *string
	}{
		{title, &out.Title},
		{description, &out.Description},
		{detail, &out.Detail},
	}
	for _, f := range fields {
		// Nothing to translate; skip the model call.
		if strings.TrimSpace(f.src) == "" {
			continue
		}
		v, err := p.complete(ctx, stepTranslate, prompt, f.src)
		if err != nil {
			return Translation{}, err
		}
		*f.dst = v
	}
	return out, nil
}

func (p *Pipeline) complete(ctx context.Context, step, systemPrompt, input string) (string, error) {
	start := time.Now()
	out, err := p.model.Complete(ctx, systemPrompt, input)
	d := time.Since(start)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveModelCall(step, outcome, d)
	p.logger.Debug("model call finished",
		zap.String("step", step),
		zap.String("outcome", outcome),
		zap.Int("input_chars", len(input)),
		zap.Duration("duration", d),
	)
	return out, err
}
