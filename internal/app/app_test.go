package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/sitecrawler/internal/browser/browsertest"
	"github.com/JakeFAU/sitecrawler/internal/config"
	"github.com/JakeFAU/sitecrawler/internal/crawler"
	memoryevents "github.com/JakeFAU/sitecrawler/internal/events/memory"
	memorystorage "github.com/JakeFAU/sitecrawler/internal/storage/memory"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Server:  config.ServerConfig{Port: 8000, CrawlTimeoutSeconds: 30},
		Browser: config.BrowserConfig{MaxParallel: 1, ViewportWidth: 1920, ViewportHeight: 1080, SelectorTimeoutSeconds: 1},
		LLM:     config.LLMConfig{Provider: "echo"},
		Enrich:  config.EnrichConfig{TranslationConcurrency: 2, DefaultLanguages: []string{"zh", "en"}, TextMode: "markdown"},
		Storage: config.StorageConfig{Provider: "local", BaseDir: t.TempDir(), CacheControl: "3600", Upsert: true},
		Events:  config.EventsConfig{Provider: "memory"},
	}
}

func fakeBrowser() *browsertest.Browser {
	return &browsertest.Browser{NewPage: func() *browsertest.Page {
		return &browsertest.Page{
			HTML:  `<html><head><title>Demo</title><meta property="og:description" content="From OG"></head><body><h1>Demo</h1></body></html>`,
			Image: []byte("png"),
		}
	}}
}

func TestBuildWiresCrawlEndToEnd(t *testing.T) {
	b := fakeBrowser()
	store := memorystorage.NewBlobStore()
	pub := memoryevents.New()

	a, err := Build(context.Background(), testConfig(t),
		WithLogger(zap.NewNop()),
		WithBrowser(b),
		WithBlobStore(store),
		WithEvents(pub),
	)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	res, err := a.Crawler().Crawl(context.Background(), crawler.Request{URL: "https://www.demo.com/app/"})
	require.NoError(t, err)
	require.Equal(t, "demo-com-app", res.Name)
	require.Equal(t, "From OG", res.Description)
	require.Len(t, res.Languages, 2)
	require.Equal(t, "zh", res.Languages[0].Language)
	require.Equal(t, "en", res.Languages[1].Language)
	require.Contains(t, res.Languages[0].Detail, "# Demo")

	_, ok := store.Get("demo-com-app.png")
	require.True(t, ok)
	require.Len(t, pub.Events(), 1)
	require.NotEmpty(t, pub.Events()[0].CrawlID)

	opened := b.Opened()
	require.Len(t, opened, 1)
	require.True(t, opened[0].Closed())
}

func TestBuildServesHTTP(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t), WithLogger(zap.NewNop()), WithBrowser(fakeBrowser()))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/site/crawl", "application/json",
		strings.NewReader(`{"url":"https://demo.com","tags":["ai","tool"],"languages":["en"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Crawl-ID"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "demo-com", body["name"])
	require.Equal(t, "demo-com.png", body["screenshot_key"])

	bad, err := http.Post(srv.URL+"/site/crawl", "application/json", strings.NewReader(`{"url":"ftp://demo.com"}`))
	require.NoError(t, err)
	defer bad.Body.Close()
	require.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestBuildRejectsBadLocalStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.BaseDir = ""
	_, err := Build(context.Background(), cfg, WithLogger(zap.NewNop()), WithBrowser(fakeBrowser()))
	require.Error(t, err)
}

func TestBuildRequiresOpenAICredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM = config.LLMConfig{Provider: "openai", Model: "m"}
	_, err := Build(context.Background(), cfg, WithLogger(zap.NewNop()), WithBrowser(fakeBrowser()))
	require.ErrorContains(t, err, "llm init failed")
}

func TestCloseRunsOnce(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	b := fakeBrowser()
	a, err := Build(context.Background(), testConfig(t), WithLogger(zap.New(core)), WithBrowser(b))
	require.NoError(t, err)

	a.Close(context.Background())
	a.Close(context.Background())

	require.Equal(t, 1, logs.FilterMessage("shutdown complete").Len())
	require.Zero(t, logs.FilterMessageSnippet("close failed").Len())
}

func TestReadinessTracksLifecycle(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t), WithLogger(zap.NewNop()), WithBrowser(fakeBrowser()))
	require.NoError(t, err)

	readyz := func() int {
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		return rec.Code
	}
	require.Equal(t, http.StatusOK, readyz())

	a.Close(context.Background())
	require.Equal(t, http.StatusServiceUnavailable, readyz())
}

func TestReadinessReportsClosedBrowser(t *testing.T) {
	b := fakeBrowser()
	a, err := Build(context.Background(), testConfig(t), WithLogger(zap.NewNop()), WithBrowser(b))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	require.NoError(t, b.Close())
	require.ErrorContains(t, a.Ready(context.Background()), "browser closed")
}
