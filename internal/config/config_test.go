package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  port: 9090
  crawl_timeout_seconds: 60
logging:
  development: false
browser:
  max_parallel: 4
  user_agents: ["agent-a"]
  viewport_width: 1280
  viewport_height: 720
  full_page: true
  settle_delay_ms: 500
llm:
  provider: openai
  api_key: secret
  model: llama-3.1-8b-instant
  max_tokens: 2048
  temperature: 0.2
prompts:
  language: "to {language}"
enrich:
  translation_concurrency: 2
  default_languages: ["fr", "de", "ja"]
  text_mode: markdown
storage:
  provider: local
  base_dir: /tmp/shots
  cache_control: "60"
  upsert: false
events:
  provider: pubsub
  project_id: proj
  topic: crawls
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, time.Minute, cfg.CrawlTimeout())
	require.False(t, cfg.Logging.Development)
	require.Equal(t, 4, cfg.Browser.MaxParallel)
	require.Equal(t, []string{"agent-a"}, cfg.Browser.UserAgents)
	require.Equal(t, int64(1280), cfg.Browser.ViewportWidth)
	require.True(t, cfg.Browser.FullPage)
	require.Equal(t, 500*time.Millisecond, cfg.Browser.SettleDelay())
	require.Equal(t, "secret", cfg.LLM.APIKey)
	require.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	require.Equal(t, 2048, cfg.LLM.MaxTokens)
	require.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-6)
	require.Equal(t, "to {language}", cfg.Prompts.Language)
	require.Empty(t, cfg.Prompts.Detail)
	require.Equal(t, []string{"fr", "de", "ja"}, cfg.Enrich.DefaultLanguages)
	require.Equal(t, "markdown", cfg.Enrich.TextMode)
	require.Equal(t, "local", cfg.Storage.Provider)
	require.False(t, cfg.Storage.Upsert)
	require.Equal(t, "crawls", cfg.Events.Topic)
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "llm:\n  api_key: k\n"))
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, 5*time.Minute, cfg.CrawlTimeout())
	require.True(t, cfg.Logging.Development)
	require.Equal(t, 2, cfg.Browser.MaxParallel)
	require.Len(t, cfg.Browser.UserAgents, 2)
	require.Equal(t, int64(1920), cfg.Browser.ViewportWidth)
	require.Equal(t, int64(1080), cfg.Browser.ViewportHeight)
	require.Equal(t, 10*time.Second, cfg.Browser.SelectorTimeout())
	require.Equal(t, 2*time.Second, cfg.Browser.SettleDelay())
	require.Equal(t, 30*time.Second, cfg.Browser.NavTimeout())
	require.Equal(t, 30*time.Second, cfg.Browser.IdleTimeout())
	require.Equal(t, "openai", cfg.LLM.Provider)
	require.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
	require.Equal(t, "llama3-70b-8192", cfg.LLM.Model)
	require.Equal(t, 5000, cfg.LLM.MaxTokens)
	require.Equal(t, 2*time.Minute, cfg.LLM.RequestTimeout())
	require.Equal(t, []string{"zh", "en"}, cfg.Enrich.DefaultLanguages)
	require.Equal(t, "text", cfg.Enrich.TextMode)
	require.Equal(t, "gcs", cfg.Storage.Provider)
	require.Equal(t, "ai-studio", cfg.Storage.Bucket)
	require.Equal(t, "3600", cfg.Storage.CacheControl)
	require.True(t, cfg.Storage.Upsert)
	require.Equal(t, "none", cfg.Events.Provider)
}

// Tests below mutate the environment and cannot run in parallel.

func TestLoadLegacyEnvAliases(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("GROQ_MODEL", "mixtral-8x7b-32768")
	t.Setenv("GROQ_MAX_TOKENS", "1024")
	t.Setenv("TAG_SELECTOR_SYS_PROMPT", "pick tags")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "groq-key", cfg.LLM.APIKey)
	require.Equal(t, "mixtral-8x7b-32768", cfg.LLM.Model)
	require.Equal(t, 1024, cfg.LLM.MaxTokens)
	require.Equal(t, "pick tags", cfg.Prompts.TagSelector)
}

func TestLoadPrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "legacy")
	t.Setenv("SITECRAWLER_LLM_API_KEY", "prefixed")
	t.Setenv("SITECRAWLER_SERVER_PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "prefixed", cfg.LLM.APIKey)
	require.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadPrefixedEnvForOptionalKeys(t *testing.T) {
	t.Setenv("SITECRAWLER_LLM_API_KEY", "key")
	t.Setenv("SITECRAWLER_LLM_TEMPERATURE", "0.5")
	t.Setenv("SITECRAWLER_LOGGING_LEVEL", "warn")
	t.Setenv("SITECRAWLER_BROWSER_EXEC_PATH", "/usr/bin/chromium")
	t.Setenv("SITECRAWLER_STORAGE_PREFIX", "shots")
	t.Setenv("SITECRAWLER_EVENTS_PROVIDER", "pubsub")
	t.Setenv("SITECRAWLER_EVENTS_PROJECT_ID", "proj")
	t.Setenv("SITECRAWLER_EVENTS_TOPIC", "crawls")

	cfg, err := Load("")
	require.NoError(t, err)
	require.InDelta(t, 0.5, cfg.LLM.Temperature, 1e-6)
	require.Equal(t, "warn", cfg.Logging.Level)
	require.Equal(t, "/usr/bin/chromium", cfg.Browser.ExecPath)
	require.Equal(t, "shots", cfg.Storage.Prefix)
	require.Equal(t, EventsConfig{Provider: "pubsub", ProjectID: "proj", Topic: "crawls"}, cfg.Events)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Server:  ServerConfig{Port: 8000, CrawlTimeoutSeconds: 60},
			Browser: BrowserConfig{MaxParallel: 1, ViewportWidth: 1920, ViewportHeight: 1080},
			LLM:     LLMConfig{Provider: "echo"},
			Enrich:  EnrichConfig{TranslationConcurrency: 1, TextMode: "text"},
			Storage: StorageConfig{Provider: "memory"},
			Events:  EventsConfig{Provider: "none"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"crawl timeout", func(c *Config) { c.Server.CrawlTimeoutSeconds = 0 }, "crawl_timeout_seconds"},
		{"max parallel", func(c *Config) { c.Browser.MaxParallel = -1 }, "max_parallel"},
		{"viewport", func(c *Config) { c.Browser.ViewportWidth = 0 }, "viewport"},
		{"llm provider", func(c *Config) { c.LLM.Provider = "bard" }, "llm.provider"},
		{"openai key", func(c *Config) { c.LLM = LLMConfig{Provider: "openai", Model: "m", MaxTokens: 1} }, "llm.api_key"},
		{"openai model", func(c *Config) { c.LLM = LLMConfig{Provider: "openai", APIKey: "k", MaxTokens: 1} }, "llm.model"},
		{"openai tokens", func(c *Config) { c.LLM = LLMConfig{Provider: "openai", APIKey: "k", Model: "m"} }, "llm.max_tokens"},
		{"concurrency", func(c *Config) { c.Enrich.TranslationConcurrency = 0 }, "translation_concurrency"},
		{"text mode", func(c *Config) { c.Enrich.TextMode = "pdf" }, "text_mode"},
		{"gcs bucket", func(c *Config) { c.Storage = StorageConfig{Provider: "gcs"} }, "storage.bucket"},
		{"local dir", func(c *Config) { c.Storage = StorageConfig{Provider: "local"} }, "storage.base_dir"},
		{"storage provider", func(c *Config) { c.Storage.Provider = "s3" }, "storage.provider"},
		{"pubsub topic", func(c *Config) { c.Events = EventsConfig{Provider: "pubsub", ProjectID: "p"} }, "events.topic"},
		{"events provider", func(c *Config) { c.Events.Provider = "kafka" }, "events.provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}
