// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SITECRAWLER_SERVER_PORT.
const EnvPrefix = "SITECRAWLER"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Browser BrowserConfig `mapstructure:"browser"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Prompts PromptsConfig `mapstructure:"prompts"`
	Enrich  EnrichConfig  `mapstructure:"enrich"`
	Storage StorageConfig `mapstructure:"storage"`
	Events  EventsConfig  `mapstructure:"events"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                int `mapstructure:"port"`
	CrawlTimeoutSeconds int `mapstructure:"crawl_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// BrowserConfig configures the headless Chrome instance and the page settle protocol.
type BrowserConfig struct {
	MaxParallel            int      `mapstructure:"max_parallel"`
	UserAgents             []string `mapstructure:"user_agents"`
	ViewportWidth          int64    `mapstructure:"viewport_width"`
	ViewportHeight         int64    `mapstructure:"viewport_height"`
	FullPage               bool     `mapstructure:"full_page"`
	NavTimeoutSeconds      int      `mapstructure:"nav_timeout_seconds"`
	IdleTimeoutSeconds     int      `mapstructure:"idle_timeout_seconds"`
	SelectorTimeoutSeconds int      `mapstructure:"selector_timeout_seconds"`
	SettleDelayMs          int      `mapstructure:"settle_delay_ms"`
	NoSandbox              bool     `mapstructure:"no_sandbox"`
	ExecPath               string   `mapstructure:"exec_path"`
}

// LLMConfig selects and configures the language model.
type LLMConfig struct {
	Provider              string  `mapstructure:"provider"`
	BaseURL               string  `mapstructure:"base_url"`
	APIKey                string  `mapstructure:"api_key"`
	Model                 string  `mapstructure:"model"`
	MaxTokens             int     `mapstructure:"max_tokens"`
	Temperature           float32 `mapstructure:"temperature"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds"`
}

// PromptsConfig overrides the built-in system prompts. Empty values keep the defaults.
type PromptsConfig struct {
	Detail      string `mapstructure:"detail"`
	TagSelector string `mapstructure:"tag_selector"`
	Language    string `mapstructure:"language"`
}

// EnrichConfig tunes the enrichment pipeline.
type EnrichConfig struct {
	TranslationConcurrency int      `mapstructure:"translation_concurrency"`
	DefaultLanguages       []string `mapstructure:"default_languages"`
	TextMode               string   `mapstructure:"text_mode"`
}

// StorageConfig selects where screenshots are written.
type StorageConfig struct {
	Provider     string `mapstructure:"provider"`
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	BaseDir      string `mapstructure:"base_dir"`
	CacheControl string `mapstructure:"cache_control"`
	Upsert       bool   `mapstructure:"upsert"`
}

// EventsConfig holds metadata for crawl completion notifications.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.crawl_timeout_seconds", 300)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("browser.max_parallel", 2)
	v.SetDefault("browser.user_agents", []string{
		"Mozilla/5.0 (Windows NT 6.3; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/39.0.2171.95 Safari/537.36",
		"Mozilla/5.0 (Windows NT 6.1; WOW64; rv:30.0) Gecko/20100101 Firefox/30.0",
	})
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("browser.full_page", false)
	v.SetDefault("browser.nav_timeout_seconds", 30)
	v.SetDefault("browser.idle_timeout_seconds", 30)
	v.SetDefault("browser.selector_timeout_seconds", 10)
	v.SetDefault("browser.settle_delay_ms", 2000)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama3-70b-8192")
	v.SetDefault("llm.max_tokens", 5000)
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.request_timeout_seconds", 120)
	v.SetDefault("enrich.translation_concurrency", 4)
	v.SetDefault("enrich.default_languages", []string{"zh", "en"})
	v.SetDefault("enrich.text_mode", "text")
	v.SetDefault("storage.provider", "gcs")
	v.SetDefault("storage.bucket", "ai-studio")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.base_dir", "./screenshots")
	v.SetDefault("storage.cache_control", "3600")
	v.SetDefault("storage.upsert", true)
	v.SetDefault("events.provider", "none")
	v.SetDefault("events.project_id", "")
	v.SetDefault("events.topic", "")
}

// bindLegacyEnv lets the unprefixed variables of earlier deployments keep working.
// The prefixed variable wins when both are set.
func bindLegacyEnv(v *viper.Viper) error {
	aliases := map[string]string{
		"llm.api_key":          "GROQ_API_KEY",
		"llm.model":            "GROQ_MODEL",
		"llm.max_tokens":       "GROQ_MAX_TOKENS",
		"prompts.detail":       "DETAIL_SYS_PROMPT",
		"prompts.tag_selector": "TAG_SELECTOR_SYS_PROMPT",
		"prompts.language":     "LANGUAGE_SYS_PROMPT",
	}
	for key, legacy := range aliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.CrawlTimeoutSeconds <= 0 {
		return fmt.Errorf("server.crawl_timeout_seconds must be > 0")
	}
	if c.Browser.MaxParallel < 0 {
		return fmt.Errorf("browser.max_parallel must be >= 0")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport must be positive")
	}
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key must be set when llm.provider is openai")
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("llm.model must be set when llm.provider is openai")
		}
		if c.LLM.MaxTokens <= 0 {
			return fmt.Errorf("llm.max_tokens must be > 0")
		}
	case "echo":
	default:
		return fmt.Errorf("llm.provider must be openai or echo, got %q", c.LLM.Provider)
	}
	if c.Enrich.TranslationConcurrency <= 0 {
		return fmt.Errorf("enrich.translation_concurrency must be > 0")
	}
	if !slices.Contains([]string{"text", "markdown"}, c.Enrich.TextMode) {
		return fmt.Errorf("enrich.text_mode must be text or markdown, got %q", c.Enrich.TextMode)
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set when storage.provider is gcs")
		}
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir must be set when storage.provider is local")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.provider must be gcs, local or memory, got %q", c.Storage.Provider)
	}
	switch c.Events.Provider {
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.Topic == "" {
			return fmt.Errorf("events.project_id and events.topic must be set when events.provider is pubsub")
		}
	case "memory", "none", "":
	default:
		return fmt.Errorf("events.provider must be pubsub, memory or none, got %q", c.Events.Provider)
	}
	return nil
}

// CrawlTimeout bounds a single crawl request.
func (c Config) CrawlTimeout() time.Duration {
	return time.Duration(c.Server.CrawlTimeoutSeconds) * time.Second
}

// SettleDelay is the pause after scrolling to the bottom of a page.
func (c BrowserConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// SelectorTimeout bounds the wait for the document body.
func (c BrowserConfig) SelectorTimeout() time.Duration {
	return time.Duration(c.SelectorTimeoutSeconds) * time.Second
}

// NavTimeout bounds navigation.
func (c BrowserConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSeconds) * time.Second
}

// IdleTimeout bounds the wait for network idle.
func (c BrowserConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

// RequestTimeout bounds one model call.
func (c LLMConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
