// Package openai implements llm.Client against OpenAI-compatible chat completion APIs
// such as Groq.
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaiapi "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecrawler/internal/llm"
)

// DefaultBaseURL points at Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// Config captures model selection and credentials.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	MaxTokens      int
	Temperature    float32
	RequestTimeout time.Duration
}

// Client calls the chat completions endpoint with one system and one user message.
type Client struct {
	api    *openaiapi.Client
	cfg    Config
	logger *zap.Logger
}

var _ llm.Client = (*Client)(nil)

// New validates cfg and builds a Client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	apiCfg := openaiapi.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		api:    openaiapi.NewClientWithConfig(apiCfg),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Complete sends systemPrompt and userInput and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, systemPrompt, userInput string) (string, error) {
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openaiapi.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openaiapi.ChatCompletionMessage{
			{Role: openaiapi.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openaiapi.ChatMessageRoleUser, Content: userInput},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyCompletion
	}
	c.logger.Debug("chat completion finished",
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
