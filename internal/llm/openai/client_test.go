package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecrawler/internal/llm"
)

type chatRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL + "/v1"
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Model: "m"}, nil)
	require.Error(t, err)
	_, err = New(Config{APIKey: "k"}, nil)
	require.Error(t, err)

	c, err := New(Config{APIKey: "k", Model: "m"}, nil)
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
}

func TestCompleteSendsSystemAndUserMessages(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		got  chatRequest
		auth string
	)
	baseURL := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "llama3-70b-8192",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  ### What is Demo?\n"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	})

	c, err := New(Config{
		BaseURL:        baseURL + "/",
		APIKey:         "secret",
		Model:          "llama3-70b-8192",
		MaxTokens:      5000,
		RequestTimeout: 5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "be an editor", "page text")
	require.NoError(t, err)
	require.Equal(t, "### What is Demo?", out)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "Bearer secret", auth)
	require.Equal(t, "llama3-70b-8192", got.Model)
	require.Equal(t, 5000, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Equal(t, "be an editor", got.Messages[0].Content)
	require.Equal(t, "user", got.Messages[1].Role)
	require.Equal(t, "page text", got.Messages[1].Content)
}

func TestCompleteNoChoices(t *testing.T) {
	t.Parallel()

	baseURL := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})
	c, err := New(Config{BaseURL: baseURL, APIKey: "k", Model: "m"}, nil)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "s", "u")
	require.ErrorIs(t, err, llm.ErrEmptyCompletion)
}

func TestCompleteAPIError(t *testing.T) {
	t.Parallel()

	baseURL := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	})
	c, err := New(Config{BaseURL: baseURL, APIKey: "bad", Model: "m"}, nil)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid api key")
}
