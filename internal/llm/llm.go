// Package llm wraps an OpenAI-compatible API behind small Generator and
// Embedder interfaces so the analyzer, relevance calculator, and vector
// store can be exercised against stubs in tests.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"newswatch/internal/config"
	"newswatch/internal/errkind"
	"newswatch/internal/logger"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default model for generating embeddings.
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultEmbeddingDimensions is the embedding vector size.
	DefaultEmbeddingDimensions = 1536
	// DefaultTimeout bounds every chat completion call.
	DefaultTimeout = 60 * time.Second
	// embeddingCharBudget approximates the embedding model's token limit
	// (~8k tokens at roughly four characters per token).
	embeddingCharBudget = 32000
)

// RoleSystem and RoleUser are the two message roles the prompt registry
// emits.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single generation call.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Generator produces a completion for an ordered message list.
type Generator interface {
	Generate(ctx context.Context, messages []Message, opts Options) (string, error)
}

// Embedder turns text into a fixed-dimensionality vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimensions() int
}

// Client is the production Generator and Embedder backed by an
// OpenAI-compatible endpoint. A Client with no API key degrades: chat calls
// fail with ErrProvider and embeddings fall back to deterministic random
// vectors (dev-only behavior, logged at warn).
type Client struct {
	api            *openai.Client
	model          string
	embeddingModel string
	dimensions     int
}

// NewClient builds a client from configuration. A missing API key is not an
// error here; the degraded behavior is decided per call.
func NewClient(cfg *config.Config) *Client {
	c := &Client{
		model:          DefaultModel,
		embeddingModel: DefaultEmbeddingModel,
		dimensions:     DefaultEmbeddingDimensions,
	}
	if cfg != nil {
		if cfg.AI.OpenAI.Model != "" {
			c.model = cfg.AI.OpenAI.Model
		}
		if cfg.AI.OpenAI.EmbeddingModel != "" {
			c.embeddingModel = cfg.AI.OpenAI.EmbeddingModel
		}
		if cfg.AI.OpenAI.EmbeddingDimensions > 0 {
			c.dimensions = cfg.AI.OpenAI.EmbeddingDimensions
		}
	}

	apiKey := config.OpenAIKey(cfg)
	if apiKey == "" {
		logger.Warn("no OPENAI_API_KEY configured; LLM calls unavailable, embeddings fall back to random vectors", nil)
		return c
	}

	apiCfg := openai.DefaultConfig(apiKey)
	if cfg != nil && cfg.AI.OpenAI.BaseURL != "" {
		apiCfg.BaseURL = cfg.AI.OpenAI.BaseURL
	}
	c.api = openai.NewClientWithConfig(apiCfg)
	return c
}

// Generate runs one chat completion with an explicit deadline.
func (c *Client) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	if c.api == nil {
		return "", fmt.Errorf("%w: no API key configured", errkind.ErrProvider)
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no messages", errkind.ErrValidation)
	}

	model := opts.Model
	if model == "" {
		model = c.model
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    chatMessages,
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("chat completion deadline exceeded: %w", errkind.ErrTimeout)
		}
		return "", fmt.Errorf("chat completion failed: %w: %v", errkind.ErrProvider, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from model: %w", errkind.ErrProvider)
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed produces an embedding for text, truncating over-budget input at a
// word boundary. With no API key configured the call falls back to a
// deterministic random vector of the same dimensionality; provider errors
// propagate to the caller.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	text = truncateForEmbedding(text)
	if c.api == nil {
		logger.Warn("no embedding provider configured, using deterministic random vector", map[string]any{"chars": len(text)})
		return randomEmbedding(text, c.dimensions), nil
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(c.embeddingModel),
		Dimensions: c.dimensions,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding deadline exceeded: %w", errkind.ErrTimeout)
		}
		return nil, fmt.Errorf("embedding request failed: %w: %v", errkind.ErrProvider, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response: %w", errkind.ErrProvider)
	}

	vector := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float64(v)
	}
	return vector, nil
}

// Dimensions returns the embedding vector size.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Model returns the default chat model name.
func (c *Client) Model() string {
	return c.model
}
