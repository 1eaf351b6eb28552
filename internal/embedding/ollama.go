package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms/ollama"
)

// Config configures the Ollama embedding client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client produces embeddings through an Ollama server. It implements the
// domain Embedder port.
type Client struct {
	llm       *ollama.LLM
	model     string
	timeout   time.Duration
	dimension int
}

// NewClient creates a new embedding client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "mxbai-embed-large"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	llm, err := ollama.New(ollama.WithModel(cfg.Model), ollama.WithServerURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("initialize embedding client: %w", err)
	}
	return &Client{llm: llm, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// Embed returns an embedding vector for the given text. There is no local
// fallback; service failures propagate to the caller unretried.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("cannot embed empty text")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vectors, err := c.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed (model %s): %w", c.model, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector (model %s)", c.model)
	}
	if c.dimension == 0 {
		c.dimension = len(vectors[0])
	}
	return vectors[0], nil
}

// Dimension returns the vector dimensionality, zero before the first
// successful Embed.
func (c *Client) Dimension() int { return c.dimension }
