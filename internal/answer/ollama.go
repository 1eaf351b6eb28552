package answer

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// ModelConfig configures the Ollama text-generation model.
type ModelConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OllamaModel adapts an Ollama server to the domain TextModel port.
type OllamaModel struct {
	llm     *ollama.LLM
	model   string
	timeout time.Duration
}

// NewOllamaModel creates a text model client with the given configuration.
func NewOllamaModel(cfg ModelConfig) (*OllamaModel, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-r1:1.5b"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	llm, err := ollama.New(ollama.WithModel(cfg.Model), ollama.WithServerURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("initialize text model: %w", err)
	}
	return &OllamaModel{llm: llm, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// Complete runs a single-prompt completion against the model.
func (m *OllamaModel) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	out, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("completion request failed (model %s): %w", m.model, err)
	}
	return out, nil
}
