package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config configures the text-to-speech renderer.
type Config struct {
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// maxQueryRunes is the longest text the translate TTS endpoint accepts per
// request; longer answers are truncated and the audio covers the opening of
// the answer only.
const maxQueryRunes = 200

// Renderer converts answer text to spoken audio through a translate-TTS
// compatible endpoint. It implements the domain Synthesizer port.
type Renderer struct {
	baseURL    string
	language   string
	client     *http.Client
	maxRetries int
}

// NewRenderer creates a renderer using the provided configuration.
func NewRenderer(cfg Config) *Renderer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://translate.google.com"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Renderer{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		language:   cfg.Language,
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: 3,
	}
}

// Synthesize renders text as speech and writes the audio to dest,
// overwriting any existing file. It returns the destination path.
func (r *Renderer) Synthesize(ctx context.Context, text, dest string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("cannot synthesize empty text")
	}
	if runes := []rune(text); len(runes) > maxQueryRunes {
		text = string(runes[:maxQueryRunes])
	}

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", r.language)
	q.Set("q", text)
	endpoint := r.baseURL + "/translate_tts?" + q.Encode()

	audio, err := r.fetch(ctx, endpoint)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(dest); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create audio directory: %w", err)
		}
	}
	if err := os.WriteFile(dest, audio, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return dest, nil
}

func (r *Renderer) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create speech request: %w", err)
		}

		resp, err := r.client.Do(req)
		if err != nil {
			if attempt < r.maxRetries {
				time.Sleep(retryDelay(attempt))
				continue
			}
			return nil, fmt.Errorf("speech request failed: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt < r.maxRetries {
				time.Sleep(retryDelay(attempt))
				continue
			}
			return nil, fmt.Errorf("speech request failed: %s", resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("speech request failed: %s", resp.Status)
		}

		audio, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read speech response: %w", err)
		}
		if len(audio) == 0 {
			return nil, errors.New("speech service returned no audio")
		}
		return audio, nil
	}
}

func retryDelay(attempt int) time.Duration {
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
