// Package openai implements an Embedder for OpenAI-compatible /v1/embeddings APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/papers/pkg/embeddings"
	"github.com/papercomputeco/papers/pkg/vector"
)

const (
	// DefaultBaseURL is the OpenAI API root, including the version segment.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultEmbeddingModel is the default embedding model.
	DefaultEmbeddingModel = "text-embedding-3-small"

	defaultMaxRetries = 3
	baseRetryDelay    = 200 * time.Millisecond
	maxRetryDelay     = 5 * time.Second
)

// Embedder calls an OpenAI-compatible embeddings endpoint. Rate limited and
// server-side failures are retried with backoff, honoring Retry-After.
type Embedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	maxRetries int
	httpClient *http.Client
}

// EmbedderConfig configures the OpenAI-compatible embedder.
type EmbedderConfig struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Model defaults to DefaultEmbeddingModel.
	Model string

	// Dimensions requests shortened embeddings from models that support it.
	// Zero leaves the model default.
	Dimensions int

	// MaxRetries defaults to 3. Use a negative value to disable retries.
	MaxRetries int

	Timeout time.Duration
}

type embedRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewEmbedder creates an OpenAI-compatible embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if baseURL == DefaultBaseURL && cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	maxRetries := cfg.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = defaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Embedder{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		dimensions: cfg.Dimensions,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, embeddings.ErrEmptyInput
	}

	body, err := json.Marshal(embedRequest{
		Input:      text,
		Model:      e.model,
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", vector.ErrEmbedding, err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		vec, retryAfter, err := e.embedOnce(ctx, body)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if retryAfter < 0 || attempt == e.maxRetries {
			break
		}

		delay := retryAfter
		if delay == 0 {
			delay = retryDelay(attempt)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", vector.ErrEmbedding, ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

// embedOnce performs a single request. A negative retryAfter marks the
// error as permanent; zero means retry with the default backoff.
func (e *Embedder) embedOnce(ctx context.Context, body []byte) ([]float32, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, -1, fmt.Errorf("%w: creating request: %v", vector.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, -1, fmt.Errorf("%w: %v", vector.ErrEmbedding, ctx.Err())
		}
		return nil, 0, fmt.Errorf("%w: sending request: %v", vector.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		var wait time.Duration
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
		return nil, wait, fmt.Errorf("%w: embeddings returned status %d", vector.ErrEmbedding, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, -1, fmt.Errorf("%w: embeddings returned status %d: %s", vector.ErrEmbedding, resp.StatusCode, string(msg))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, -1, fmt.Errorf("%w: decoding response: %v", vector.ErrEmbedding, err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, -1, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}

	return out.Data[0].Embedding, 0, nil
}

func retryDelay(attempt int) time.Duration {
	return min(baseRetryDelay<<attempt, maxRetryDelay)
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
