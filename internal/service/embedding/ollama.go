package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/retry"
)

const (
	// DefaultBaseURL is the local Ollama endpoint
	DefaultBaseURL = "http://localhost:11434"
	// DefaultModel is the embedding model used when none is configured
	DefaultModel = "mxbai-embed-large"
	// DefaultTimeout bounds a single embedding request
	DefaultTimeout = 60 * time.Second

	maxErrorBody = 4 * 1024
)

// Embedder produces embedding vectors for text
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Model identifies the embedding model; indexes record it so queries use the same space
	Model() string
}

// OllamaClient calls the Ollama /api/embeddings endpoint
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
	retry   retry.Config
	limiter *rate.Limiter
}

// Option configures an OllamaClient
type Option func(*OllamaClient)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *OllamaClient) {
		c.client = client
	}
}

// WithRetry sets the retry policy
func WithRetry(rc retry.Config) Option {
	return func(c *OllamaClient) {
		c.retry = rc
	}
}

// WithRateLimit paces requests to at most rps per second; rps <= 0 disables pacing
func WithRateLimit(rps float64) Option {
	return func(c *OllamaClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewOllamaClient creates a new OllamaClient
func NewOllamaClient(baseURL, model string, opts ...Option) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	c := &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: DefaultTimeout},
		retry:   retry.DefaultConfig,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Embedder = (*OllamaClient)(nil)

// Model returns the embedding model name
func (c *OllamaClient) Model() string {
	return c.model
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed requests the embedding of text
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to encode embedding request")
	}

	resp, err := retry.DoHTTP(ctx, c.retry, func(ctx context.Context) (*http.Response, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return c.client.Do(req)
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeEmbedding, "embedding request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, errors.New(errors.CodeEmbedding,
			fmt.Sprintf("error getting embedding: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, errors.CodeEmbedding, "failed to decode embedding response")
	}
	if len(result.Embedding) == 0 {
		return nil, errors.New(errors.CodeEmbedding, "embedding response contained no vector")
	}
	return result.Embedding, nil
}
