package answer

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/retry"
)

const (
	// DefaultBaseURL is Gemini's OpenAI-compatible endpoint
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	// DefaultModel is the completion model used when none is configured
	DefaultModel = "gemma-3-1b-it"
	// DefaultTimeout bounds one completion call including retries
	DefaultTimeout = 120 * time.Second

	finishContentFilter = "content_filter"
)

// Completer turns a prompt into generated text
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generation holds sampling parameters
type Generation struct {
	Temperature float64
	MaxTokens   int64
	TopP        float64
}

// DefaultGeneration matches the answer style the prompt template is tuned for
var DefaultGeneration = Generation{
	Temperature: 0.7,
	MaxTokens:   2048,
	TopP:        1,
}

// SafetySetting is a Gemini harm category threshold
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// PermissiveSafetySettings disables blocking for every adjustable category
var PermissiveSafetySettings = []SafetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

// GeminiClient calls Gemini through its OpenAI-compatible chat completions API
type GeminiClient struct {
	client     openai.Client
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	generation Generation
	safety     []SafetySetting
	retry      retry.Config
	timeout    time.Duration
}

// GeminiOption configures a GeminiClient
type GeminiOption func(*GeminiClient)

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) GeminiOption {
	return func(c *GeminiClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the HTTP client used by the SDK
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		c.httpClient = client
	}
}

// WithGeneration sets sampling parameters
func WithGeneration(g Generation) GeminiOption {
	return func(c *GeminiClient) {
		c.generation = g
	}
}

// WithSafetySettings replaces the safety thresholds sent with each request
func WithSafetySettings(settings []SafetySetting) GeminiOption {
	return func(c *GeminiClient) {
		c.safety = settings
	}
}

// WithRetry sets the retry policy
func WithRetry(rc retry.Config) GeminiOption {
	return func(c *GeminiClient) {
		c.retry = rc
	}
}

// WithTimeout bounds each Complete call
func WithTimeout(d time.Duration) GeminiOption {
	return func(c *GeminiClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewGeminiClient creates a client. An empty apiKey is accepted here and reported by Complete.
func NewGeminiClient(apiKey, model string, opts ...GeminiOption) *GeminiClient {
	if model == "" {
		model = DefaultModel
	}
	c := &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    DefaultBaseURL,
		generation: DefaultGeneration,
		safety:     PermissiveSafetySettings,
		retry:      retry.DefaultConfig,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(c.baseURL),
		option.WithMaxRetries(0),
	}
	if c.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(c.httpClient))
	}
	c.client = openai.NewClient(clientOpts...)
	return c
}

var _ Completer = (*GeminiClient)(nil)

// Model returns the completion model name
func (c *GeminiClient) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the generated text
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New(errors.CodeConfig, "GEMINI_API_KEY is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.generation.Temperature),
		MaxTokens:   openai.Int(c.generation.MaxTokens),
		TopP:        openai.Float(c.generation.TopP),
	}
	extraBody := map[string]any{
		"google": map[string]any{"safety_settings": c.safety},
	}

	rc := c.retry
	rc.Retryable = isRetryableCompletion
	completion, err := retry.Do(ctx, rc, func(ctx context.Context) (*openai.ChatCompletion, error) {
		return c.client.Chat.Completions.New(ctx, params, option.WithJSONSet("extra_body", extraBody))
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeCompletion, "completion request failed")
	}

	if len(completion.Choices) == 0 {
		return "", errors.New(errors.CodeCompletion, "no completion choices returned")
	}
	choice := completion.Choices[0]
	if string(choice.FinishReason) == finishContentFilter {
		return "", errors.New(errors.CodeCompletionBlock, "the response was blocked by the provider's safety filters")
	}

	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return "", errors.Newf(errors.CodeCompletion, "completion returned no text (finish reason %q)", choice.FinishReason)
	}
	return text, nil
}

// isRetryableCompletion retries rate limits, server errors and transport failures
func isRetryableCompletion(err error) bool {
	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		return retry.IsRetryableStatus(apiErr.StatusCode)
	}
	return retry.IsRetryable(err)
}
