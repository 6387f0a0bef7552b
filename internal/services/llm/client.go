package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	defaultHTTPTimeout    = 120 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
	defaultBaseURL        = "https://api.groq.com/openai/v1"

	// go-openai drops a zero temperature from the request body, which leaves
	// the provider default (1.0) in effect. The smallest positive float keeps
	// sampling greedy.
	greedyTemperature float32 = 1e-8
)

// Config captures the runtime settings required to talk to an OpenAI-compatible
// endpoint such as Groq.
type Config struct {
	APIKey             string
	BaseURL            string
	Model              string
	TranscriptionModel string
	TimeoutSeconds     int
	RequestsPerMinute  int
}

// Client wraps the go-openai chat and audio APIs with retry and pacing.
type Client struct {
	cfg        Config
	api        *openai.Client
	httpClient *http.Client
	limiter    *rate.Limiter

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the total attempt count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:             strings.TrimSpace(cfg.APIKey),
			BaseURL:            strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:              strings.TrimSpace(cfg.Model),
			TranscriptionModel: strings.TrimSpace(cfg.TranscriptionModel),
			TimeoutSeconds:     cfg.TimeoutSeconds,
			RequestsPerMinute:  cfg.RequestsPerMinute,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if client.cfg.RequestsPerMinute > 0 {
		client.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(client.cfg.RequestsPerMinute)), 1)
	}

	apiConfig := openai.DefaultConfig(client.cfg.APIKey)
	apiConfig.BaseURL = client.cfg.BaseURL
	apiConfig.HTTPClient = &http.Client{
		Timeout:   client.httpClient.Timeout,
		Transport: &retryAfterTransport{base: client.httpClient.Transport},
	}
	client.api = openai.NewClientWithConfig(apiConfig)
	return client
}

// Model returns the configured chat model id.
func (c *Client) Model() string {
	return c.cfg.Model
}

// ErrEmptyContent is matched by errors.Is once retries on an empty response
// are exhausted.
var ErrEmptyContent = errors.New("empty content")

type emptyContentError struct {
	Op           string
	FinishReason string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q)", e.Op, e.FinishReason)
}

func (e *emptyContentError) Unwrap() error { return ErrEmptyContent }

// Complete issues one logical chat completion with the supplied prompts and
// returns the model's text. Transient failures are retried.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" {
		return "", errors.New("llm complete: system prompt required")
	}
	if userPrompt == "" {
		return "", errors.New("llm complete: user prompt required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("llm complete: api key required")
	}
	if c.cfg.Model == "" {
		return "", errors.New("llm complete: model required")
	}
	request := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: greedyTemperature,
	}
	return c.completionContentWithRetry(ctx, request, "llm complete")
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("llm health: api key required")
	}
	request := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "Reply with the single word OK."},
			{Role: openai.ChatMessageRoleUser, Content: "ping"},
		},
		MaxTokens:   5,
		Temperature: greedyTemperature,
	}
	content, err := c.completionContentWithRetry(ctx, request, "llm health")
	if err != nil {
		return err
	}
	if !strings.Contains(strings.ToUpper(content), "OK") {
		return fmt.Errorf("llm health: unexpected response %q", summarizePayloadSnippet(content))
	}
	return nil
}

func (c *Client) completionContentWithRetry(ctx context.Context, request openai.ChatCompletionRequest, op string) (string, error) {
	return withRetry(ctx, c, op, func(ctx context.Context) (string, error) {
		response, err := c.api.CreateChatCompletion(ctx, request)
		if err != nil {
			return "", err
		}
		content, finishReason := extractCompletionPayload(response)
		if content == "" {
			if len(response.Choices) == 0 {
				return "", &emptyContentError{Op: op, FinishReason: "no_choices"}
			}
			return "", &emptyContentError{Op: op, FinishReason: finishReason}
		}
		return content, nil
	})
}

func extractCompletionPayload(response openai.ChatCompletionResponse) (string, string) {
	var finishReason string
	for _, choice := range response.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(string(choice.FinishReason))
		}
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, finishReason
		}
	}
	return "", finishReason
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
