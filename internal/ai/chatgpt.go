// Package ai talks to OpenAI compatible chat completion APIs (OpenAI, Groq).
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"

	"github.com/example/langbot/internal/logger"
	"github.com/example/langbot/internal/metrics"
)

// ErrNoAPIKey is returned by New when no key is configured
var ErrNoAPIKey = errors.New("AI API key is not set")

var errBadResponse = errors.New("bad response")

// Options configures a ChatGPT client
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	MaxRetries  uint
	RetryDelay  time.Duration
	Log         *logger.Logger
}

// ChatGPT represents a client for an OpenAI compatible chat API
type ChatGPT struct {
	httpClient  *resty.Client
	model       string
	maxTokens   int
	temperature float64
	maxRetries  uint
	retryDelay  time.Duration
	log         *logger.Logger
}

// New creates a new ChatGPT client
func New(opts Options) (*ChatGPT, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 200 * time.Millisecond
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetAuthToken(opts.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(opts.Timeout)

	return &ChatGPT{
		httpClient:  client,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		maxRetries:  opts.MaxRetries,
		retryDelay:  opts.RetryDelay,
		log:         opts.Log.With("component", "ai", "model", opts.Model),
	}, nil
}

// Message represents a message in the conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the chat completions API
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse represents a response from the chat completions API
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// StatusError is a non-2xx answer from the API
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("response error %d: %s", e.Code, e.Body)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, errBadResponse) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 429 || se.Code >= 500
	}
	// transport failures and truncated bodies
	return true
}

type completion struct {
	operation   string
	system      string
	prompt      string
	temperature float64
	maxTokens   int
}

// complete sends one chat completion with retries and returns the trimmed content
func (c *ChatGPT) complete(ctx context.Context, req completion) (string, error) {
	if req.temperature == 0 {
		req.temperature = c.temperature
	}
	if req.maxTokens == 0 {
		req.maxTokens = c.maxTokens
	}
	body := ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: req.system},
			{Role: "user", Content: req.prompt},
		},
		MaxTokens:   req.maxTokens,
		Temperature: req.temperature,
	}

	var content string
	err := retry.Do(
		func() error {
			out, err := c.send(ctx, body)
			if err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			content = out
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxRetries+1),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		metrics.AIRequests.WithLabelValues(req.operation, "error").Inc()
		c.log.Warn("AI request failed", "operation", req.operation, "error", err)
		return "", fmt.Errorf("failed to %s: %w", req.operation, err)
	}
	metrics.AIRequests.WithLabelValues(req.operation, "ok").Inc()
	return content, nil
}

func (c *ChatGPT) send(ctx context.Context, body ChatRequest) (string, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&ChatResponse{}).
		SetError(&ChatResponse{}).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	if resp.IsError() {
		return "", &StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}

	response, ok := resp.Result().(*ChatResponse)
	if !ok || response == nil {
		return "", fmt.Errorf("failed to decode response: %s", resp.String())
	}
	if response.Error != nil {
		return "", fmt.Errorf("%w: API error: %s", errBadResponse, response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no response choices returned", errBadResponse)
	}

	// Clean up the response
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// completeJSON asks for a JSON answer and decodes it into out
func (c *ChatGPT) completeJSON(ctx context.Context, req completion, out interface{}) error {
	content, err := c.complete(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(ExtractJSON(content)), out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", req.operation, err)
	}
	return nil
}

// ExtractJSON strips markdown code fences and surrounding prose from a model
// answer, returning the outermost JSON object or array.
func ExtractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}
