// Package llm calls an OpenAI-compatible chat completion endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrCompletion wraps every failure of a completion call.
var ErrCompletion = errors.New("completion failed")

// Config configures the completion client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client sends single-turn prompts to the model.
type Client struct {
	client *openai.Client
}

// NewClient creates a Client. The SDK's own retries are turned off: a failed
// call is reported to the caller as is.
func NewClient(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return &Client{client: openai.NewClient(opts...)}
}

// Complete sends prompt as a single user message and returns the first
// choice's text.
func (c *Client) Complete(ctx context.Context, prompt string, maxOutputTokens int, modelID string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		}),
		Model: openai.F(openai.ChatModel(modelID)),
	}
	if maxOutputTokens > 0 {
		params.MaxTokens = openai.F(int64(maxOutputTokens))
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: model %s returned status %d", ErrCompletion, modelID, apiErr.StatusCode)
		}
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: model %s returned no choices", ErrCompletion, modelID)
	}

	text := resp.Choices[0].Message.Content
	slog.Debug("llm: completion received",
		"model", modelID,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return text, nil
}
