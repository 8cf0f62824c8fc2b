// Package analysis asks a chat-completion model to comment on a dataset.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/jwulff/sensorviz/internal/logging"
)

const (
	// SystemPrompt frames every request.
	SystemPrompt = "You are an AI that analyzes water quality datasets."
	// ContextLimit caps the serialized data context, in characters.
	ContextLimit = 4000
	// Temperature keeps answers focused.
	Temperature = 0.3
)

// ErrEmptyPrompt is returned when no question is asked.
var ErrEmptyPrompt = errors.New("prompt is empty")

var logger = logging.Logger().With("component", "analysis")

// Config holds connection settings for the analysis model.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client wraps an OpenAI-compatible chat completion endpoint.
type Client struct {
	model  string
	client openai.Client
}

// NewClient creates a client. A missing model is an error.
func NewClient(cfg Config, opts ...option.RequestOption) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("analysis model is required")
	}
	clientOpts := []option.RequestOption{}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	clientOpts = append(clientOpts, opts...)

	logger.Info("created analysis client", "model", cfg.Model, "base_url", cfg.BaseURL)
	return &Client{
		model:  cfg.Model,
		client: openai.NewClient(clientOpts...),
	}, nil
}

// UserMessage builds the user turn: the prompt followed by the serialized
// data context, truncated to ContextLimit characters.
func UserMessage(prompt string, data any) (string, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal data context: %w", err)
	}
	return prompt + "\n\nData context:\n" + truncateRunes(string(encoded), ContextLimit), nil
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Analyze sends prompt with data as context and returns the model's reply.
// An empty reply is not an error.
func (c *Client) Analyze(ctx context.Context, prompt string, data any) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	content, err := UserMessage(prompt, data)
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(content),
		},
		Model:       c.model,
		Temperature: openai.Float(Temperature),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Warn("analysis request failed", "error", err)
		return "", fmt.Errorf("analysis request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	logger.Debug("analysis complete", "model", resp.Model, "tokens", resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}
