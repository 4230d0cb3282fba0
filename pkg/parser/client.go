// Package parser turns natural-language process descriptions into workflow
// graphs by calling an OpenAI-compatible chat-completions endpoint and
// repairing the returned JSON into a validated graph.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/flowlens/flowlens/pkg/config"
	"github.com/flowlens/flowlens/pkg/models"
)

// ErrMissingAPIKey is returned when the configured API key environment
// variable is empty.
var ErrMissingAPIKey = errors.New("LLM API key is not set")

// Client calls an OpenAI-compatible chat-completions endpoint.
type Client struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

// NewClient builds a parser client from configuration. A .env file in the
// working directory is loaded when present; the key itself comes from the
// environment variable named in cfg.APIKeyEnv.
func NewClient(cfg config.ParserConfig) (*Client, error) {
	_ = godotenv.Load()

	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set %s in the environment or a .env file", ErrMissingAPIKey, cfg.APIKeyEnv)
	}

	return &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// WithHTTPClient sets a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.client = httpClient

	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateWorkflow asks the model for a workflow graph matching the
// description and post-processes the raw output into a validated graph.
func (c *Client) GenerateWorkflow(ctx context.Context, description string) (*models.WorkflowGraph, error) {
	raw, err := c.generateRaw(ctx, description)
	if err != nil {
		return nil, err
	}

	return Postprocess(raw)
}

// generateRaw performs the chat-completions call and returns the model's
// text content.
func (c *Client) generateRaw(ctx context.Context, description string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPromptPrefix + description},
		},
		MaxTokens:      4096,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response (status %s): %w", resp.Status, err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("chat completion error (status %s): %s", resp.Status, parsed.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion returned status %s", resp.Status)
	}

	if len(parsed.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
