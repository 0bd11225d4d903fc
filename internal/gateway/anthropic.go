package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const anthropicVersion = "2023-06-01"

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// AnthropicClient calls a messages-compatible endpoint.
type AnthropicClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAnthropicClient creates a client for baseURL (e.g. https://api.anthropic.com/v1).
func NewAnthropicClient(baseURL string, httpClient *http.Client) *AnthropicClient {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	return &AnthropicClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Complete posts one message and concatenates the text content parts.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	body := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		System:      SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	}

	status, data, err := postJSON(ctx, c.httpClient, Anthropic, c.baseURL+"/messages",
		map[string]string{
			"x-api-key":         req.APIKey,
			"anthropic-version": anthropicVersion,
		}, body)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", &ProviderError{Provider: Anthropic, Status: status, Message: embeddedMessage(data)}
	}

	var resp anthropicResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", &ProviderError{Provider: Anthropic, Status: status, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	var result strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			result.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(result.String())
	if text == "" {
		return "", &ProviderError{Provider: Anthropic, Status: status, Message: embeddedMessage(data), Err: fmt.Errorf("no completion returned")}
	}
	return text, nil
}
