package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// OpenAIClient calls a chat-completions compatible endpoint.
type OpenAIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient creates a client for baseURL (e.g. https://api.openai.com/v1).
func NewOpenAIClient(baseURL string, httpClient *http.Client) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Complete posts one chat completion and returns choices[0].message.content.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	body := openAIRequest{
		Model: req.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	status, data, err := postJSON(ctx, c.httpClient, OpenAI, c.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + req.APIKey}, body)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", &ProviderError{Provider: OpenAI, Status: status, Message: embeddedMessage(data)}
	}

	var resp openAIResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", &ProviderError{Provider: OpenAI, Status: status, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &ProviderError{Provider: OpenAI, Status: status, Message: embeddedMessage(data), Err: fmt.Errorf("no completion returned")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
