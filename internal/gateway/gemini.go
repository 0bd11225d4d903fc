package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient calls the Gemini generate-content API through the genai SDK.
// A genai client is built per call since the API key arrives with the request.
type GeminiClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient creates a client. An empty baseURL uses the SDK default.
func NewGeminiClient(baseURL string, httpClient *http.Client) *GeminiClient {
	return &GeminiClient{baseURL: baseURL, httpClient: httpClient}
}

// Complete generates content for the prompt and returns the response text.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      req.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.baseURL},
	})
	if err != nil {
		return "", &ProviderError{Provider: Gemini, Err: fmt.Errorf("failed to create Gemini client: %w", err)}
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		Temperature:       ptr(float32(req.Temperature)),
		MaxOutputTokens:   int32(req.MaxTokens),
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &ProviderError{Provider: Gemini, Status: apiErr.Code, Message: apiErr.Message, Err: err}
		}
		return "", &ProviderError{Provider: Gemini, Err: err}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &ProviderError{Provider: Gemini, Err: fmt.Errorf("no completion returned")}
	}
	return text, nil
}

func ptr[T any](v T) *T { return &v }
