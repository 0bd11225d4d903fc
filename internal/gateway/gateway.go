// Package gateway turns a (provider, model, apiKey, prompt) request into a
// single call to one of the supported LLM APIs.
package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"critbot/internal/config"
	"critbot/internal/logging"
)

// SystemPrompt frames every critique request.
const SystemPrompt = "You are an adversarial critic. 한국어로, 요청된 출력 형식을 정확히 따라 답하세요."

// Request is one provider call.
type Request struct {
	Model       string
	APIKey      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completer performs one provider call.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type endpoint struct {
	client Completer
	cfg    config.ProviderConfig
}

// Gateway dispatches requests to the configured providers. Single attempt, no retry.
type Gateway struct {
	endpoints map[Provider]endpoint
	timeout   time.Duration
}

// New builds a Gateway from the providers config.
func New(cfg config.ProvidersConfig, timeout time.Duration) *Gateway {
	httpClient := &http.Client{Timeout: timeout}
	return &Gateway{
		endpoints: map[Provider]endpoint{
			OpenAI:    {client: NewOpenAIClient(cfg.OpenAI.BaseURL, httpClient), cfg: cfg.OpenAI},
			Anthropic: {client: NewAnthropicClient(cfg.Anthropic.BaseURL, httpClient), cfg: cfg.Anthropic},
			Gemini:    {client: NewGeminiClient(cfg.Gemini.BaseURL, httpClient), cfg: cfg.Gemini},
		},
		timeout: timeout,
	}
}

// WithCompleter replaces the client used for p.
func (g *Gateway) WithCompleter(p Provider, c Completer) *Gateway {
	ep := g.endpoints[p]
	ep.client = c
	g.endpoints[p] = ep
	return g
}

// Generate validates the request and performs exactly one provider call.
// Errors are *UnsupportedProviderError, *ConfigurationError or *ProviderError.
func (g *Gateway) Generate(ctx context.Context, provider, model, apiKey, prompt string) (string, error) {
	p, err := ParseProvider(provider)
	if err != nil {
		logging.GatewayError("Rejected request: %v", err)
		return "", err
	}
	if strings.TrimSpace(apiKey) == "" {
		return "", &ConfigurationError{Field: "apiKey"}
	}
	if strings.TrimSpace(prompt) == "" {
		return "", &ConfigurationError{Field: "prompt"}
	}

	ep := g.endpoints[p]
	if model == "" {
		model = ep.cfg.DefaultModel
	}
	if model == "" {
		model = p.DefaultModel()
	}
	temp := ep.cfg.Temperature
	maxTokens := ep.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	if g.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
	}

	timer := logging.StartTimer(logging.CategoryGateway, "generate "+p.String())
	defer timer.StopWithThreshold(30 * time.Second)

	logging.GatewayDebug("Dispatching to %s model=%s prompt_len=%d", p, model, len(prompt))
	text, err := ep.client.Complete(ctx, Request{
		Model:       model,
		APIKey:      apiKey,
		Prompt:      prompt,
		Temperature: temp,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		logging.GatewayError("%s call failed: %v", p, err)
		return "", err
	}
	logging.Gateway("%s returned %d chars", p, len(text))
	return text, nil
}
