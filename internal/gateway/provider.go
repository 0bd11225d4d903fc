package gateway

import "strings"

// Provider is one of the supported LLM APIs.
type Provider int

const (
	OpenAI Provider = iota + 1
	Anthropic
	Gemini
)

// Providers lists every provider in display order.
var Providers = []Provider{OpenAI, Anthropic, Gemini}

// ParseProvider maps a settings value to a Provider.
func ParseProvider(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return OpenAI, nil
	case "anthropic":
		return Anthropic, nil
	case "gemini":
		return Gemini, nil
	}
	return 0, &UnsupportedProviderError{Name: name}
}

// String returns the settings value for p.
func (p Provider) String() string {
	switch p {
	case OpenAI:
		return "openai"
	case Anthropic:
		return "anthropic"
	case Gemini:
		return "gemini"
	}
	return "unknown"
}

// DefaultModel is used when neither the request nor the config names a model.
func (p Provider) DefaultModel() string {
	switch p {
	case OpenAI:
		return "gpt-4o-mini"
	case Anthropic:
		return "claude-3-5-sonnet-latest"
	case Gemini:
		return "gemini-1.5-flash"
	}
	return ""
}

// Next cycles through Providers.
func (p Provider) Next() Provider {
	for i, q := range Providers {
		if q == p {
			return Providers[(i+1)%len(Providers)]
		}
	}
	return OpenAI
}
