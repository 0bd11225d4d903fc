package gateway

import "fmt"

// ConfigurationError reports a request that cannot be sent as configured.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	switch e.Field {
	case "apiKey":
		return "API 키가 설정되지 않았습니다 (API key not configured)"
	case "prompt":
		return "프롬프트가 비어 있습니다 (empty prompt)"
	}
	return fmt.Sprintf("invalid configuration: %s", e.Field)
}

// UnsupportedProviderError reports an unknown provider name.
type UnsupportedProviderError struct {
	Name string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider: %q", e.Name)
}

// ProviderError reports a failed or malformed provider response. Message holds
// the provider's own error text when it sent one.
type ProviderError struct {
	Provider Provider
	Status   int
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s request failed (status %d)", e.Provider, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s request failed", e.Provider)
}

func (e *ProviderError) Unwrap() error { return e.Err }
