package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// postJSON sends body to url and returns the raw response. Transport failures
// become a ProviderError; status handling is left to the caller.
func postJSON(ctx context.Context, client *http.Client, p Provider, url string, headers map[string]string, body any) (int, []byte, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return 0, nil, &ProviderError{Provider: p, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return 0, nil, &ProviderError{Provider: p, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &ProviderError{Provider: p, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &ProviderError{Provider: p, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return resp.StatusCode, data, nil
}

// apiErrorBody is the error envelope shared by the OpenAI and Anthropic APIs.
type apiErrorBody struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func embeddedMessage(data []byte) string {
	var env apiErrorBody
	if err := json.Unmarshal(data, &env); err != nil || env.Error == nil {
		return ""
	}
	return env.Error.Message
}
