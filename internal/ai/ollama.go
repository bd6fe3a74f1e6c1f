package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	defaultOllamaEndpoint = "http://localhost:11434/api/generate"
	defaultOllamaModel    = "llama3.2"
)

// OllamaClient calls a streaming /api/generate endpoint and reconstructs
// recipes from the newline delimited response.
type OllamaClient struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

func NewOllamaClient(endpoint, model string, httpClient *http.Client) *OllamaClient {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = defaultOllamaEndpoint
	}
	if strings.TrimSpace(model) == "" {
		model = defaultOllamaModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaClient{endpoint: endpoint, model: model, httpClient: httpClient}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

func (c *OllamaClient) Generate(ctx context.Context, prompt string, sources []string) ([]Recipe, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  c.model,
		Prompt: prompt,
		System: systemMessage,
		Stream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.InfoContext(ctx, "requesting recipes", "provider", "ollama", "model", c.model, "sources", len(sources))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Provider: "ollama", StatusCode: resp.StatusCode, Body: ollamaErrorMessage(respBody)}
	}
	return Reconstruct(ctx, resp.Body, sources)
}

func ollamaErrorMessage(body []byte) string {
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	return strings.TrimSpace(string(body))
}
