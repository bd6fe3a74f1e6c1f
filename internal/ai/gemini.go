package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient streams content from the Gemini API. Chunks are concatenated
// and then decoded like any other assembled buffer.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, endpoint, apiKey, model string, httpClient *http.Client) (*GeminiClient, error) {
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		cc.HTTPOptions.BaseURL = endpoint
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string, sources []string) ([]Recipe, error) {
	slog.InfoContext(ctx, "requesting recipes", "provider", "gemini", "model", c.model, "sources", len(sources))
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemMessage, genai.RoleUser),
	}

	var buf strings.Builder
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, genai.Text(prompt), config) {
		if err != nil {
			var apiErr genai.APIError
			if errors.As(err, &apiErr) {
				return nil, &StatusError{Provider: "gemini", StatusCode: apiErr.Code, Body: apiErr.Message}
			}
			return nil, fmt.Errorf("gemini stream failed: %w", err)
		}
		buf.WriteString(resp.Text())
	}
	if strings.TrimSpace(buf.String()) == "" {
		return nil, ErrEmptyResponse
	}
	return Decode(ctx, buf.String(), sources)
}
