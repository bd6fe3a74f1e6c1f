package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dealchef/internal/config"
)

// Generator asks a model for recipes. sources are the display names of the
// selected products and are copied onto every returned recipe.
type Generator interface {
	Generate(ctx context.Context, prompt string, sources []string) ([]Recipe, error)
}

var (
	_ Generator = (*OllamaClient)(nil)
	_ Generator = (*OpenAIClient)(nil)
	_ Generator = (*GeminiClient)(nil)
	_ Generator = (*MockClient)(nil)
)

// NewFromConfig builds the generator named by cfg.Provider.
func NewFromConfig(ctx context.Context, cfg config.AIConfig) (Generator, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaClient(cfg.Endpoint, cfg.Model, &http.Client{Timeout: timeout}), nil
	case "openai":
		if cfg.APIKey == "" && cfg.Endpoint == "" {
			return nil, fmt.Errorf("AI_API_KEY is required for the openai provider")
		}
		return NewOpenAIClient(cfg.Endpoint, cfg.APIKey, cfg.Model, &http.Client{Timeout: timeout}), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("AI_API_KEY is required for the gemini provider")
		}
		return NewGeminiClient(ctx, cfg.Endpoint, cfg.APIKey, cfg.Model, &http.Client{Timeout: timeout})
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
