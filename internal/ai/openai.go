package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient makes a single chat completion call and salvages the answer
// the same way as streamed output.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient talks to api.openai.com unless endpoint names another
// OpenAI compatible base URL.
func NewOpenAIClient(endpoint, apiKey, model string, httpClient *http.Client) *OpenAIClient {
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// generation is never retried automatically
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	return &OpenAIClient{client: openai.NewClient(opts...), model: model}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string, sources []string) ([]Recipe, error) {
	slog.InfoContext(ctx, "requesting recipes", "provider", "openai", "model", c.model, "sources", len(sources))
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemMessage),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &StatusError{Provider: "openai", StatusCode: apiErr.StatusCode, Body: apiErr.Message}
		}
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	slog.InfoContext(ctx, "API usage", "prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyResponse
	}
	return Decode(ctx, content, sources)
}
