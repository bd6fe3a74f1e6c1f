package ai

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dealchef/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaClientGenerate(t *testing.T) {
	var got ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, line := range strings.SplitAfter(twoFragmentStream, "\n") {
			_, _ = io.WriteString(w, line)
			flusher.Flush()
		}
	}))
	t.Cleanup(server.Close)

	client := NewOllamaClient(server.URL+"/api/generate", "", server.Client())
	recipes, err := client.Generate(t.Context(), "make dinner", []string{"Milk", "Eggs"})
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, []string{"Milk", "Eggs"}, recipes[0].SourceProducts)

	assert.Equal(t, "llama3.2", got.Model)
	assert.Equal(t, "make dinner", got.Prompt)
	assert.True(t, got.Stream)
}

func TestOllamaClientStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"model \"llama9\" not found"}`)
	}))
	t.Cleanup(server.Close)

	_, err := NewOllamaClient(server.URL, "llama9", nil).Generate(t.Context(), "p", nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "got %v", err)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, `model "llama9" not found`, statusErr.Body)
}

func TestOllamaClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewOllamaClient(url, "", &http.Client{Timeout: time.Second}).Generate(t.Context(), "p", nil)
	require.Error(t, err)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestOpenAIClientGenerate(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key","param":null}}`)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		content := "```json\n[{\"title\":\"Milk Pudding\",\"servings\":\"4\"}]]\n```"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"logprobs":      nil,
				"message":       map[string]any{"role": "assistant", "content": content, "refusal": nil},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}))
	t.Cleanup(server.Close)

	client := NewOpenAIClient(server.URL+"/v1/", "test-key", "", server.Client())
	recipes, err := client.Generate(t.Context(), "make dessert", []string{"Milk"})
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "Milk Pudding", recipes[0].Title)
	assert.EqualValues(t, 4, recipes[0].Servings)
	assert.True(t, recipes[0].GeneratedFromDiscounts)
	assert.Equal(t, "gpt-4o-mini", body["model"])

	_, err = NewOpenAIClient(server.URL+"/v1/", "wrong", "", server.Client()).Generate(t.Context(), "p", nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestMockClient(t *testing.T) {
	recipes, err := NewMockClient().Generate(t.Context(), "", []string{"Crème fraîche", "Beef"})
	require.NoError(t, err)
	require.Len(t, recipes, 1)

	r := recipes[0]
	assert.Equal(t, Easy, r.Difficulty)
	assert.EqualValues(t, 30, r.CookMinutes)
	assert.Equal(t, []string{"Crème fraîche", "Beef"}, r.DiscountedIngredients())
	assert.Equal(t, Text("2"), r.Ingredients[2].Amount)
}

func TestNewFromConfig(t *testing.T) {
	g, err := NewFromConfig(t.Context(), config.AIConfig{})
	require.NoError(t, err)
	assert.IsType(t, &OllamaClient{}, g)

	g, err = NewFromConfig(t.Context(), config.AIConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, g)

	g, err = NewFromConfig(t.Context(), config.AIConfig{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, g)

	_, err = NewFromConfig(t.Context(), config.AIConfig{Provider: "openai"})
	assert.Error(t, err)
	_, err = NewFromConfig(t.Context(), config.AIConfig{Provider: "gemini"})
	assert.Error(t, err)
	_, err = NewFromConfig(t.Context(), config.AIConfig{Provider: "claude"})
	assert.Error(t, err)
}
