package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

// MockClient replays a canned, deliberately truncated stream so the whole
// reconstruction path runs without a model.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, prompt string, sources []string) ([]Recipe, error) {
	slog.InfoContext(ctx, "using mock recipe generator", "sources", len(sources))
	return Reconstruct(ctx, strings.NewReader(mockStream(sources)), sources)
}

func mockStream(sources []string) string {
	ingredients := lo.Map(sources, func(name string, _ int) map[string]any {
		return map[string]any{"name": name, "amount": "1", "unit": "pack", "isDiscounted": true}
	})
	ingredients = append(ingredients, map[string]any{"name": "olive oil", "amount": 2, "unit": "tbsp", "isDiscounted": false})
	recipe := lo.Must(json.Marshal(map[string]any{
		"title":             "Sale Basket Tray Bake",
		"description":       "Everything on special, roasted on one tray.",
		"ingredients":       ingredients,
		"cooking_steps":     []string{"Heat the oven to 200C.", "Chop everything and toss with oil.", "Roast for 30 minutes."},
		"calories":          540,
		"prep_time_minutes": 10,
		"cook_time_minutes": "30 minutes",
		"servings":          2,
		"difficulty_level":  "easy",
		"cuisine_type":      "Australian",
	}))

	// split mid object and leave a dangling opener for salvage to drop
	text := "[" + string(recipe) + ",{"
	half := len(text) / 2
	for half > 0 && !utf8.RuneStart(text[half]) {
		half--
	}
	var b strings.Builder
	for _, chunk := range []struct {
		text string
		done bool
	}{{text[:half], false}, {text[half:], true}} {
		line := lo.Must(json.Marshal(envelope{Response: chunk.text, Done: chunk.done}))
		fmt.Fprintf(&b, "%s\n", line)
	}
	return b.String()
}
