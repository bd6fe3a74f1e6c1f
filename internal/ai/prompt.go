package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/alpkeskin/gotoon"
	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
)

// DefaultRecipeCount is how many recipes a prompt asks for unless configured otherwise.
const DefaultRecipeCount = 3

// SaleItem is a selected discounted product as the model sees it.
type SaleItem struct {
	Name          string
	Store         string
	Price         string
	PercentageOff float64
}

const systemMessage = `You are a creative culinary assistant. Your task is to generate compelling recipes based on a list of key ingredients that are on sale.`

var recipeSchema = sync.OnceValues(func() (string, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema, err := json.Marshal(r.Reflect(&Recipe{}))
	if err != nil {
		return "", fmt.Errorf("failed to marshal recipe schema: %w", err)
	}
	return string(schema), nil
})

// BuildPrompt renders the instruction asking for n recipes built around items.
func BuildPrompt(items []SaleItem, n int) (string, error) {
	if n <= 0 {
		n = DefaultRecipeCount
	}
	schema, err := recipeSchema()
	if err != nil {
		return "", err
	}

	rows := lo.Map(items, func(item SaleItem, _ int) map[string]any {
		return map[string]any{
			"name":          item.Name,
			"store":         item.Store,
			"price":         item.Price,
			"percentageOff": item.PercentageOff,
		}
	})
	table, err := gotoon.Encode(map[string]any{"ingredients": rows})
	if err != nil {
		return "", fmt.Errorf("failed to encode ingredients to TOON: %w", err)
	}
	names := lo.Map(items, func(item SaleItem, _ int) string { return item.Name })

	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d recipes based on these key ingredients, which are on sale: %s.\n\n", n, strings.Join(names, ", "))
	b.WriteString("Sale details in TOON format:\n")
	b.WriteString(table)
	b.WriteString("\n\nRules:\n")
	b.WriteString("1. Each recipe should use most of the key ingredients.\n")
	b.WriteString("2. Common pantry staples (oil, salt, pepper, water, basic spices) are available.\n")
	b.WriteString("3. Respond with a single minified JSON array of recipe objects and nothing else. No markdown, no commentary.\n")
	b.WriteString("4. Each recipe object must match this JSON schema:\n")
	b.WriteString(schema)
	b.WriteString("\n5. Set isDiscounted to true for key ingredients. List every other ingredient, including staples, with isDiscounted false.\n")
	return b.String(), nil
}
