package ai

import (
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	items := []SaleItem{
		{Name: "Full Cream Milk 2L", Store: "Coles", Price: "3.00", PercentageOff: 33},
		{Name: "Beef Mince 500g", Store: "Aldi", Price: "8.00", PercentageOff: 20},
	}
	prompt, err := BuildPrompt(items, 0)
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}

	for _, want := range []string{
		"Generate 3 recipes",
		"Full Cream Milk 2L, Beef Mince 500g",
		"ingredients[2",
		`"cooking_steps"`,
		`"isDiscounted"`,
		`"difficulty_level"`,
		"Hard",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	for _, unwanted := range []string{`"generated_from_discounts"`, `"source_products"`, `"created_at"`} {
		if strings.Contains(prompt, unwanted) {
			t.Errorf("prompt schema should not ask the model for %s", unwanted)
		}
	}
}

func TestBuildPromptCount(t *testing.T) {
	prompt, err := BuildPrompt([]SaleItem{{Name: "Eggs"}}, 5)
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	if !strings.HasPrefix(prompt, "Generate 5 recipes") {
		t.Fatalf("unexpected prompt start: %q", prompt[:40])
	}
}
