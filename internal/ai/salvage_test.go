package ai

import (
	"encoding/json"
	"testing"
)

func TestSalvage(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"well formed", `[{"title":"A"}]`, `[{"title":"A"}]`},
		{"surrounding whitespace", "\n  [{\"title\":\"A\"}] \n", `[{"title":"A"}]`},
		{"dangling opener", `[{"title":"A"},{`, `[{"title":"A"}]`},
		{"dangling opener with space", "[{\"title\":\"A\"} ,\n {  ", `[{"title":"A"}]`},
		{"doubled close", `[{"title":"A"}]]`, `[{"title":"A"}]`},
		{"tripled close", `[{"title":"A"}]]]`, `[{"title":"A"}]`},
		{"unclosed array", `[{"title":"A"},{"title":"B"}`, `[{"title":"A"},{"title":"B"}]`},
		{"code fence", "```json\n[{\"title\":\"A\"}]\n```", `[{"title":"A"}]`},
		{"bare fence", "```\n[{\"title\":\"A\"},{\n```", `[{"title":"A"}]`},
		{"object untouched", `{"title":"A"}`, `{"title":"A"}`},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Salvage(tt.input); got != tt.want {
				t.Fatalf("Salvage(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSalvageOutputParses(t *testing.T) {
	for _, input := range []string{
		`[{"title":"A"},{`,
		`[{"title":"A"}]]`,
		`[{"title":"A","cooking_steps":["x","y"]}`,
	} {
		var v []map[string]any
		if err := json.Unmarshal([]byte(Salvage(input)), &v); err != nil {
			t.Fatalf("salvaged %q does not parse: %v", input, err)
		}
	}
}

func TestSalvageIsNotGeneralRepair(t *testing.T) {
	// an element cut off mid string is out of scope and must still fail
	got := Salvage(`[{"title":"A"},{"title":"B`)
	var v []map[string]any
	if err := json.Unmarshal([]byte(got), &v); err == nil {
		t.Fatalf("expected %q to remain unparseable", got)
	}
}
