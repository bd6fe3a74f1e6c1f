package ai

import (
	"encoding/json"
	"testing"
)

func TestRecipeTolerantFields(t *testing.T) {
	input := `{
		"title": "Beef Stir Fry",
		"ingredients": [
			{"name": "Beef Mince", "amount": 500, "unit": "g", "isDiscounted": true},
			{"name": "Soy sauce", "amount": "2", "unit": null, "isDiscounted": false},
			{"name": "Rice", "amount": 1.5, "unit": "cups"}
		],
		"cooking_steps": ["Brown the beef.", "Add sauce."],
		"calories": "650 kcal",
		"prep_time_minutes": 10,
		"cook_time_minutes": 15.0,
		"servings": null,
		"difficulty_level": "medium",
		"cuisine_type": "Chinese"
	}`
	var r Recipe
	if err := json.Unmarshal([]byte(input), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if r.Ingredients[0].Amount != "500" || r.Ingredients[2].Amount != "1.5" {
		t.Fatalf("unexpected amounts %q %q", r.Ingredients[0].Amount, r.Ingredients[2].Amount)
	}
	if r.Ingredients[1].Unit != "" {
		t.Fatalf("null unit should be empty, got %q", r.Ingredients[1].Unit)
	}
	if r.Calories != 650 || r.PrepMinutes != 10 || r.CookMinutes != 15 || r.Servings != 0 {
		t.Fatalf("unexpected counts %+v", r)
	}
	if r.Difficulty != Medium {
		t.Fatalf("difficulty = %q, want Medium", r.Difficulty)
	}
	if got := r.DiscountedIngredients(); len(got) != 1 || got[0] != "Beef Mince" {
		t.Fatalf("DiscountedIngredients = %v", got)
	}
}

func TestDifficultyKeepsUnknownValues(t *testing.T) {
	var d Difficulty
	if err := json.Unmarshal([]byte(`" Expert "`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d != "Expert" {
		t.Fatalf("got %q", d)
	}
	if err := json.Unmarshal([]byte(`3`), &d); err != nil || d != Hard {
		t.Fatalf("numeric difficulty 3 = %q, %v; want Hard", d, err)
	}
	if err := json.Unmarshal([]byte(`7`), &d); err != nil || d != "7" {
		t.Fatalf("out of range difficulty = %q, %v", d, err)
	}
	if err := json.Unmarshal([]byte(`["Easy"]`), &d); err == nil {
		t.Fatal("expected error for a list difficulty")
	}
}

func TestStepsShapes(t *testing.T) {
	tests := map[string]struct {
		input string
		want  Steps
	}{
		"list":           {`["Boil water.", "Add pasta."]`, Steps{"Boil water.", "Add pasta."}},
		"single string":  {`"Boil water. Add pasta."`, Steps{"Boil water. Add pasta."}},
		"one per line":   {`"Boil water.\n\n  Add pasta.  "`, Steps{"Boil water.", "Add pasta."}},
		"objects":        {`[{"step":1,"text":"Boil water."},{"step":2,"instruction":"Add pasta."}]`, Steps{"Boil water.", "Add pasta."}},
		"step as text":   {`[{"step":"Drain."}]`, Steps{"Drain."}},
		"mixed":          {`["Boil water.", {"description":"Add pasta."}, 3, null, {"step":4}]`, Steps{"Boil water.", "Add pasta.", "3"}},
		"null":           {`null`, nil},
		"nested objects": {`[{"text":"Stir.","tips":{"a":1}}]`, Steps{"Stir."}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var s Steps
			if err := json.Unmarshal([]byte(tt.input), &s); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(s) != len(tt.want) {
				t.Fatalf("got %q, want %q", s, tt.want)
			}
			for i := range s {
				if s[i] != tt.want[i] {
					t.Fatalf("got %q, want %q", s, tt.want)
				}
			}
		})
	}

	var s Steps
	if err := json.Unmarshal([]byte(`{"text":"not a list"}`), &s); err == nil {
		t.Fatal("expected error for an object")
	}
}

func TestFlag(t *testing.T) {
	for input, want := range map[string]Flag{
		`true`: true, `false`: false, `"true"`: true, `"Yes"`: true, `1`: true,
		`0`: false, `"no"`: false, `null`: false,
	} {
		var f Flag
		if err := json.Unmarshal([]byte(input), &f); err != nil {
			t.Fatalf("%s: %v", input, err)
		}
		if f != want {
			t.Fatalf("%s = %v, want %v", input, f, want)
		}
	}
}

func TestIngredientAsString(t *testing.T) {
	var ings []Ingredient
	if err := json.Unmarshal([]byte(`["2 eggs", {"name":"Milk","amount":1,"isDiscounted":"true"}]`), &ings); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ings[0].Name != "2 eggs" || ings[1].Name != "Milk" || !bool(ings[1].IsDiscounted) {
		t.Fatalf("unexpected ingredients %+v", ings)
	}
}

func TestCountRejectsObjects(t *testing.T) {
	var c Count
	if err := json.Unmarshal([]byte(`{"value":3}`), &c); err == nil {
		t.Fatal("expected error")
	}
	if err := json.Unmarshal([]byte(`"about an hour"`), &c); err != nil || c != 0 {
		t.Fatalf("non numeric text should be zero, got %d, %v", c, err)
	}
}
