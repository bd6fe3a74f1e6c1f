package ai

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"
)

type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// UnmarshalJSON folds known levels to their canonical case and maps 1-3 to
// Easy-Hard. Anything else is kept as written; recipes are not validated here.
func (d *Difficulty) UnmarshalJSON(data []byte) error {
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	s := strings.TrimSpace(string(t))
	levels := []Difficulty{Easy, Medium, Hard}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(levels) {
		*d = levels[n-1]
		return nil
	}
	for _, level := range levels {
		if strings.EqualFold(s, string(level)) {
			*d = level
			return nil
		}
	}
	*d = Difficulty(s)
	return nil
}

// Text is a display string that models sometimes emit as a bare number or bool.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
		return nil
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*t = Text(data)
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

// Flag is a bool that also accepts "true", "yes", 1 and friends.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(string(t))) {
	case "true", "yes", "y", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

// Steps are cooking instructions. Models send a list of strings, one string
// with a step per line, or a list of objects such as {"step":1,"text":"..."}.
type Steps []string

// stepTextKeys are tried in order on object steps.
var stepTextKeys = []string{"text", "instruction", "description", "step"}

func (s *Steps) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = splitLines(text)
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	steps := make(Steps, 0, len(raw))
	for _, item := range raw {
		if step := stepText(item); step != "" {
			steps = append(steps, step)
		}
	}
	*s = steps
	return nil
}

func stepText(item json.RawMessage) string {
	item = bytes.TrimSpace(item)
	if len(item) > 0 && item[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			return ""
		}
		for _, key := range stepTextKeys {
			var t Text
			if raw, ok := fields[key]; !ok || t.UnmarshalJSON(raw) != nil {
				continue
			}
			// "step" is often just the number; only take it when it reads like text
			if v := strings.TrimSpace(string(t)); v != "" && (key != "step" || leadingInt(v) == 0) {
				return v
			}
		}
		return ""
	}
	var t Text
	if err := t.UnmarshalJSON(item); err != nil {
		return ""
	}
	return strings.TrimSpace(string(t))
}

func splitLines(text string) []string {
	return lo.FilterMap(strings.Split(text, "\n"), func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(line)
		return line, line != ""
	})
}

// Count is a whole number that tolerates "30", "30 minutes" or 30.5 from the model.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Count(leadingInt(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*c = Count(f)
	return nil
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(s)
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

type Ingredient struct {
	Name         string `json:"name"`
	Amount       Text   `json:"amount"`
	Unit         Text   `json:"unit"`
	IsDiscounted Flag   `json:"isDiscounted"`
}

// UnmarshalJSON also accepts a bare string such as "2 eggs" as the name.
func (i *Ingredient) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*i = Ingredient{Name: strings.TrimSpace(name)}
		return nil
	}
	type plain Ingredient
	return json.Unmarshal(data, (*plain)(i))
}

// Recipe is one generated (or hand written) recipe. Fields tagged
// jsonschema:"-" are filled in by this package, never by the model.
type Recipe struct {
	ID          string       `json:"id" jsonschema:"-"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       Steps        `json:"cooking_steps"`
	Calories    Count        `json:"calories,omitempty"`
	PrepMinutes Count        `json:"prep_time_minutes,omitempty"`
	CookMinutes Count        `json:"cook_time_minutes,omitempty"`
	Servings    Count        `json:"servings,omitempty"`
	Difficulty  Difficulty   `json:"difficulty_level,omitempty" jsonschema:"enum=Easy,enum=Medium,enum=Hard"`
	Cuisine     string       `json:"cuisine_type,omitempty"`

	GeneratedFromDiscounts bool      `json:"generated_from_discounts" jsonschema:"-"`
	SourceProducts         []string  `json:"source_products,omitempty" jsonschema:"-"`
	CreatedAt              time.Time `json:"created_at" jsonschema:"-"`
	UpdatedAt              time.Time `json:"updated_at" jsonschema:"-"`
}

// DiscountedIngredients returns the names of ingredients flagged as sale items.
func (r Recipe) DiscountedIngredients() []string {
	return lo.FilterMap(r.Ingredients, func(ing Ingredient, _ int) (string, bool) {
		return ing.Name, bool(ing.IsDiscounted)
	})
}
