package recipes

import (
	"errors"
	"fmt"
	"strings"

	"dealchef/internal/ai"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// MinIngredients is the fewest distinct selected products a generation needs.
const MinIngredients = 2

var validate = validator.New()

// GeneratePayload is the body of POST /recipes/generate.
type GeneratePayload struct {
	ProductIDs []string `json:"product_ids" validate:"min=2,dive,required"`
}

// Normalize trims ids, drops blanks and duplicates, keeping first-seen order.
func (p *GeneratePayload) Normalize() {
	p.ProductIDs = lo.Uniq(lo.Compact(lo.Map(p.ProductIDs, func(id string, _ int) string {
		return strings.TrimSpace(id)
	})))
}

func (p *GeneratePayload) Validate() error {
	p.Normalize()
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrNotEnoughIngredients, validationErrorResponse(err))
	}
	return nil
}

// ManualRecipePayload is the body of POST /recipes.
type ManualRecipePayload struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Ingredients []ai.Ingredient `json:"ingredients" validate:"required,min=1,dive"`
	Steps       []string        `json:"cooking_steps" validate:"required,min=1,dive,required"`
	Calories    ai.Count        `json:"calories" validate:"gte=0"`
	PrepMinutes ai.Count        `json:"prep_time_minutes" validate:"gte=0"`
	CookMinutes ai.Count        `json:"cook_time_minutes" validate:"gte=0"`
	Servings    ai.Count        `json:"servings" validate:"gte=0"`
	Difficulty  ai.Difficulty   `json:"difficulty_level" validate:"omitempty,oneof=Easy Medium Hard"`
	Cuisine     string          `json:"cuisine_type"`
}

func (p *ManualRecipePayload) Validate() error {
	p.Title = strings.TrimSpace(p.Title)
	if err := validate.Struct(p); err != nil {
		return validationErrorResponse(err)
	}
	return nil
}

func validationErrorResponse(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return errors.New("invalid validation error")
	}
	msgs := lo.Map(validationErrs, func(fe validator.FieldError, _ int) string {
		return fmt.Sprintf("field %s is invalid: %s", fe.Field(), fe.Tag())
	})
	return errors.New(strings.Join(msgs, "; "))
}
