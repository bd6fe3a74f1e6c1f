package recipes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dealchef/internal/ai"
	"dealchef/internal/catalog"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("dealchef/recipes")

var (
	ErrNotEnoughIngredients = fmt.Errorf("select at least %d different products", MinIngredients)
	ErrUnknownProduct       = errors.New("unknown product")
	ErrNotSaved             = errors.New("recipes were generated but not saved")
)

type productSource interface {
	GetOrLoad(ctx context.Context) ([]catalog.Product, error)
}

// Generator turns a product selection into stored recipes.
type Generator struct {
	products productSource
	ai       ai.Generator
	store    *Store
	count    int
}

func NewGenerator(products productSource, generator ai.Generator, store *Store, count int) *Generator {
	if count <= 0 {
		count = ai.DefaultRecipeCount
	}
	return &Generator{products: products, ai: generator, store: store, count: count}
}

// Select resolves ids against the active catalog, in request order.
func (g *Generator) Select(ctx context.Context, ids []string) (*catalog.Selection, error) {
	products, err := g.products.GetOrLoad(ctx)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(lo.Filter(products, func(p catalog.Product, _ int) bool {
		return p.Active
	}), func(p catalog.Product) string {
		return p.ID
	})

	var selection catalog.Selection
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
		}
		if err := selection.Add(p); err != nil && !errors.Is(err, catalog.ErrAlreadySelected) {
			return nil, err
		}
	}
	return &selection, nil
}

// Generate asks the model for recipes built on the selected products and
// appends them to the store. Nothing is sent to the model unless at least
// MinIngredients distinct products are selected.
func (g *Generator) Generate(ctx context.Context, payload GeneratePayload) ([]ai.Recipe, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "recipes.generate")
	defer span.End()

	selection, err := g.Select(ctx, payload.ProductIDs)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if selection.Len() < MinIngredients {
		return nil, ErrNotEnoughIngredients
	}

	items := lo.Map(selection.Products(), func(p catalog.Product, _ int) ai.SaleItem {
		return ai.SaleItem{
			Name:          p.Name,
			Store:         string(p.Store),
			Price:         p.DiscountedPrice.StringFixed(2),
			PercentageOff: p.PercentageOff,
		}
	})
	prompt, err := ai.BuildPrompt(items, g.count)
	if err != nil {
		return nil, fmt.Errorf("failed to build recipe prompt: %w", err)
	}

	sources := selection.Names()
	span.SetAttributes(
		attribute.Int("recipes.ingredients", len(sources)),
		attribute.String("recipes.savings", selection.TotalSavings().StringFixed(2)),
	)
	slog.InfoContext(ctx, "generating recipes", "ingredients", sources, "count", g.count)

	recipes, err := g.ai.Generate(ctx, prompt, sources)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, fmt.Errorf("failed to generate recipes: %w", err)
	}
	span.SetAttributes(attribute.Int("recipes.generated", len(recipes)))

	if err := g.store.AddAll(ctx, recipes); err != nil {
		return recipes, fmt.Errorf("%w: %w", ErrNotSaved, err)
	}
	return recipes, nil
}
