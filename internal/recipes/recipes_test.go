package recipes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"dealchef/internal/ai"
	"dealchef/internal/cache"
	"dealchef/internal/catalog"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProducts []catalog.Product

func (s staticProducts) GetOrLoad(context.Context) ([]catalog.Product, error) {
	return s, nil
}

type failingProducts struct{}

func (failingProducts) GetOrLoad(context.Context) ([]catalog.Product, error) {
	return nil, catalog.ErrUnavailable
}

// fakeModel answers with a fixed assembled buffer, run through the real decoder.
type fakeModel struct {
	mu      sync.Mutex
	calls   int
	prompt  string
	sources []string
	text    string
	err     error
}

func (f *fakeModel) Generate(ctx context.Context, prompt string, sources []string) ([]ai.Recipe, error) {
	f.mu.Lock()
	f.calls++
	f.prompt = prompt
	f.sources = sources
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return ai.Decode(ctx, f.text, sources)
}

func testProducts() staticProducts {
	mk := func(id, name string, store catalog.Store, price string, off float64, active bool) catalog.Product {
		p := decimal.RequireFromString(price)
		return catalog.Product{
			ID: id, Name: name, Store: store, Active: active, PercentageOff: off,
			DiscountedPrice: p, OriginalPrice: p.Add(decimal.NewFromInt(1)),
		}
	}
	return staticProducts{
		mk("milk", "Full Cream Milk 2L", catalog.Coles, "3.00", 33, true),
		mk("beef", "Beef Mince 500g", catalog.Aldi, "8.00", 20, true),
		mk("eggs", "Eggs 12pk", catalog.IGA, "6.00", 14, false),
	}
}

func newTestGenerator(model *fakeModel) (*Generator, *Store) {
	store := NewStore(cache.NewInMemoryCache())
	return NewGenerator(testProducts(), model, store, 0), store
}

func TestGenerateStoresRecipes(t *testing.T) {
	model := &fakeModel{text: `[{"title":"Beef Stroganoff"},{"title":"Milk Custard"},{`}
	g, store := newTestGenerator(model)

	recipes, err := g.Generate(t.Context(), GeneratePayload{ProductIDs: []string{"beef", " milk ", "beef"}})
	require.NoError(t, err)
	require.Len(t, recipes, 2)

	assert.Equal(t, []string{"Beef Mince 500g", "Full Cream Milk 2L"}, model.sources)
	assert.Contains(t, model.prompt, "Generate 3 recipes")
	assert.Contains(t, model.prompt, "Beef Mince 500g, Full Cream Milk 2L")
	for _, r := range recipes {
		assert.True(t, r.GeneratedFromDiscounts)
		assert.Equal(t, model.sources, r.SourceProducts)
	}

	stored, err := store.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestGeneratePreconditions(t *testing.T) {
	tests := map[string]struct {
		ids  []string
		want error
	}{
		"none":       {nil, ErrNotEnoughIngredients},
		"one":        {[]string{"milk"}, ErrNotEnoughIngredients},
		"duplicates": {[]string{"milk", "milk", " "}, ErrNotEnoughIngredients},
		"unknown":    {[]string{"milk", "caviar"}, ErrUnknownProduct},
		"inactive":   {[]string{"milk", "eggs"}, ErrUnknownProduct},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			model := &fakeModel{text: `[]`}
			g, _ := newTestGenerator(model)
			_, err := g.Generate(t.Context(), GeneratePayload{ProductIDs: tt.ids})
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, model.calls, "model must not be called")
		})
	}
}

func TestGenerateReconstructionFailureStoresNothing(t *testing.T) {
	model := &fakeModel{text: `[{"title":"Half`}
	g, store := newTestGenerator(model)

	recipes, err := g.Generate(t.Context(), GeneratePayload{ProductIDs: []string{"milk", "beef"}})
	assert.Nil(t, recipes)
	var rerr *ai.ReconstructionError
	require.True(t, errors.As(err, &rerr), "got %v", err)
	assert.Equal(t, `[{"title":"Half]`, rerr.Text)

	stored, err := store.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestGenerateCatalogUnavailable(t *testing.T) {
	model := &fakeModel{}
	g := NewGenerator(failingProducts{}, model, NewStore(cache.NewInMemoryCache()), 3)
	_, err := g.Generate(t.Context(), GeneratePayload{ProductIDs: []string{"a", "b"}})
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
	assert.Zero(t, model.calls)
}

func TestOverlappingGenerationsAccumulate(t *testing.T) {
	model := &fakeModel{text: `[{"title":"A"},{"title":"B"}]`}
	g, store := newTestGenerator(model)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Generate(t.Context(), GeneratePayload{ProductIDs: []string{"milk", "beef"}}); err != nil {
				t.Errorf("Generate: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, err := store.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, stored, 10)
}

func TestStoreListNewestFirst(t *testing.T) {
	store := NewStore(cache.NewInMemoryCache())
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"old", "newest", "middle"} {
		offset := map[string]time.Duration{"old": 0, "middle": time.Hour, "newest": 2 * time.Hour}[title]
		require.NoError(t, store.Add(t.Context(), ai.Recipe{
			ID:        strings.Repeat("x", i+1),
			Title:     title,
			CreatedAt: base.Add(offset),
		}))
	}

	recipes, err := store.List(t.Context())
	require.NoError(t, err)
	titles := make([]string, len(recipes))
	for i, r := range recipes {
		titles[i] = r.Title
	}
	assert.Equal(t, []string{"newest", "middle", "old"}, titles)

	err = store.Add(t.Context(), ai.Recipe{ID: "x", Title: "dupe"})
	assert.ErrorIs(t, err, cache.ErrAlreadyExists)
	assert.Error(t, store.Add(t.Context(), ai.Recipe{Title: "no id"}))

	_, err = store.Get(t.Context(), "missing")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestManualRecipePayloadValidate(t *testing.T) {
	ok := ManualRecipePayload{
		Title:       " Toast ",
		Ingredients: []ai.Ingredient{{Name: "Bread"}},
		Steps:       []string{"Toast it."},
		Difficulty:  ai.Easy,
	}
	require.NoError(t, ok.Validate())
	assert.Equal(t, "Toast", ok.Title)

	for name, p := range map[string]ManualRecipePayload{
		"no title":       {Ingredients: ok.Ingredients, Steps: ok.Steps},
		"no ingredients": {Title: "x", Steps: ok.Steps},
		"blank step":     {Title: "x", Ingredients: ok.Ingredients, Steps: []string{""}},
		"bad difficulty": {Title: "x", Ingredients: ok.Ingredients, Steps: ok.Steps, Difficulty: "Expert"},
		"negative time":  {Title: "x", Ingredients: ok.Ingredients, Steps: ok.Steps, CookMinutes: -5},
	} {
		assert.Error(t, p.Validate(), name)
	}
}

type downCache struct{ cache.ListCache }

func (downCache) Exists(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestStoreReady(t *testing.T) {
	store := NewStore(cache.NewInMemoryCache())
	require.NoError(t, store.Ready(t.Context()))
	recipes, err := store.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, recipes, "Ready must not write anything")

	err = NewStore(downCache{cache.NewInMemoryCache()}).Ready(t.Context())
	assert.ErrorContains(t, err, "connection refused")
}
