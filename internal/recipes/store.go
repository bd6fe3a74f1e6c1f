package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"dealchef/internal/ai"
	"dealchef/internal/cache"

	"github.com/samber/lo"
)

const recipeCachePrefix = "recipe/"

// Store is the recipe collection: list everything, append one at a time.
// Each recipe lives under its own key so overlapping writers never clobber
// each other.
type Store struct {
	cache cache.ListCache
}

func NewStore(c cache.ListCache) *Store {
	return &Store{cache: c}
}

// Ready reports whether the backend answers; it never writes.
func (s *Store) Ready(ctx context.Context) error {
	if _, err := s.cache.Exists(ctx, recipeCachePrefix+"ready"); err != nil {
		return fmt.Errorf("recipe store unreachable: %w", err)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, recipe ai.Recipe) error {
	if recipe.ID == "" {
		return errors.New("recipe has no id")
	}
	recipeJSON := lo.Must(json.Marshal(recipe))
	if err := s.cache.Put(ctx, recipeCachePrefix+recipe.ID, string(recipeJSON), cache.IfNoneMatch()); err != nil {
		slog.ErrorContext(ctx, "failed to store recipe", "id", recipe.ID, "title", recipe.Title, "error", err)
		return fmt.Errorf("error saving recipe %s: %w", recipe.ID, err)
	}
	slog.InfoContext(ctx, "stored recipe", "id", recipe.ID, "title", recipe.Title)
	return nil
}

// AddAll stores every recipe and reports all failures together.
func (s *Store) AddAll(ctx context.Context, recipes []ai.Recipe) error {
	var errs []error
	for _, recipe := range recipes {
		if err := s.Add(ctx, recipe); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) Get(ctx context.Context, id string) (*ai.Recipe, error) {
	rc, err := s.cache.Get(ctx, recipeCachePrefix+id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rc.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close cached recipe", "id", id, "error", err)
		}
	}()

	var recipe ai.Recipe
	if err := json.NewDecoder(rc).Decode(&recipe); err != nil {
		return nil, fmt.Errorf("failed to decode recipe %s: %w", id, err)
	}
	return &recipe, nil
}

// List returns every stored recipe, newest first. Entries that fail to load
// are logged and skipped.
func (s *Store) List(ctx context.Context) ([]ai.Recipe, error) {
	ids, err := s.cache.List(ctx, recipeCachePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	recipes := make([]ai.Recipe, 0, len(ids))
	for _, id := range ids {
		recipe, err := s.Get(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable recipe", "id", id, "error", err)
			continue
		}
		recipes = append(recipes, *recipe)
	}

	slices.SortStableFunc(recipes, func(a, b ai.Recipe) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return recipes, nil
}
