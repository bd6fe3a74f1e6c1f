package catalog

import (
	"context"
	"errors"
	"fmt"

	"dealchef/internal/config"
)

// ErrUnavailable wraps failures reaching the catalog source.
var ErrUnavailable = errors.New("catalog source unavailable")

// Provider materializes the full product catalog.
type Provider interface {
	Load(ctx context.Context) ([]Product, error)
}

// Querier is a Provider that can apply a FilterSpec at the source.
type Querier interface {
	Provider
	Query(ctx context.Context, spec FilterSpec) ([]Product, error)
}

var _ Querier = (*PostgresProvider)(nil)

// NewProvider picks the catalog source named by cfg.Source.
func NewProvider(ctx context.Context, cfg config.CatalogConfig) (Provider, error) {
	switch cfg.Source {
	case "", "csv":
		return NewCSVProvider(cfg.CSV), nil
	case "postgres":
		return NewPostgresProvider(ctx, cfg.DatabaseURL, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}
