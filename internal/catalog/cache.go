package catalog

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("dealchef/catalog")

// Cache holds the catalog for the life of a session. The provider is hit once;
// later calls are served from memory until Refresh.
type Cache struct {
	provider Provider
	group    singleflight.Group

	mu       sync.RWMutex
	products []Product
	loaded   bool
}

func NewCache(p Provider) *Cache {
	return &Cache{provider: p}
}

// GetOrLoad returns the cached catalog, loading it on first use. Concurrent
// first calls share a single load. A failed load is not cached.
func (c *Cache) GetOrLoad(ctx context.Context) ([]Product, error) {
	c.mu.RLock()
	if c.loaded {
		products := c.products
		c.mu.RUnlock()
		return products, nil
	}
	c.mu.RUnlock()
	return c.load(ctx)
}

// Refresh drops the cached catalog and loads it again.
func (c *Cache) Refresh(ctx context.Context) ([]Product, error) {
	c.mu.Lock()
	c.loaded = false
	c.products = nil
	c.mu.Unlock()
	return c.load(ctx)
}

// Query answers one filter. A loaded catalog is filtered in memory; before
// the first load a Querier provider filters at the source so one-shot callers
// do not pull the whole table. The result is not cached.
func (c *Cache) Query(ctx context.Context, spec FilterSpec) ([]Product, error) {
	c.mu.RLock()
	loaded, products := c.loaded, c.products
	c.mu.RUnlock()
	if loaded {
		return Apply(products, spec), nil
	}
	if q, ok := c.provider.(Querier); ok {
		return q.Query(ctx, spec)
	}
	products, err := c.GetOrLoad(ctx)
	if err != nil {
		return nil, err
	}
	return Apply(products, spec), nil
}

func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Ready loads the catalog if needed; it lets the cache serve as a readiness check.
func (c *Cache) Ready(ctx context.Context) error {
	_, err := c.GetOrLoad(ctx)
	return err
}

// loadTimeout bounds a shared load, which no single caller can cancel.
const loadTimeout = 2 * time.Minute

func (c *Cache) load(ctx context.Context) ([]Product, error) {
	ch := c.group.DoChan("catalog", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		ctx, span := tracer.Start(ctx, "catalog.load")
		defer span.End()

		products, err := c.provider.Load(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		span.SetAttributes(attribute.Int("catalog.products", len(products)))

		// callers get a read only view; keep our own copy
		products = slices.Clip(slices.Clone(products))
		c.mu.Lock()
		c.products = products
		c.loaded = true
		c.mu.Unlock()
		return products, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			slog.ErrorContext(ctx, "failed to load catalog", "error", res.Err)
			return nil, res.Err
		}
		if res.Shared {
			trace.SpanFromContext(ctx).AddEvent("catalog.load.shared")
		}
		return res.Val.([]Product), nil
	}
}
