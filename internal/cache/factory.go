package cache

import (
	"context"
	"fmt"
	"log/slog"

	"dealchef/internal/config"
)

func MakeCache(ctx context.Context, cfg config.StoreConfig) (ListCache, error) {
	switch cfg.Backend {
	case "", "memory":
		slog.InfoContext(ctx, "Using in-memory recipe store")
		return NewInMemoryCache(), nil
	case "file":
		slog.InfoContext(ctx, "Using file recipe store", "dir", cfg.Path)
		return NewFileCache(cfg.Path), nil
	case "redis":
		slog.InfoContext(ctx, "Using Redis recipe store", "addr", cfg.RedisAddr)
		return NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, "dealchef")
	case "blob":
		slog.InfoContext(ctx, "Using Azure Blob Storage recipe store", "container", cfg.Container)
		return NewBlobCache(cfg.AccountName, cfg.AccountKey, cfg.Container)
	default:
		return nil, fmt.Errorf("unknown recipe store %q", cfg.Backend)
	}
}
