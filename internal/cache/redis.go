package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps entries as plain string keys under a namespace.
type RedisCache struct {
	client    *redis.Client
	namespace string
}

var _ ListCache = (*RedisCache)(nil)

// NewRedisCache accepts either host:port or a redis:// URL.
func NewRedisCache(ctx context.Context, addr, password, namespace string) (*RedisCache, error) {
	opts := &redis.Options{Addr: addr, Password: password}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		opts = parsed
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisCacheFromClient(client, namespace), nil
}

func NewRedisCacheFromClient(client *redis.Client, namespace string) *RedisCache {
	if namespace != "" && !strings.HasSuffix(namespace, ":") {
		namespace += ":"
	}
	return &RedisCache{client: client, namespace: namespace}
}

func (c *RedisCache) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	value, err := c.client.Get(ctx, c.namespace+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return io.NopCloser(strings.NewReader(value)), nil
}

func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.namespace+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisCache) Put(ctx context.Context, key, value string, opts PutOptions) error {
	if opts.Condition != PutIfNoneMatch {
		return c.client.Set(ctx, c.namespace+key, value, 0).Err()
	}
	ok, err := c.client.SetNX(ctx, c.namespace+key, value, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

func (c *RedisCache) List(ctx context.Context, prefix string) ([]string, error) {
	full := c.namespace + prefix
	keys := make([]string, 0)
	iter := c.client.Scan(ctx, 0, escapeGlob(full)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), full))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan redis keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
