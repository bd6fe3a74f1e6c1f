package cache

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound      = errors.New("cache entry not found")
	ErrAlreadyExists = errors.New("cache entry already exists")
)

type PutCondition int

const (
	PutUnconditional PutCondition = iota
	PutIfNoneMatch
)

type PutOptions struct {
	Condition PutCondition
}

func Unconditional() PutOptions {
	return PutOptions{Condition: PutUnconditional}
}

// IfNoneMatch makes Put fail with ErrAlreadyExists when the key is taken.
func IfNoneMatch() PutOptions {
	return PutOptions{Condition: PutIfNoneMatch}
}

type Cache interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key, value string, opts PutOptions) error
}

// ListCache can also enumerate keys. List returns keys under prefix with the
// prefix removed, sorted.
type ListCache interface {
	Cache
	List(ctx context.Context, prefix string) ([]string, error)
}
