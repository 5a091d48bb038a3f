package dictionary

import (
	"context"
	"errors"
	"sync"
)

type (
	// Store resolves a dictionary surrogate key back to the column value it
	// replaced at load time. Lookup may perform I/O and must stay available
	// for the full lifetime of a resolver instance.
	Store interface {
		Lookup(ctx context.Context, table, column string, surrogate int64) (string, error)

		Shutdown(ctx context.Context) error
	}
)

var ErrSurrogateNotFound = errors.New("surrogate not found in dictionary")

type (
	// CachedStore memoizes lookups per distinct surrogate. The inner store
	// makes no caching guarantee of its own, so a resolver wraps it once and
	// amortizes repeated hot-path lookups over a segment.
	CachedStore struct {
		inner Store

		mu     sync.RWMutex
		values map[cacheKey]string
	}

	cacheKey struct {
		table     string
		column    string
		surrogate int64
	}
)

func NewCachedStore(inner Store) *CachedStore {
	return &CachedStore{
		inner:  inner,
		values: make(map[cacheKey]string),
	}
}

func (cs *CachedStore) Lookup(ctx context.Context, table, column string, surrogate int64) (string, error) {
	key := cacheKey{table: table, column: column, surrogate: surrogate}
	cs.mu.RLock()
	val, found := cs.values[key]
	cs.mu.RUnlock()
	if found {
		return val, nil
	}

	val, err := cs.inner.Lookup(ctx, table, column, surrogate)
	if err != nil {
		return "", err
	}

	cs.mu.Lock()
	cs.values[key] = val
	cs.mu.Unlock()
	return val, nil
}

func (cs *CachedStore) Shutdown(ctx context.Context) error {
	return cs.inner.Shutdown(ctx)
}
