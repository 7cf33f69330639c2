package memocache

import (
	"context"

	"trawl/internal/retry"
)

// Fetch returns the cached value for key when present, including cached zero
// values. On a miss it runs fn under the retry policy, stores the result, and
// returns it. Errors are never cached.
func Fetch[V any](ctx context.Context, cache *Cache[V], key string, policy retry.Policy, fn func(context.Context) (V, error)) (V, error) {
	if cache != nil {
		if value, ok := cache.Get(key); ok {
			return value, nil
		}
	}

	var value V
	err := policy.Do(ctx, func(ctx context.Context) error {
		fetched, err := fn(ctx)
		if err != nil {
			return err
		}
		value = fetched
		return nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	if cache != nil {
		cache.Set(key, value)
	}
	return value, nil
}
