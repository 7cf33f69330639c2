package parallel

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Map runs fn over items with at most limit invocations in flight. The result
// slice is index-aligned with items regardless of completion order. The first
// error cancels outstanding work and is returned; callers that need per-item
// isolation must absorb errors inside fn.
func Map[T, R any](ctx context.Context, limit int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	if limit < 1 {
		return nil, fmt.Errorf("parallel: limit must be >= 1, got %d", limit)
	}
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for i, item := range items {
		group.Go(func() error {
			value, err := fn(groupCtx, item)
			if err != nil {
				return err
			}
			results[i] = value
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ForEach is Map without collected results.
func ForEach[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) error) error {
	_, err := Map(ctx, limit, items, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	return err
}
