// Package async runs independent blocking operations concurrently and
// collects their results.
package async

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type Result[T any] struct {
	Value T
	Error error
}

type KeyedResult[K any, T any] struct {
	Key   K
	Value T
	Error error
}

// Map runs ops concurrently, at most limit at a time (no limit when
// limit <= 0), and returns their results in the order of ops. An error
// from one op does not stop the others. If ctx is done first, Map
// returns ctx.Err() without waiting; ops are expected to watch ctx.
func Map[R any](
	ctx context.Context,
	limit int,
	ops []func(context.Context) (R, error),
) ([]Result[R], error) {
	results := make([]Result[R], len(ops))

	var eg errgroup.Group
	if limit > 0 {
		eg.SetLimit(limit)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, op := range ops {
			if ctx.Err() != nil {
				break
			}
			eg.Go(func() error {
				value, err := op(ctx)
				results[i] = Result[R]{Value: value, Error: err}
				return nil
			})
		}
		_ = eg.Wait()
	}()

	select {
	case <-done:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return results, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// MapWithKeys applies op to every key, as Map does, and returns the
// results in the order of keys.
func MapWithKeys[K comparable, R any](
	ctx context.Context,
	limit int,
	keys []K,
	op func(context.Context, K) (R, error),
) ([]KeyedResult[K, R], error) {
	ops := make([]func(context.Context) (R, error), len(keys))
	for i, key := range keys {
		ops[i] = func(ctx context.Context) (R, error) { return op(ctx, key) }
	}

	results, err := Map(ctx, limit, ops)
	if err != nil {
		return nil, err
	}

	keyed := make([]KeyedResult[K, R], len(keys))
	for i, r := range results {
		keyed[i] = KeyedResult[K, R]{Key: keys[i], Value: r.Value, Error: r.Error}
	}
	return keyed, nil
}
