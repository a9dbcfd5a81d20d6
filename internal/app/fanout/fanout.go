// Package fanout runs a function across a slice of items with a bounded
// number of worker goroutines. The service layer uses it for bulk entity
// operations where each item succeeds or fails independently.
package fanout

import (
	"context"
	"sync"
)

// Result holds the outcome for a single item: Value on success, Err on
// failure.
type Result[R any] struct {
	Value R
	Err   error
}

// Run executes fn for each item using at most maxWorkers concurrent
// goroutines and returns the outcomes in input order.
//
// A goroutine still waiting for a worker slot when ctx is canceled records
// ctx.Err() without calling fn. Goroutines already running complete; fn must
// observe ctx itself if it supports cancellation. Run blocks until every
// goroutine finishes. maxWorkers must be >= 1.
func Run[T, R any](ctx context.Context, maxWorkers int, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	if len(items) == 0 {
		return []Result[R]{}
	}

	results := make([]Result[R], len(items))
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(idx int, it T) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = Result[R]{Err: ctx.Err()}
				return
			}

			val, err := fn(ctx, it)
			results[idx] = Result[R]{Value: val, Err: err}
		}(i, item)
	}

	wg.Wait()
	return results
}
