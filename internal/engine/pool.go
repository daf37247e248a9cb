package engine

import (
	"context"
	"sync"
)

// mapParallel applies fn to every item on at most workers goroutines and
// returns the kept results in input order. If ctx ends first the whole batch
// is abandoned and ctx.Err() is returned.
func mapParallel[T, R any](ctx context.Context, workers int, items []T, fn func(T) (R, bool)) ([]R, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	results := make([]R, len(items))
	kept := make([]bool, len(items))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, workers)

dispatch:
	for i := range items {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}: // Acquire
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }() // Release

			if ctx.Err() != nil {
				return
			}
			results[idx], kept[idx] = fn(items[idx])
		}(i)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]R, 0, len(items))
	for i, ok := range kept {
		if ok {
			out = append(out, results[i])
		}
	}
	return out, nil
}
