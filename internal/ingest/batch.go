package ingest

import (
	"context"
	"fmt"
)

// UpsertBatches calls fn with consecutive slices of at most size items.
// It stops at the first failing batch and returns the number of items
// written before it.
func UpsertBatches[T any](ctx context.Context, items []T, size int, fn func(context.Context, []T) error) (int, error) {
	if size <= 0 {
		size = len(items)
	}
	written := 0
	for start := 0; start < len(items); start += size {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		end := min(start+size, len(items))
		if err := fn(ctx, items[start:end]); err != nil {
			return written, fmt.Errorf("batch %d-%d: %w", start, end-1, err)
		}
		written = end
	}
	return written, nil
}

// Dedupe keeps the first item for each key, preserving order.
func Dedupe[T any, K comparable](items []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := key(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}
