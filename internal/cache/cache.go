// Package cache holds read-through caches for table snapshots.
package cache

import "context"

// Cache stores raw table values keyed by table identifier. Implementations
// treat every failure as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([][]string, bool)
	Set(ctx context.Context, key string, values [][]string)
	Delete(ctx context.Context, key string)
}
