package shared

import (
	"context"
	"time"
)

// IdempotencyStore records invocation ids so a duplicated drain invocation
// (two warm workers handed the same request) aborts instead of double
// processing a queue.
type IdempotencyStore interface {
	// MarkProcessed marks an invocation id as seen with a TTL.
	// Returns true if the id was newly marked, false if already seen.
	MarkProcessed(ctx context.Context, invocationID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an invocation id has already been seen
	IsProcessed(ctx context.Context, invocationID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}
