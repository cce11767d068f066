// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
	"time"
)

// Counter is the persisted record holding the last issued value of a sequence.
type Counter struct {
	// Key identifies the sequence domain (e.g., "service_order")
	Key string `json:"key"`

	// CurrentValue is the last value issued (never decreases)
	CurrentValue int64 `json:"currentValue"`

	// LastUpdated is the time of the last committed write
	LastUpdated time.Time `json:"lastUpdated"`

	// Version is the optimistic concurrency token maintained by the store.
	// Callers must treat it as opaque.
	Version int64 `json:"version"`
}

// UpdateFunc computes the new counter state from the current one.
// current is nil when the counter does not exist yet.
type UpdateFunc func(current *Counter) (Counter, error)

// Store is the document store contract required by the allocator.
//
// Implementations must linearize conditional writes per key: of two Update
// calls that read the same version, at most one commits.
type Store interface {
	// Get returns the counter for key or ErrNotFound.
	Get(ctx context.Context, key string) (Counter, error)

	// CreateIfAbsent inserts the counter unless one already exists.
	// It never overwrites an existing counter.
	CreateIfAbsent(ctx context.Context, c Counter) (created bool, err error)

	// Update performs exactly one optimistic read-modify-write attempt.
	// It returns ErrConflict when the counter changed between read and write,
	// and wraps transport/driver failures with ErrUnavailable.
	Update(ctx context.Context, key string, fn UpdateFunc) (Counter, error)
}

// Generator generates sequential document numbers.
// This is the domain contract - implementations live in infrastructure layer.
type Generator interface {
	// Initialize creates the counter for key if it is absent. Idempotent.
	Initialize(ctx context.Context, key string) error

	// NextNumber commits one increment of the counter and returns the
	// formatted value (e.g., "0042").
	NextNumber(ctx context.Context, key string) (string, error)

	// Current returns the counter without modifying it.
	Current(ctx context.Context, key string) (Counter, error)

	// Advance raises the counter to value (for migration purposes).
	// Lowering the counter is rejected.
	Advance(ctx context.Context, key string, value int64) error
}
