// Package numerator provides domain contracts for document auto-numbering.
package numerator

import (
	"context"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	InitializeFunc func(ctx context.Context, key string) error
	NextNumberFunc func(ctx context.Context, key string) (string, error)
	CurrentFunc    func(ctx context.Context, key string) (Counter, error)
	AdvanceFunc    func(ctx context.Context, key string, value int64) error
}

// Initialize implements Generator.
func (m *MockGenerator) Initialize(ctx context.Context, key string) error {
	if m.InitializeFunc != nil {
		return m.InitializeFunc(ctx, key)
	}
	return nil
}

// NextNumber implements Generator.
func (m *MockGenerator) NextNumber(ctx context.Context, key string) (string, error) {
	if m.NextNumberFunc != nil {
		return m.NextNumberFunc(ctx, key)
	}
	// Default: return predictable mock number
	return "0001", nil
}

// Current implements Generator.
func (m *MockGenerator) Current(ctx context.Context, key string) (Counter, error) {
	if m.CurrentFunc != nil {
		return m.CurrentFunc(ctx, key)
	}
	return Counter{Key: key}, nil
}

// Advance implements Generator.
func (m *MockGenerator) Advance(ctx context.Context, key string, value int64) error {
	if m.AdvanceFunc != nil {
		return m.AdvanceFunc(ctx, key, value)
	}
	return nil
}

// MockStore is a test implementation of Store with overridable behaviour.
type MockStore struct {
	GetFunc            func(ctx context.Context, key string) (Counter, error)
	CreateIfAbsentFunc func(ctx context.Context, c Counter) (bool, error)
	UpdateFunc         func(ctx context.Context, key string, fn UpdateFunc) (Counter, error)
}

// Get implements Store.
func (m *MockStore) Get(ctx context.Context, key string) (Counter, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return Counter{}, ErrNotFound
}

// CreateIfAbsent implements Store.
func (m *MockStore) CreateIfAbsent(ctx context.Context, c Counter) (bool, error) {
	if m.CreateIfAbsentFunc != nil {
		return m.CreateIfAbsentFunc(ctx, c)
	}
	return true, nil
}

// Update implements Store.
func (m *MockStore) Update(ctx context.Context, key string, fn UpdateFunc) (Counter, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, fn)
	}
	return fn(nil)
}

// Ensure compile-time interface compliance.
var (
	_ Generator = (*MockGenerator)(nil)
	_ Store     = (*MockStore)(nil)
)
