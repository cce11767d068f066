package tx

import "context"

// MockManager runs fn directly without a database (unit tests, memory mode).
type MockManager struct {
	RunFunc func(ctx context.Context, fn func(ctx context.Context) error) error
	Calls   int
}

// RunInTransaction implements Manager.
func (m *MockManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	if m.RunFunc != nil {
		return m.RunFunc(ctx, fn)
	}
	return fn(ctx)
}

var _ Manager = (*MockManager)(nil)
