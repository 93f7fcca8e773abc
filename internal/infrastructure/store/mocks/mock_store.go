package mocks

import (
	"context"
	"sync"

	"github.com/example/room-sessions/internal/infrastructure/store"
)

// MockStore is a recording Store backed by a MemoryStore.
type MockStore[T store.Aggregate] struct {
	mu      sync.Mutex
	backing *store.MemoryStore[T]

	// For tracking calls in tests
	GetCalls  []string
	SaveCalls []T

	GetErr       error
	SaveErr      error
	SaveCallback func(ctx context.Context, agg T) error
}

func NewMockStore[T store.Aggregate]() *MockStore[T] {
	return &MockStore[T]{backing: store.NewMemoryStore[T]("mock")}
}

func (m *MockStore[T]) GetByID(ctx context.Context, id string) (T, bool, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, id)
	getErr := m.GetErr
	m.mu.Unlock()

	if getErr != nil {
		var zero T
		return zero, false, getErr
	}
	return m.backing.GetByID(ctx, id)
}

func (m *MockStore[T]) Save(ctx context.Context, agg T) error {
	m.mu.Lock()
	m.SaveCalls = append(m.SaveCalls, agg)
	saveErr, callback := m.SaveErr, m.SaveCallback
	m.mu.Unlock()

	if callback != nil {
		if err := callback(ctx, agg); err != nil {
			return err
		}
	}
	if saveErr != nil {
		return saveErr
	}
	return m.backing.Save(ctx, agg)
}

// Seed stores agg without recording a call.
func (m *MockStore[T]) Seed(agg T) error {
	return m.backing.Save(context.Background(), agg)
}

// Get returns the stored aggregate without recording a call.
func (m *MockStore[T]) Get(id string) (T, bool) {
	agg, ok, _ := m.backing.GetByID(context.Background(), id)
	return agg, ok
}

// SaveCount returns how many times Save was called.
func (m *MockStore[T]) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SaveCalls)
}

// GetCount returns how many times GetByID was called.
func (m *MockStore[T]) GetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GetCalls)
}

// Reset clears recorded calls and injected errors.
func (m *MockStore[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls = nil
	m.SaveCalls = nil
	m.GetErr = nil
	m.SaveErr = nil
	m.SaveCallback = nil
}
