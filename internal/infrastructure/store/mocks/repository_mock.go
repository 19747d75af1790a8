package mocks

import (
	"context"
	"sync"

	"github.com/example/marketflow/internal/infrastructure/store"
)

// MockRepository wraps an in-memory store and can inject failures
type MockRepository struct {
	*store.MemoryStore

	mu sync.Mutex

	LoadCalls int
	SaveCalls int
	LoadErr   error
	SaveErr   error

	// ConflictsLeft makes the next N saves fail with ErrVersionConflict.
	ConflictsLeft int
	// BeforeSave runs ahead of every save; tests use it to race a second writer.
	BeforeSave func(ctx context.Context)
}

// NewMockRepository creates an empty MockRepository
func NewMockRepository() *MockRepository {
	return &MockRepository{MemoryStore: store.NewMemoryStore()}
}

// Load records the call and delegates to the memory store
func (m *MockRepository) Load(ctx context.Context) (*store.Snapshot, error) {
	m.mu.Lock()
	m.LoadCalls++
	err := m.LoadErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.MemoryStore.Load(ctx)
}

// Save records the call, applies injected failures, then delegates
func (m *MockRepository) Save(ctx context.Context, snap *store.Snapshot) error {
	m.mu.Lock()
	m.SaveCalls++
	hook := m.BeforeSave
	if m.SaveErr != nil {
		err := m.SaveErr
		m.mu.Unlock()
		return err
	}
	if m.ConflictsLeft > 0 {
		m.ConflictsLeft--
		m.mu.Unlock()
		return store.ErrVersionConflict
	}
	m.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	return m.MemoryStore.Save(ctx, snap)
}

// Seed applies fn to the stored state without counting calls
func (m *MockRepository) Seed(ctx context.Context, fn func(*store.Snapshot)) error {
	_, err := store.Update(ctx, m.MemoryStore, func(s *store.Snapshot) error {
		fn(s)
		return nil
	})
	return err
}

// Snapshot returns the currently stored state
func (m *MockRepository) Snapshot(ctx context.Context) (*store.Snapshot, error) {
	return m.MemoryStore.Load(ctx)
}
