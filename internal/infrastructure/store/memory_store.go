package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the encoded snapshot in process memory. Every Load
// decodes a private copy, so callers never share state.
type MemoryStore struct {
	mu      sync.Mutex
	data    []byte
	version int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return NewSnapshot(), nil
	}
	snap, err := decodeSnapshot(m.data)
	if err != nil {
		return nil, err
	}
	snap.Version = m.version
	return snap, nil
}

func (m *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if snap.Version != m.version {
		return ErrVersionConflict
	}
	next := m.version + 1
	snap.Version = next
	data, err := encodeSnapshot(snap)
	if err != nil {
		snap.Version = next - 1
		return err
	}
	m.data = data
	m.version = next
	return nil
}
