package ledger

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process Ledger. It is useful for tests and as a stand-in
// when no external ledger is configured.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]CollectionInfo
}

var _ Ledger = (*Memory)(nil)

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]CollectionInfo)}
}

// CreateCollection implements Ledger. Existing entries are replaced.
func (m *Memory) CreateCollection(ctx context.Context, info CollectionInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[info.ID] = info

	return nil
}

// UpdateCollection implements Ledger.
func (m *Memory) UpdateCollection(ctx context.Context, update CollectionUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.entries[update.ID]
	if !ok {
		return ErrNotFound
	}

	m.entries[update.ID] = update.Apply(info)

	return nil
}

// DeleteCollection implements Ledger. Unknown IDs are ignored.
func (m *Memory) DeleteCollection(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, id)

	return nil
}

// ListCollections implements Ledger. IDs are sorted.
func (m *Memory) ListCollections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids, nil
}

// GetCollection implements Ledger.
func (m *Memory) GetCollection(ctx context.Context, id string) (CollectionInfo, error) {
	if err := ctx.Err(); err != nil {
		return CollectionInfo{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.entries[id]
	if !ok {
		return CollectionInfo{}, ErrNotFound
	}

	return info, nil
}
