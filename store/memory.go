// Package store provides badgekit.LayoutStore implementations: an in-memory
// map, a directory of JSON files that can be watched for external edits,
// and a SQLite table.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/phanxgames/badgekit"
)

// MemoryStore keeps encoded layouts in memory. Layouts go through the same
// JSON encoding as the other stores, so partial and malformed records behave
// identically.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Load implements badgekit.LayoutStore.
func (m *MemoryStore) Load(ctx context.Context, badgeID string) (badgekit.PersistedLayout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	raw, ok := m.data[badgeID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", badgekit.ErrLayoutNotFound, badgeID)
	}
	return badgekit.DecodeLayout(raw)
}

// Save implements badgekit.LayoutStore.
func (m *MemoryStore) Save(ctx context.Context, badgeID string, l badgekit.Layout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := badgekit.EncodeLayout(l)
	if err != nil {
		return err
	}
	m.PutRaw(badgeID, raw)
	return nil
}

// PutRaw stores raw layout bytes as-is, valid or not.
func (m *MemoryStore) PutRaw(badgeID string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[badgeID] = append([]byte(nil), raw...)
}

// Raw returns the stored bytes for badgeID.
func (m *MemoryStore) Raw(badgeID string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.data[badgeID]
	return raw, ok
}
