package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stevemurr/poi-editor-server/geojson"
)

// MemoryStore keeps the collection in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save keeps the encoded collection; Load decodes a fresh copy.
func (m *MemoryStore) Save(_ context.Context, c geojson.Collection) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = b
	return nil
}

func (m *MemoryStore) Load(_ context.Context) (*geojson.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return nil, nil
	}
	var c geojson.Collection
	if err := json.Unmarshal(m.data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

func (m *MemoryStore) HasData(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data != nil, nil
}
