package docstore

import (
	"context"
	"encoding/json"
	"sync"

	"backoffice-service/internal/models"
)

// Memory is an in-memory Client used by tests and local development.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]json.RawMessage
}

// NewMemory creates an empty in-memory document store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]json.RawMessage)}
}

func (m *Memory) Get(ctx context.Context, path string, out interface{}) error {
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.collections[collection][key]
	if !ok {
		return &models.NotFoundError{Path: path}
	}
	return json.Unmarshal(raw, out)
}

func (m *Memory) Set(ctx context.Context, path string, doc interface{}) error {
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return &models.RemoteStoreError{Op: "set", Path: path, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]json.RawMessage)
	}
	m.collections[collection][key] = raw
	return nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections[collection], key)
	return nil
}

func (m *Memory) List(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make(map[string]json.RawMessage, len(m.collections[collection]))
	for key, raw := range m.collections[collection] {
		docs[key] = raw
	}
	return docs, nil
}
