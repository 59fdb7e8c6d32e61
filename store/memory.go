package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process store used by tests and local runs.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]map[string]any)}
}

// Seed inserts a document without the create-must-not-exist check.
func (m *Memory) Seed(collection, docID string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]map[string]any)
	}
	m.collections[collection][docID] = cloneDoc(data)
}

func (m *Memory) Get(_ context.Context, collection, docID string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.collections[collection][docID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (m *Memory) Exists(_ context.Context, collection, docID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[collection][docID]
	return ok, nil
}

func (m *Memory) Create(_ context.Context, collection, docID string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection][docID]; ok {
		return fmt.Errorf("document %s/%s already exists", collection, docID)
	}
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]map[string]any)
	}
	m.collections[collection][docID] = cloneDoc(data)
	return nil
}

func (m *Memory) Set(_ context.Context, collection, docID string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]map[string]any)
	}
	m.collections[collection][docID] = cloneDoc(data)
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections[collection], docID)
	return nil
}

func (m *Memory) ListByField(_ context.Context, collection, field string, value any) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []Document
	for id, doc := range m.collections[collection] {
		if doc[field] == value {
			docs = append(docs, Document{ID: id, Data: cloneDoc(doc)})
		}
	}
	// map iteration order is random, callers expect stable output
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
