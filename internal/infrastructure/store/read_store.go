package store

import (
	"maps"
	"slices"
	"sync"
)

type collection map[string]any

// ReadStore keeps read models in memory. cmd/api uses it with the memory
// event store; tests use it everywhere else.
type ReadStore struct {
	mu          sync.RWMutex
	collections map[string]collection
}

func NewReadStore() *ReadStore {
	return &ReadStore{collections: make(map[string]collection)}
}

func (rs *ReadStore) Set(name, id string, data any) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	c, ok := rs.collections[name]
	if !ok {
		c = make(collection)
		rs.collections[name] = c
	}
	c[id] = data
}

func (rs *ReadStore) Get(name, id string) (any, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	data, ok := rs.collections[name][id]
	return data, ok
}

func (rs *ReadStore) GetAll(name string) []any {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	c := rs.collections[name]
	if len(c) == 0 {
		return nil
	}
	items := make([]any, 0, len(c))
	for _, id := range slices.Sorted(maps.Keys(c)) {
		items = append(items, c[id])
	}
	return items
}
