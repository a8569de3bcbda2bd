package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryStore is the volatile LRU tier.
type MemoryStore struct {
	lru *lru.Cache[string, []byte]
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(size int) (*MemoryStore, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{lru: c}, nil
}

func (m *MemoryStore) Get(id string) ([]byte, bool) {
	return m.lru.Get(id)
}

func (m *MemoryStore) Put(id string, data []byte) error {
	m.lru.Add(id, data)
	return nil
}

func (m *MemoryStore) Contains(id string) bool {
	return m.lru.Contains(id)
}

func (m *MemoryStore) Clear() error {
	m.lru.Purge()
	return nil
}

// Len returns the number of entries currently held.
func (m *MemoryStore) Len() int {
	return m.lru.Len()
}
