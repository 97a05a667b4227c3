package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps artifacts in process memory. When a limit is set the
// oldest artifacts are dropped once it is exceeded.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	order []string
	limit int
}

type memoryItem struct {
	data     []byte
	artifact Artifact
}

// NewMemoryStore creates an in-memory store holding at most limit artifacts.
// A limit of zero or less keeps everything.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryItem),
		limit: limit,
	}
}

// Save stores a private copy of data.
func (s *MemoryStore) Save(ctx context.Context, data []byte, mimeType string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	a := Artifact{ID: newID(), MimeType: mimeType, Size: len(buf)}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[a.ID] = memoryItem{data: buf, artifact: a}
	s.order = append(s.order, a.ID)
	for s.limit > 0 && len(s.order) > s.limit {
		delete(s.items, s.order[0])
		s.order = s.order[1:]
	}
	return &a, nil
}

// Open returns the stored bytes. The caller must not modify them.
func (s *MemoryStore) Open(ctx context.Context, id string) ([]byte, *Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	item, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	a := item.artifact
	return item.data, &a, nil
}

// Exists reports whether id is stored.
func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok, nil
}

// count returns the number of stored artifacts.
func (s *MemoryStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
