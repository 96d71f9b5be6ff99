package objectstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dputra/mailroom/internal/common"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore is an in-memory Store used by tests. Signed URLs are
// synthetic but unique per object and carry the requested expiry.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memoryObject
}

// NewMemoryStore creates an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (m *MemoryStore) Upload(_ context.Context, name string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[name]; ok {
		return common.ErrorAlreadyExists
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[name] = memoryObject{data: stored, contentType: contentType}
	return nil
}

func (m *MemoryStore) SignedURL(_ context.Context, name string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[name]; !ok {
		return "", common.ErrorNotFound
	}
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("memory://evidence/%s?expires=%d", name, expires), nil
}

// Len reports the number of stored objects, for test assertions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
