package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dputra/mailroom/internal/common"
)

// InMemoryRepository is a mutex-guarded map implementation of Repository.
// It backs tests and DSN-less development runs; values are kept as their
// JSON serialization so Get/Set round-trip identically to Postgres.
type InMemoryRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewInMemoryRepository creates an empty in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{data: make(map[string][]byte)}
}

func (r *InMemoryRepository) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = data
	return nil
}

func (r *InMemoryRepository) SetAll(_ context.Context, entries []Entry) error {
	// Marshal everything up front so a bad value leaves the store untouched.
	serialized := make(map[string][]byte, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e.Value)
		if err != nil {
			return fmt.Errorf("marshal value: %w", err)
		}
		serialized[e.Key] = data
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range serialized {
		r.data[k] = v
	}
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, key string, dest any) error {
	r.mu.RLock()
	data, ok := r.data[key]
	r.mu.RUnlock()

	if !ok {
		return common.ErrorNotFound
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}
	return nil
}

func (r *InMemoryRepository) GetByPrefix(_ context.Context, prefix string) ([]json.RawMessage, error) {
	r.mu.RLock()
	keys := make([]string, 0, len(r.data))
	for k := range r.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	result := make([]json.RawMessage, 0, len(keys))
	for _, k := range keys {
		v := make([]byte, len(r.data[k]))
		copy(v, r.data[k])
		result = append(result, json.RawMessage(v))
	}
	r.mu.RUnlock()

	if len(result) == 0 {
		return nil, nil
	}
	return result, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, key)
	return nil
}
