package store

import (
	"context"
	"sync"
)

// MemoryStore is a process-local HashStore for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

func (ms *MemoryStore) HSet(_ context.Context, namespace, field, value string) (bool, error) {
	if namespace == "" {
		return false, errEmptyNamespace
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	h, ok := ms.data[namespace]
	if !ok {
		h = make(map[string]string)
		ms.data[namespace] = h
	}
	_, existed := h[field]
	h[field] = value
	return !existed, nil
}

func (ms *MemoryStore) HGet(_ context.Context, namespace, field string) (string, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	v, ok := ms.data[namespace][field]
	return v, ok, nil
}

func (ms *MemoryStore) HGetAll(_ context.Context, namespace string) (map[string]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make(map[string]string, len(ms.data[namespace]))
	for k, v := range ms.data[namespace] {
		out[k] = v
	}
	return out, nil
}

func (ms *MemoryStore) HDel(_ context.Context, namespace, field string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	h, ok := ms.data[namespace]
	if !ok {
		return false, nil
	}
	if _, ok := h[field]; !ok {
		return false, nil
	}
	delete(h, field)
	if len(h) == 0 {
		delete(ms.data, namespace)
	}
	return true, nil
}

func (ms *MemoryStore) HExists(_ context.Context, namespace, field string) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	_, ok := ms.data[namespace][field]
	return ok, nil
}

func (ms *MemoryStore) Ping(context.Context) error { return nil }

func (ms *MemoryStore) Close() error { return nil }
