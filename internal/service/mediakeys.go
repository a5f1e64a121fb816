package service

import (
	"context"
	"fmt"
	"strings"

	"keyrelay/internal/store"
)

// MediaKeys manages the third-party credentials owned by one API key. The
// caller's key has already been authenticated; jti comes from it.
type MediaKeys struct {
	store *store.MediaKeyStore
}

func NewMediaKeys(ms *store.MediaKeyStore) *MediaKeys {
	return &MediaKeys{store: ms}
}

func (m *MediaKeys) Put(ctx context.Context, jti, label, value string) error {
	if strings.TrimSpace(label) == "" || value == "" {
		return fmt.Errorf("%w: key and value are required", ErrBadRequest)
	}
	return m.store.Put(ctx, jti, label, value)
}

func (m *MediaKeys) List(ctx context.Context, jti string) (map[string]string, error) {
	return m.store.List(ctx, jti)
}

func (m *MediaKeys) Get(ctx context.Context, jti, label string) (string, bool, error) {
	return m.store.Get(ctx, jti, label)
}

// Delete removes label and reports whether it existed.
func (m *MediaKeys) Delete(ctx context.Context, jti, label string) (bool, error) {
	if strings.TrimSpace(label) == "" {
		return false, fmt.Errorf("%w: key is required", ErrBadRequest)
	}
	return m.store.Delete(ctx, jti, label)
}
