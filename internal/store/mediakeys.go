package store

import (
	"context"
	"fmt"
	"strings"
)

// MediaKeyStore keeps third-party credentials owned by API keys. Ownership
// lives only in the field name, "{jti}:{label}".
type MediaKeyStore struct {
	hs HashStore
}

func NewMediaKeyStore(hs HashStore) *MediaKeyStore {
	return &MediaKeyStore{hs: hs}
}

// MediaKeyID composes the field name for label owned by jti.
func MediaKeyID(jti, label string) string {
	return jti + ":" + label
}

func (ms *MediaKeyStore) Put(ctx context.Context, jti, label, value string) error {
	if _, err := ms.hs.HSet(ctx, NamespaceMediaKeys, MediaKeyID(jti, label), value); err != nil {
		return fmt.Errorf("store media key: %w", err)
	}
	return nil
}

func (ms *MediaKeyStore) Get(ctx context.Context, jti, label string) (string, bool, error) {
	v, ok, err := ms.hs.HGet(ctx, NamespaceMediaKeys, MediaKeyID(jti, label))
	if err != nil {
		return "", false, fmt.Errorf("load media key: %w", err)
	}
	return v, ok, nil
}

// List returns the labels and values owned by jti.
//
// It reads the whole namespace and filters by prefix, so cost grows with
// the media keys of every owner.
// TODO: keep a per-owner hash ("media_keys:{jti}") once owners number in the thousands.
func (ms *MediaKeyStore) List(ctx context.Context, jti string) (map[string]string, error) {
	all, err := ms.hs.HGetAll(ctx, NamespaceMediaKeys)
	if err != nil {
		return nil, fmt.Errorf("list media keys: %w", err)
	}
	prefix := MediaKeyID(jti, "")
	out := make(map[string]string)
	for field, value := range all {
		if label, ok := strings.CutPrefix(field, prefix); ok {
			out[label] = value
		}
	}
	return out, nil
}

// Delete removes label for jti and reports whether it existed.
func (ms *MediaKeyStore) Delete(ctx context.Context, jti, label string) (bool, error) {
	removed, err := ms.hs.HDel(ctx, NamespaceMediaKeys, MediaKeyID(jti, label))
	if err != nil {
		return false, fmt.Errorf("delete media key: %w", err)
	}
	return removed, nil
}
