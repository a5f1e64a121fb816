package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/pool"
)

// KeyStore keeps issued API keys: the signed token under its jti in the
// active namespace and the display name under the same jti in the names
// namespace.
type KeyStore struct {
	hs HashStore
}

func NewKeyStore(hs HashStore) *KeyStore {
	return &KeyStore{hs: hs}
}

// ListAll returns every active token and every stored name, both keyed by
// jti. Names may include orphans whose token is gone.
func (ks *KeyStore) ListAll(ctx context.Context) (tokens, names map[string]string, err error) {
	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		tokens, err = ks.hs.HGetAll(ctx, NamespaceAPIKeys)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		names, err = ks.hs.HGetAll(ctx, NamespaceKeyNames)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, nil, fmt.Errorf("list keys: %w", err)
	}
	return tokens, names, nil
}

// Create stores a freshly issued token and its name. If the name cannot be
// written the token entry is removed again, but the call still fails.
func (ks *KeyStore) Create(ctx context.Context, jti, token, name string) error {
	if _, err := ks.hs.HSet(ctx, NamespaceAPIKeys, jti, token); err != nil {
		return fmt.Errorf("store key %s: %w", jti, err)
	}
	if _, err := ks.hs.HSet(ctx, NamespaceKeyNames, jti, name); err != nil {
		if _, rbErr := ks.hs.HDel(ctx, NamespaceAPIKeys, jti); rbErr != nil {
			slog.Warn("rollback of key entry failed", "jti", jti, "error", rbErr)
		}
		return fmt.Errorf("store key name %s: %w", jti, err)
	}
	return nil
}

// Rename overwrites the display name of jti. It reports whether a name
// existed before.
func (ks *KeyStore) Rename(ctx context.Context, jti, name string) (bool, error) {
	created, err := ks.hs.HSet(ctx, NamespaceKeyNames, jti, name)
	if err != nil {
		return false, fmt.Errorf("rename key %s: %w", jti, err)
	}
	return !created, nil
}

// Revoke deletes both entries for jti. It reports true only when each
// namespace held exactly the one entry that was removed.
func (ks *KeyStore) Revoke(ctx context.Context, jti string) (bool, error) {
	keyRemoved, keyErr := ks.hs.HDel(ctx, NamespaceAPIKeys, jti)
	nameRemoved, nameErr := ks.hs.HDel(ctx, NamespaceKeyNames, jti)
	if err := errors.Join(keyErr, nameErr); err != nil {
		return false, fmt.Errorf("revoke key %s: %w", jti, err)
	}
	return keyRemoved && nameRemoved, nil
}

// Exists reports whether jti is an active key.
func (ks *KeyStore) Exists(ctx context.Context, jti string) (bool, error) {
	ok, err := ks.hs.HExists(ctx, NamespaceAPIKeys, jti)
	if err != nil {
		return false, fmt.Errorf("check key %s: %w", jti, err)
	}
	return ok, nil
}
