package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"keyrelay/internal/store"
	"keyrelay/internal/token"
)

const (
	DefaultKeyName  = "New API Key"
	UnnamedKeyLabel = "Unnamed Key"
)

// KeyDetails is a decoded key payload with its display name attached.
type KeyDetails struct {
	JTI       string `json:"jti"`
	IssuedAt  int64  `json:"iat"`
	Limit     int    `json:"limit"`
	Timeframe int    `json:"timeframe"`
	Name      string `json:"name"`
}

// ListedKey pairs a stored token with its decoded details.
type ListedKey struct {
	Token   string
	Details KeyDetails
}

// Issued is returned once, when a key is created.
type Issued struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	JTI   string `json:"jti"`
}

// Keys manages the lifecycle of API keys. Admin authorization happens
// before any of these methods are reached.
type Keys struct {
	store  *store.KeyStore
	codec  *token.Codec
	now    func() time.Time
	newJTI func() string
}

func NewKeys(ks *store.KeyStore, codec *token.Codec) *Keys {
	return &Keys{
		store:  ks,
		codec:  codec,
		now:    time.Now,
		newJTI: uuid.NewString,
	}
}

// Issue creates, signs and stores a new key. The plaintext token is only
// returned here.
func (k *Keys) Issue(ctx context.Context, name string) (Issued, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultKeyName
	}
	payload := token.NewPayload(k.newJTI(), k.now())

	signed, err := k.codec.Encode(payload)
	if err != nil {
		return Issued{}, err
	}
	if err := k.store.Create(ctx, payload.JTI, signed, name); err != nil {
		return Issued{}, err
	}

	slog.Info("api key issued", "jti", payload.JTI, "name", name)
	return Issued{Token: signed, Name: name, JTI: payload.JTI}, nil
}

// List returns every active key ordered by issue time.
func (k *Keys) List(ctx context.Context) ([]ListedKey, error) {
	tokens, names, err := k.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ListedKey, 0, len(tokens))
	for jti, tok := range tokens {
		p, err := token.Decode(tok)
		if err != nil {
			slog.Warn("skipping undecodable stored key", "jti", jti, "error", err)
			continue
		}
		name := names[jti]
		if name == "" {
			name = UnnamedKeyLabel
		}
		out = append(out, ListedKey{
			Token: tok,
			Details: KeyDetails{
				JTI:       p.JTI,
				IssuedAt:  p.IssuedAt,
				Limit:     p.Limit,
				Timeframe: p.Timeframe,
				Name:      name,
			},
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Details.IssuedAt != out[j].Details.IssuedAt {
			return out[i].Details.IssuedAt < out[j].Details.IssuedAt
		}
		return out[i].Details.JTI < out[j].Details.JTI
	})
	return out, nil
}

// Rename sets the display name for the key behind tok. The key does not
// have to be active. It reports whether a name was replaced.
func (k *Keys) Rename(ctx context.Context, tok, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, fmt.Errorf("%w: name is required", ErrBadRequest)
	}
	p, err := token.Decode(tok)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return k.store.Rename(ctx, p.JTI, name)
}

// Revoke deletes a key given either its token or its bare jti.
func (k *Keys) Revoke(ctx context.Context, tokenOrJTI string) (bool, error) {
	jti, err := resolveJTI(tokenOrJTI)
	if err != nil {
		return false, err
	}
	done, err := k.store.Revoke(ctx, jti)
	if err != nil {
		return false, err
	}
	slog.Info("api key revoked", "jti", jti, "done", done)
	return done, nil
}

// Authenticate resolves a presented API key to its payload. Only the
// presence of the jti in the active namespace is checked; the signature is
// not.
func (k *Keys) Authenticate(ctx context.Context, tok string) (token.Payload, error) {
	if tok == "" {
		return token.Payload{}, ErrUnauthorized
	}
	p, err := token.Decode(tok)
	if err != nil {
		return token.Payload{}, ErrUnauthorized
	}
	ok, err := k.store.Exists(ctx, p.JTI)
	if err != nil {
		return token.Payload{}, err
	}
	if !ok {
		return token.Payload{}, ErrUnauthorized
	}
	return p, nil
}

func resolveJTI(tokenOrJTI string) (string, error) {
	v := strings.TrimSpace(tokenOrJTI)
	if v == "" {
		return "", fmt.Errorf("%w: key is required", ErrBadRequest)
	}
	if !strings.Contains(v, ".") {
		return v, nil
	}
	p, err := token.Decode(v)
	if err != nil {
		if errors.Is(err, token.ErrMalformed) {
			return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return "", err
	}
	return p.JTI, nil
}
