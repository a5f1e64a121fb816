// Package token encodes and decodes the signed API keys handed out by the
// service.
//
// Tokens are HS256 JWTs. Decoding deliberately skips signature
// verification: a token is trusted only once its jti has been found in the
// active key store, never on the strength of the decode alone.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultLimit     = 100
	DefaultTimeframe = 60
)

// ErrMalformed is returned for anything that does not decode to a payload
// with a jti.
var ErrMalformed = errors.New("malformed token")

// Payload is the decoded body of an API key.
type Payload struct {
	JTI       string `json:"jti"`
	IssuedAt  int64  `json:"iat"`
	Limit     int    `json:"limit"`
	Timeframe int    `json:"timeframe"`
}

// NewPayload returns a payload for jti issued at now with the default
// rate-limit metadata.
func NewPayload(jti string, now time.Time) Payload {
	return Payload{
		JTI:       jti,
		IssuedAt:  now.Unix(),
		Limit:     DefaultLimit,
		Timeframe: DefaultTimeframe,
	}
}

type claims struct {
	jwt.RegisteredClaims
	Limit     int `json:"limit"`
	Timeframe int `json:"timeframe"`
}

// Codec signs payloads with a pre-shared secret.
type Codec struct {
	secret []byte
}

// NewCodec returns a codec signing with secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is required")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Encode signs p and returns the compact token.
func (c *Codec) Encode(p Payload) (string, error) {
	if p.JTI == "" {
		return "", errors.New("token payload requires a jti")
	}
	cl := &claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       p.JTI,
			IssuedAt: jwt.NewNumericDate(time.Unix(p.IssuedAt, 0)),
		},
		Limit:     p.Limit,
		Timeframe: p.Timeframe,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode parses the payload segment of tok without verifying its signature.
// The header is not inspected, so its alg may be missing or unknown.
func Decode(tok string) (Payload, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return Payload{}, fmt.Errorf("%w: token contains %d segments", ErrMalformed, len(parts))
	}
	raw, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: payload segment: %v", ErrMalformed, err)
	}
	var cl claims
	if err := json.Unmarshal(raw, &cl); err != nil {
		return Payload{}, fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}
	if cl.ID == "" {
		return Payload{}, fmt.Errorf("%w: missing jti", ErrMalformed)
	}

	p := Payload{
		JTI:       cl.ID,
		Limit:     cl.Limit,
		Timeframe: cl.Timeframe,
	}
	if cl.IssuedAt != nil {
		p.IssuedAt = cl.IssuedAt.Unix()
	}
	return p, nil
}
