package token

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestNewCodecRequiresSecret(t *testing.T) {
	_, err := NewCodec("")
	require.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	codec, err := NewCodec("top-secret")
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	p := NewPayload("key-1", now)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, DefaultTimeframe, p.Timeframe)

	tok, err := codec.Encode(p)
	require.NoError(t, err)
	assert.Len(t, strings.Split(tok, "."), 3)

	got, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestEncodeSignsWithHS256(t *testing.T) {
	codec, err := NewCodec("top-secret")
	require.NoError(t, err)

	tok, err := codec.Encode(NewPayload("key-2", time.Now()))
	require.NoError(t, err)

	parsed, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
		return []byte("top-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
}

func TestEncodeRequiresJTI(t *testing.T) {
	codec, err := NewCodec("top-secret")
	require.NoError(t, err)

	_, err = codec.Encode(Payload{Limit: 1})
	require.Error(t, err)
}

func TestDecodeDoesNotVerifySignature(t *testing.T) {
	other, err := NewCodec("a-different-secret")
	require.NoError(t, err)
	tok, err := other.Encode(NewPayload("foreign", time.Unix(10, 0)))
	require.NoError(t, err)

	got, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, "foreign", got.JTI)

	forged := segment(`{"alg":"HS256","typ":"JWT"}`) + "." +
		segment(`{"jti":"forged","iat":5,"limit":7,"timeframe":9}`) + ".not-a-signature"
	got, err = Decode(forged)
	require.NoError(t, err)
	assert.Equal(t, Payload{JTI: "forged", IssuedAt: 5, Limit: 7, Timeframe: 9}, got)
}

func TestDecodeIgnoresHeader(t *testing.T) {
	body := segment(`{"jti":"k1","iat":3,"limit":100,"timeframe":60}`)
	for name, header := range map[string]string{
		"no alg":      `{"typ":"JWT"}`,
		"unknown alg": `{"alg":"XX1"}`,
		"not json":    `garbage`,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := Decode(segment(header) + "." + body + ".sig")
			require.NoError(t, err)
			assert.Equal(t, Payload{JTI: "k1", IssuedAt: 3, Limit: 100, Timeframe: 60}, got)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"one segment":   "abc",
		"bad base64":    "a.%%%.c",
		"bad json":      segment(`{"alg":"HS256"}`) + "." + segment("not json") + ".sig",
		"missing jti":   segment(`{"alg":"HS256"}`) + "." + segment(`{"iat":1}`) + ".sig",
		"numeric jti":   segment(`{"alg":"HS256"}`) + "." + segment(`{"jti":12}`) + ".sig",
		"two segments":  segment(`{"alg":"HS256"}`) + "." + segment(`{"jti":"x"}`),
		"four segments": segment(`{"alg":"HS256"}`) + "." + segment(`{"jti":"x"}`) + ".sig.extra",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(tok)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}
