package service

import "errors"

var (
	// ErrUnauthorized means the presented API key does not resolve to an
	// active key. Decode failures and revoked keys are indistinguishable.
	ErrUnauthorized = errors.New("invalid API key")

	// ErrInvalidToken is returned when an admin operation is handed a token
	// that cannot be decoded.
	ErrInvalidToken = errors.New("invalid token")

	ErrBadRequest = errors.New("invalid request")
)
