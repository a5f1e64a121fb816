// Package publish relays articles to external blogging platforms.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Platform identifies a supported publishing target.
type Platform string

const (
	PlatformDevTo  Platform = "devto"
	PlatformMedium Platform = "medium"
)

// Platforms lists every supported target.
var Platforms = []Platform{PlatformDevTo, PlatformMedium}

var (
	ErrUnsupported       = errors.New("unsupported platform")
	ErrMissingCredential = errors.New("credential not found")

	// ErrTransport wraps failures to reach a platform at all.
	ErrTransport = errors.New("request failed")
)

// ParsePlatform maps an identifier from a request to a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformDevTo, PlatformMedium:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, s)
	}
}

func (p Platform) String() string {
	return string(p)
}

// DisplayName is used in user-facing messages.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformDevTo:
		return "DevTo"
	case PlatformMedium:
		return "Medium"
	default:
		return string(p)
	}
}

// MediaKeyLabel is the media key label holding this platform's credential.
func (p Platform) MediaKeyLabel() string {
	switch p {
	case PlatformDevTo:
		return "DEV_TO_APIKEY"
	case PlatformMedium:
		return "MEDIUM_APIKEY"
	default:
		return ""
	}
}

// Request is the article to publish.
type Request struct {
	Title   string
	Content string
	Tags    []string
	IsDraft bool
}

// Result is the outcome for one requested platform.
type Result struct {
	Platform string          `json:"platform"`
	Success  bool            `json:"success"`
	Article  json.RawMessage `json:"article,omitempty"`
	Error    string          `json:"error,omitempty"`

	Elapsed time.Duration `json:"-"`
}

// PlatformError is a non-2xx answer from a platform. Its message is the
// platform's own error body so callers can see why it was rejected.
type PlatformError struct {
	Platform Platform
	Status   int
	Body     string
}

func (e *PlatformError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("%s responded with status %d", e.Platform, e.Status)
}

// MissingCredentialError reports that no credential is available for a
// platform. It matches ErrMissingCredential.
type MissingCredentialError struct {
	Platform Platform
	Reason   string
}

func (e *MissingCredentialError) Error() string {
	return e.Platform.DisplayName() + " API key " + e.Reason
}

func (e *MissingCredentialError) Is(target error) bool {
	return target == ErrMissingCredential
}

// CredentialResolver supplies the API credential for a platform.
type CredentialResolver interface {
	Credential(ctx context.Context, p Platform) (string, error)
}

// MediaKeyGetter reads one media key of one owner.
type MediaKeyGetter interface {
	Get(ctx context.Context, jti, label string) (string, bool, error)
}

// KeyCredentials resolves credentials from the media keys of one API key.
type KeyCredentials struct {
	MediaKeys MediaKeyGetter
	JTI       string
}

func (kc KeyCredentials) Credential(ctx context.Context, p Platform) (string, error) {
	v, ok, err := kc.MediaKeys.Get(ctx, kc.JTI, p.MediaKeyLabel())
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return "", &MissingCredentialError{Platform: p, Reason: "not found"}
	}
	return v, nil
}

// StaticCredentials resolves credentials from process configuration.
type StaticCredentials struct {
	DevTo  string
	Medium string
}

func (sc StaticCredentials) Credential(_ context.Context, p Platform) (string, error) {
	var v string
	switch p {
	case PlatformDevTo:
		v = sc.DevTo
	case PlatformMedium:
		v = sc.Medium
	}
	if v == "" {
		return "", &MissingCredentialError{Platform: p, Reason: "not configured"}
	}
	return v, nil
}
