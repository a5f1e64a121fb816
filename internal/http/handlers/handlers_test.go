package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"keyrelay/internal/config"
	"keyrelay/internal/http/respond"
	"keyrelay/internal/publish"
	"keyrelay/internal/service"
	"keyrelay/internal/store"
	"keyrelay/internal/token"
)

const (
	adminPass   = "admin-pass"
	publishPass = "publish-pass"
)

type testServer struct {
	handler fasthttp.RequestHandler

	mu          sync.Mutex
	devtoKeys   []string
	devtoTitles []string
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithStore(t, nil)
}

func newTestServerWithStore(t *testing.T, pinger Pinger) *testServer {
	t.Helper()
	s := &testServer{}

	devto := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Article struct {
				Title string `json:"title"`
			} `json:"article"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		s.mu.Lock()
		s.devtoKeys = append(s.devtoKeys, r.Header.Get("api-key"))
		s.devtoTitles = append(s.devtoTitles, body.Article.Title)
		s.mu.Unlock()

		if body.Article.Title == "reject" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"error":"Title has already been used","status":422}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":7,"title":"`+body.Article.Title+`"}`)
	}))
	t.Cleanup(devto.Close)

	cfg := &config.Config{
		AdminSecret:   config.Secret(adminPass),
		PublishSecret: config.Secret(publishPass),
		DevToAPIKey:   "shared-devto",
	}
	codec, err := token.NewCodec("test-secret")
	require.NoError(t, err)

	hs := store.NewMemoryStore()
	if pinger == nil {
		pinger = hs
	}
	reg := prometheus.NewRegistry()

	s.handler = Handler(Deps{
		Config:    cfg,
		Store:     pinger,
		Keys:      service.NewKeys(store.NewKeyStore(hs), codec),
		MediaKeys: service.NewMediaKeys(store.NewMediaKeyStore(hs)),
		Publisher: publish.NewPublisher(publish.NewClient(), publish.Endpoints{DevTo: devto.URL, Medium: devto.URL}),
		Metrics:   InitPrometheusMetrics(reg),
		Gatherer:  reg,
	})
	return s
}

type response struct {
	status int
	body   []byte
}

func (r response) json(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(r.body, &out), string(r.body))
	return out
}

func (r response) errorMessage(t *testing.T) string {
	t.Helper()
	var body respond.ErrorBody
	require.NoError(t, json.Unmarshal(r.body, &body), string(r.body))
	return body.Error.Message
}

func (s *testServer) do(method, uri string, headers map[string]string, body string) response {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != "" {
		req.Header.SetContentType("application/json")
		req.SetBodyString(body)
	}

	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)
	s.handler(&ctx)
	return response{status: ctx.Response.StatusCode(), body: append([]byte(nil), ctx.Response.Body()...)}
}

func admin() map[string]string {
	return map[string]string{"X-Login-Passwd": adminPass}
}

func withKey(tok string) map[string]string {
	return map[string]string{"X-Api-Key": tok}
}

// issue creates a key through the admin API and returns its token and jti.
func (s *testServer) issue(t *testing.T, name string) (string, string) {
	t.Helper()
	resp := s.do(fasthttp.MethodPut, "/keys", admin(), `{"name":"`+name+`"}`)
	require.Equal(t, fasthttp.StatusOK, resp.status, string(resp.body))
	body := resp.json(t)
	return body["token"].(string), body["jti"].(string)
}

func TestKeysRequireAdminSecret(t *testing.T) {
	s := newTestServer(t)

	for _, headers := range []map[string]string{nil, {"X-Login-Passwd": "nope"}} {
		resp := s.do(fasthttp.MethodGet, "/keys", headers, "")
		assert.Equal(t, fasthttp.StatusUnauthorized, resp.status)
		assert.Equal(t, "Unauthorized", resp.errorMessage(t))
	}

	resp := s.do(fasthttp.MethodPut, "/keys", nil, `{"name":"x"}`)
	assert.Equal(t, fasthttp.StatusUnauthorized, resp.status)

	resp = s.do(fasthttp.MethodGet, "/keys", admin(), "")
	require.Equal(t, fasthttp.StatusOK, resp.status)
	assert.Empty(t, resp.json(t)["apiKeys"], "rejected issue must not have stored anything")
}

func TestKeyLifecycle(t *testing.T) {
	s := newTestServer(t)

	tok, jti := s.issue(t, "ci")

	resp := s.do(fasthttp.MethodGet, "/keys", admin(), "")
	require.Equal(t, fasthttp.StatusOK, resp.status)
	var listed struct {
		APIKeys [][2]json.RawMessage `json:"apiKeys"`
	}
	require.NoError(t, json.Unmarshal(resp.body, &listed))
	require.Len(t, listed.APIKeys, 1)

	var gotTok string
	require.NoError(t, json.Unmarshal(listed.APIKeys[0][0], &gotTok))
	assert.Equal(t, tok, gotTok)
	var details service.KeyDetails
	require.NoError(t, json.Unmarshal(listed.APIKeys[0][1], &details))
	assert.Equal(t, jti, details.JTI)
	assert.Equal(t, "ci", details.Name)
	assert.Equal(t, token.DefaultLimit, details.Limit)
	assert.Equal(t, token.DefaultTimeframe, details.Timeframe)

	resp = s.do(fasthttp.MethodPatch, "/keys", admin(), `{"key":"`+tok+`","name":"deploy"}`)
	require.Equal(t, fasthttp.StatusOK, resp.status)
	assert.Equal(t, map[string]any{"done": true, "message": "Key name updated successfully"}, resp.json(t))

	resp = s.do(fasthttp.MethodDelete, "/keys?key="+tok, admin(), "")
	require.Equal(t, fasthttp.StatusOK, resp.status)
	assert.Equal(t, map[string]any{"done": true}, resp.json(t))

	resp = s.do(fasthttp.MethodDelete, "/keys?key="+jti, admin(), "")
	require.Equal(t, fasthttp.StatusOK, resp.status)
	assert.Equal(t, map[string]any{"done": false}, resp.json(t))

	resp = s.do(fasthttp.MethodGet, "/keys", admin(), "")
	assert.Empty(t, resp.json(t)["apiKeys"])
}

func TestIssueKeyDefaultsAndBadBody(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(fasthttp.MethodPut, "/keys", admin(), "")
	require.Equal(t, fasthttp.StatusOK, resp.status)
	body := resp.json(t)
	assert.Equal(t, true, body["done"])
	assert.Equal(t, service.DefaultKeyName, body["name"])
	assert.NotEmpty(t, body["token"])

	resp = s.do(fasthttp.MethodPut, "/keys", admin(), `{"name":`)
	assert.Equal(t, fasthttp.StatusBadRequest, resp.status)
}

func TestRenameAndRevokeValidation(t *testing.T) {
	s := newTestServer(t)
	tok, _ := s.issue(t, "ci")

	cases := []struct {
		name   string
		method string
		uri    string
		body   string
	}{
		{"rename without name", fasthttp.MethodPatch, "/keys", `{"key":"` + tok + `"}`},
		{"rename without key", fasthttp.MethodPatch, "/keys", `{"name":"x"}`},
		{"rename malformed token", fasthttp.MethodPatch, "/keys", `{"key":"a.b.c","name":"x"}`},
		{"rename wrong types", fasthttp.MethodPatch, "/keys", `{"key":1,"name":"x"}`},
		{"revoke without key", fasthttp.MethodDelete, "/keys", ""},
		{"revoke malformed token", fasthttp.MethodDelete, "/keys?key=not.a.token", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := s.do(tc.method, tc.uri, admin(), tc.body)
			assert.Equal(t, fasthttp.StatusBadRequest, resp.status)
			assert.Equal(t, "Invalid request", resp.errorMessage(t))
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(fasthttp.MethodPost, "/keys", admin(), "")
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, resp.status)
	assert.Equal(t, "Method not allowed", resp.errorMessage(t))

	resp = s.do(fasthttp.MethodGet, "/publish/devto", nil, "")
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, resp.status)
}

func TestMediaKeysRequireAPIKey(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(fasthttp.MethodGet, "/mediakeys", nil, "")
	assert.Equal(t, fasthttp.StatusUnauthorized, resp.status)
	assert.Equal(t, "API key required", resp.errorMessage(t))

	resp = s.do(fasthttp.MethodGet, "/mediakeys", withKey("garbage"), "")
	assert.Equal(t, fasthttp.StatusUnauthorized, resp.status)
	assert.Equal(t, "Invalid API key", resp.errorMessage(t))

	// The admin secret is no substitute for an API key.
	resp = s.do(fasthttp.MethodGet, "/mediakeys", admin(), "")
	assert.Equal(t, fasthttp.StatusUnauthorized, resp.status)
}

func TestMediaKeyScenario(t *testing.T) {
	s := newTestServer(t)
	tok, _ := s.issue(t, "writer")

	resp := s.do(fasthttp.MethodPut, "/mediakeys", withKey(tok), `{"key":"DEV_TO_APIKEY","value":"abc123"}`)
	require.Equal(t, fasthttp.StatusOK, resp.status)
	assert.Equal(t, map[string]any{"done": true, "message": "Media key stored successfully"}, resp.json(t))

	resp = s.do(fasthttp.MethodGet, "/mediakeys", withKey(tok), "")
	require.Equal(t, fasthttp.StatusOK, resp.status)
	assert.Equal(t, map[string]any{"mediaKeys": map[string]any{"DEV_TO_APIKEY": "abc123"}}, resp.json(t))

	resp = s.do(fasthttp.MethodDelete, "/keys?key="+tok, admin(), "")
	require.Equal(t, fasthttp.StatusOK, resp.status)

	resp = s.do(fasthttp.MethodGet, "/mediakeys", withKey(tok), "")
	assert.Equal(t, fasthttp.StatusUnauthorized, resp.status)
	assert.Equal(t, "Invalid API key", resp.errorMessage(t))
}

func TestMediaKeysAreScopedToTheCaller(t *testing.T) {
	s := newTestServer(t)
	tokA, _ := s.issue(t, "a")
	tokB, _ := s.issue(t, "b")

	s.do(fasthttp.MethodPut, "/mediakeys", withKey(tokA), `{"key":"DEV_TO_APIKEY","value":"a-secret"}`)
	s.do(fasthttp.MethodPut, "/mediakeys", withKey(tokB), `{"key":"DEV_TO_APIKEY","value":"b-secret"}`)

	resp := s.do(fasthttp.MethodGet, "/mediakeys", withKey(tokA), "")
	assert.Equal(t, map[string]any{"mediaKeys": map[string]any{"DEV_TO_APIKEY": "a-secret"}}, resp.json(t))

	resp = s.do(fasthttp.MethodDelete, "/mediakeys?key=DEV_TO_APIKEY", withKey(tokA), "")
	assert.Equal(t, map[string]any{"done": true, "message": "Media key deleted successfully"}, resp.json(t))
	resp = s.do(fasthttp.MethodDelete, "/mediakeys?key=DEV_TO_APIKEY", withKey(tokA), "")
	assert.Equal(t, false, resp.json(t)["done"])

	resp = s.do(fasthttp.MethodGet, "/mediakeys", withKey(tokB), "")
	assert.Equal(t, map[string]any{"mediaKeys": map[string]any{"DEV_TO_APIKEY": "b-secret"}}, resp.json(t))
}

func TestMediaKeyValidation(t *testing.T) {
	s := newTestServer(t)
	tok, _ := s.issue(t, "writer")

	for _, body := range []string{`{"key":"DEV_TO_APIKEY"}`, `{"value":"x"}`, `{"key":1,"value":"x"}`, `nope`} {
		resp := s.do(fasthttp.MethodPut, "/mediakeys", withKey(tok), body)
		assert.Equal(t, fasthttp.StatusBadRequest, resp.status, body)
		assert.Equal(t, "Invalid request body", resp.errorMessage(t))
	}

	resp := s.do(fasthttp.MethodDelete, "/mediakeys", withKey(tok), "")
	assert.Equal(t, fasthttp.StatusBadRequest, resp.status)
}

const article = `{"title":"Hello","content":"# Hello","tags":["go"],"is_draft":true}`

func TestPublishToPlatform(t *testing.T) {
	s := newTestServer(t)
	tok, _ := s.issue(t, "writer")
	s.do(fasthttp.MethodPut, "/mediakeys", withKey(tok), `{"key":"DEV_TO_APIKEY","value":"abc123"}`)

	resp := s.do(fasthttp.MethodPost, "/publish/devto", withKey(tok), article)
	require.Equal(t, fasthttp.StatusOK, resp.status, string(resp.body))
	assert.Equal(t, map[string]any{
		"done":    true,
		"article": map[string]any{"id": float64(7), "title": "Hello"},
	}, resp.json(t))

	s.mu.Lock()
	assert.Equal(t, []string{"abc123"}, s.devtoKeys)
	s.mu.Unlock()
}

func TestPublishToPlatformErrors(t *testing.T) {
	s := newTestServer(t)
	tok, _ := s.issue(t, "writer")
	s.do(fasthttp.MethodPut, "/mediakeys", withKey(tok), `{"key":"DEV_TO_APIKEY","value":"abc123"}`)

	resp := s.do(fasthttp.MethodPost, "/publish/devto", nil, article)
	assert.Equal(t, fasthttp.StatusUnauthorized, resp.status)

	resp = s.do(fasthttp.MethodPost, "/publish/hashnode", withKey(tok), article)
	assert.Equal(t, fasthttp.StatusNotFound, resp.status)
	assert.Equal(t, "Unsupported media type", resp.errorMessage(t))

	resp = s.do(fasthttp.MethodPost, "/publish/devto", withKey(tok), `{"title":"Hello","content":"x"}`)
	assert.Equal(t, fasthttp.StatusBadRequest, resp.status)
	assert.Equal(t, "Missing required fields: title, content, or tags", resp.errorMessage(t))

	resp = s.do(fasthttp.MethodPost, "/publish/medium", withKey(tok), article)
	assert.Equal(t, fasthttp.StatusBadRequest, resp.status)
	assert.Equal(t, "Medium API key not found", resp.errorMessage(t))

	resp = s.do(fasthttp.MethodPost, "/publish/devto", withKey(tok), `{"title":"reject","content":"x","tags":[]}`)
	assert.Equal(t, fasthttp.StatusBadGateway, resp.status)
	assert.Equal(t, `{"error":"Title has already been used","status":422}`, resp.errorMessage(t))
}

func TestPublishWithRevokedKey(t *testing.T) {
	s := newTestServer(t)
	tok, _ := s.issue(t, "writer")
	s.do(fasthttp.MethodPut, "/mediakeys", withKey(tok), `{"key":"DEV_TO_APIKEY","value":"abc123"}`)

	resp := s.do(fasthttp.MethodDelete, "/keys?key="+tok, admin(), "")
	require.Equal(t, fasthttp.StatusOK, resp.status)
	require.Equal(t, map[string]any{"done": true}, resp.json(t))

	resp = s.do(fasthttp.MethodPost, "/publish/devto", withKey(tok), article)
	assert.Equal(t, fasthttp.StatusUnauthorized, resp.status)
	assert.Equal(t, "Invalid API key", resp.errorMessage(t))

	s.mu.Lock()
	assert.Empty(t, s.devtoKeys, "revoked key must not reach the platform")
	s.mu.Unlock()
}

func TestPublishMulti(t *testing.T) {
	s := newTestServer(t)
	headers := map[string]string{"X-Publish-Password": publishPass}

	resp := s.do(fasthttp.MethodPost, "/publish-multi", map[string]string{"X-Publish-Password": "wrong"}, `{}`)
	assert.Equal(t, fasthttp.StatusUnauthorized, resp.status)
	assert.Equal(t, "Invalid password", resp.errorMessage(t))

	resp = s.do(fasthttp.MethodPost, "/publish-multi", headers, `{"title":"Hello","content":"x","tags":[],"platforms":[]}`)
	assert.Equal(t, fasthttp.StatusBadRequest, resp.status)
	assert.Equal(t, "At least one platform must be specified", resp.errorMessage(t))

	resp = s.do(fasthttp.MethodPost, "/publish-multi", headers, `{"content":"x","tags":[],"platforms":["devto"]}`)
	assert.Equal(t, fasthttp.StatusBadRequest, resp.status)

	resp = s.do(fasthttp.MethodPost, "/publish-multi", headers,
		`{"title":"Hello","content":"x","tags":["go"],"platforms":["devto","medium","hashnode"]}`)
	require.Equal(t, fasthttp.StatusOK, resp.status, string(resp.body))

	var out struct {
		Results []struct {
			Platform string          `json:"platform"`
			Success  bool            `json:"success"`
			Article  json.RawMessage `json:"article"`
			Error    string          `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(resp.body, &out))
	require.Len(t, out.Results, 3)

	assert.Equal(t, "devto", out.Results[0].Platform)
	assert.True(t, out.Results[0].Success)
	assert.JSONEq(t, `{"id":7,"title":"Hello"}`, string(out.Results[0].Article))

	assert.Equal(t, "medium", out.Results[1].Platform)
	assert.False(t, out.Results[1].Success)
	assert.Equal(t, "Medium API key not configured", out.Results[1].Error)

	assert.Equal(t, "hashnode", out.Results[2].Platform)
	assert.False(t, out.Results[2].Success)
	assert.Equal(t, "Unsupported platform: hashnode", out.Results[2].Error)

	s.mu.Lock()
	assert.Equal(t, []string{"shared-devto"}, s.devtoKeys)
	s.mu.Unlock()
}

func TestKeyMetricsAreFilteredToTheCaller(t *testing.T) {
	s := newTestServer(t)
	tokA, jtiA := s.issue(t, "a")
	tokB, jtiB := s.issue(t, "b")
	for _, tok := range []string{tokA, tokB} {
		s.do(fasthttp.MethodPut, "/mediakeys", withKey(tok), `{"key":"DEV_TO_APIKEY","value":"v"}`)
		resp := s.do(fasthttp.MethodPost, "/publish/devto", withKey(tok), article)
		require.Equal(t, fasthttp.StatusOK, resp.status)
	}

	resp := s.do(fasthttp.MethodGet, "/v1/metrics", withKey(tokA), "")
	require.Equal(t, fasthttp.StatusOK, resp.status)
	text := string(resp.body)
	assert.Contains(t, text, `key="`+jtiA+`"`)
	assert.NotContains(t, text, jtiB)
	assert.Contains(t, text, "keyrelay_keys_issued_total 2")

	resp = s.do(fasthttp.MethodGet, "/v1/metrics", nil, "")
	assert.Equal(t, fasthttp.StatusUnauthorized, resp.status)
}

func TestPrometheusEndpoint(t *testing.T) {
	s := newTestServer(t)
	_, jti := s.issue(t, "a")
	s.do(fasthttp.MethodDelete, "/keys?key="+jti, admin(), "")

	resp := s.do(fasthttp.MethodGet, "/metrics", nil, "")
	assert.Equal(t, fasthttp.StatusUnauthorized, resp.status)

	resp = s.do(fasthttp.MethodGet, "/metrics", admin(), "")
	require.Equal(t, fasthttp.StatusOK, resp.status)
	assert.Contains(t, string(resp.body), "keyrelay_keys_issued_total 1")
	assert.Contains(t, string(resp.body), "keyrelay_keys_revoked_total 1")
}

type downStore struct{}

func (downStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestHealth(t *testing.T) {
	resp := newTestServer(t).do(fasthttp.MethodGet, "/healthz", nil, "")
	assert.Equal(t, fasthttp.StatusOK, resp.status)
	assert.Equal(t, "ok", string(resp.body))

	resp = newTestServerWithStore(t, downStore{}).do(fasthttp.MethodGet, "/healthz", nil, "")
	assert.Equal(t, fasthttp.StatusServiceUnavailable, resp.status)
}
