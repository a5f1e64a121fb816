package publish

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/valyala/fasthttp"
)

// Doer sends one HTTP request. *fasthttp.Client satisfies it.
type Doer interface {
	Do(req *fasthttp.Request, resp *fasthttp.Response) error
}

// Endpoints holds the API base URLs of each platform.
type Endpoints struct {
	DevTo  string
	Medium string
}

// Publisher performs the platform calls.
type Publisher struct {
	client    Doer
	endpoints Endpoints
}

func NewPublisher(client Doer, endpoints Endpoints) *Publisher {
	return &Publisher{client: client, endpoints: endpoints}
}

// NewClient returns the outbound client. No timeouts are set beyond the
// connection defaults.
func NewClient() *fasthttp.Client {
	return &fasthttp.Client{Name: "keyrelay"}
}

type call struct {
	method  string
	url     string
	headers map[string]string
	body    any
}

// do sends c and returns the response body when the status is 2xx, and a
// *PlatformError otherwise.
func (p *Publisher) do(platform Platform, c call) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(c.method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.body != nil {
		body, err := json.Marshal(c.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", platform, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	if err := p.client.Do(req, resp); err != nil {
		return nil, fmt.Errorf("%s %w: %w", platform, ErrTransport, err)
	}

	body := append([]byte(nil), resp.Body()...)
	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return nil, &PlatformError{Platform: platform, Status: status, Body: string(bytes.TrimSpace(body))}
	}
	return body, nil
}

// rawArticle keeps a platform response as JSON, quoting it when the
// platform did not answer with JSON.
func rawArticle(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(string(trimmed))
	return quoted
}
