package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/iter"
)

// Publish sends r to a single platform using the credential creds resolves.
func (p *Publisher) Publish(ctx context.Context, platform Platform, r Request, creds CredentialResolver) (json.RawMessage, error) {
	apiKey, err := creds.Credential(ctx, platform)
	if err != nil {
		return nil, err
	}

	var body []byte
	switch platform {
	case PlatformDevTo:
		body, err = p.publishDevTo(apiKey, r)
	case PlatformMedium:
		body, err = p.publishMedium(apiKey, r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, platform)
	}
	if err != nil {
		return nil, err
	}
	return rawArticle(body), nil
}

// PublishAll sends r to every requested platform concurrently and returns
// one result per entry, in request order. A failing platform, including an
// unknown identifier, never affects the others. Every platform gets its own
// goroutine regardless of GOMAXPROCS.
func (p *Publisher) PublishAll(ctx context.Context, r Request, platforms []string, creds CredentialResolver) []Result {
	mapper := iter.Mapper[string, Result]{MaxGoroutines: len(platforms)}
	return mapper.Map(platforms, func(name *string) Result {
		return p.publishOne(ctx, *name, r, creds)
	})
}

func (p *Publisher) publishOne(ctx context.Context, name string, r Request, creds CredentialResolver) (res Result) {
	start := time.Now()
	res.Platform = name
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("publish panicked", "platform", name, "panic", rec)
			res = Result{Platform: name, Error: fmt.Sprintf("internal error publishing to %s", name)}
		}
		res.Elapsed = time.Since(start)
	}()

	platform, err := ParsePlatform(name)
	if err != nil {
		res.Error = "Unsupported platform: " + name
		return res
	}

	article, err := p.Publish(ctx, platform, r, creds)
	if err != nil {
		slog.Warn("publish failed", "platform", name, "error", err)
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.Article = article
	return res
}
