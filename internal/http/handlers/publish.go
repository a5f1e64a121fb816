package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/valyala/fasthttp"

	"keyrelay/internal/config"
	"keyrelay/internal/http/respond"
	"keyrelay/internal/publish"
	"keyrelay/internal/service"
)

const missingFieldsMessage = "Missing required fields: title, content, or tags"

type publishRequest struct {
	Title   string   `json:"title" validate:"required"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags" validate:"required"`
	IsDraft bool     `json:"is_draft"`
}

func (r publishRequest) article() publish.Request {
	return publish.Request{
		Title:   r.Title,
		Content: r.Content,
		Tags:    r.Tags,
		IsDraft: r.IsDraft,
	}
}

type publishMultiRequest struct {
	publishRequest
	Platforms []string `json:"platforms"`
}

// PublishToPlatform publishes with the media keys of the calling API key.
// The platform comes from the path.
func PublishToPlatform(pub *publish.Publisher, mk *service.MediaKeys, m *Metrics) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		key, ok := MustKey(ctx)
		if !ok {
			return
		}
		name, _ := ctx.UserValue("platform").(string)
		platform, err := publish.ParsePlatform(name)
		if err != nil {
			respond.Error(ctx, fasthttp.StatusNotFound, "Unsupported media type")
			return
		}

		var req publishRequest
		if err := decodeBody(ctx, &req); err != nil {
			respond.Error(ctx, fasthttp.StatusBadRequest, missingFieldsMessage)
			return
		}

		start := time.Now()
		article, err := pub.Publish(ctx, platform, req.article(), publish.KeyCredentials{MediaKeys: mk, JTI: key.JTI})
		m.observePublish(key.JTI, platform.String(), err == nil, time.Since(start))
		if err != nil {
			publishError(ctx, platform, err)
			return
		}

		respond.JSON(ctx, map[string]any{"done": true, "article": article})
	}
}

func publishError(ctx *fasthttp.RequestCtx, platform publish.Platform, err error) {
	var perr *publish.PlatformError
	switch {
	case errors.Is(err, publish.ErrMissingCredential):
		respond.Error(ctx, fasthttp.StatusBadRequest, err.Error())
	case errors.As(err, &perr):
		// Platform rejections are passed through so callers can see why.
		respond.Error(ctx, fasthttp.StatusBadGateway, perr.Error())
	case errors.Is(err, publish.ErrTransport):
		slog.Warn("platform unreachable", "platform", platform, "error", err)
		respond.Error(ctx, fasthttp.StatusBadGateway, "Failed to reach "+platform.DisplayName())
	case errors.Is(err, publish.ErrUnsupported):
		respond.Error(ctx, fasthttp.StatusNotFound, "Unsupported media type")
	default:
		slog.Error("publish failed", "platform", platform, "error", err)
		respond.Error(ctx, fasthttp.StatusInternalServerError, respond.InternalErrorMessage)
	}
}

// PublishMulti publishes one article to several platforms at once with the
// configured shared credentials. Per-platform failures are reported in the
// results, never as a failed request.
func PublishMulti(pub *publish.Publisher, cfg *config.Config, m *Metrics) fasthttp.RequestHandler {
	creds := publish.StaticCredentials{DevTo: cfg.DevToAPIKey, Medium: cfg.MediumAPIKey}
	return func(ctx *fasthttp.RequestCtx) {
		var req publishMultiRequest
		if err := decodeBody(ctx, &req); err != nil {
			respond.Error(ctx, fasthttp.StatusBadRequest, missingFieldsMessage)
			return
		}
		if len(req.Platforms) == 0 {
			respond.Error(ctx, fasthttp.StatusBadRequest, "At least one platform must be specified")
			return
		}

		results := pub.PublishAll(ctx, req.article(), req.Platforms, creds)
		for _, r := range results {
			m.observePublish(sharedKeyLabel, platformLabel(r.Platform), r.Success, r.Elapsed)
		}

		respond.JSON(ctx, map[string]any{"results": results})
	}
}

// platformLabel bounds metric cardinality to the known platforms.
func platformLabel(name string) string {
	p, err := publish.ParsePlatform(name)
	if err != nil {
		return "unsupported"
	}
	return p.String()
}
