package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fasthttp"

	httpctx "keyrelay/internal/http/ctx"
	"keyrelay/internal/http/respond"
	"keyrelay/internal/service"
	"keyrelay/internal/token"
)

var validate = validator.New()

// MustKey returns the authenticated key payload, or sends 401 and returns
// false.
func MustKey(ctx *fasthttp.RequestCtx) (token.Payload, bool) {
	p, ok := httpctx.KeyFromCtx(ctx)
	if !ok || p.JTI == "" {
		respond.Error(ctx, fasthttp.StatusUnauthorized, "Invalid API key")
		return token.Payload{}, false
	}
	return p, true
}

// serviceError answers err with the status its kind maps to. Anything not
// recognised is logged and hidden behind a generic message.
func serviceError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, service.ErrBadRequest), errors.Is(err, service.ErrInvalidToken):
		respond.Error(ctx, fasthttp.StatusBadRequest, "Invalid request")
	case errors.Is(err, service.ErrUnauthorized):
		respond.Error(ctx, fasthttp.StatusUnauthorized, "Invalid API key")
	default:
		slog.Error("request failed", "method", string(ctx.Method()), "path", string(ctx.Path()), "error", err)
		respond.Error(ctx, fasthttp.StatusInternalServerError, respond.InternalErrorMessage)
	}
}

// decodeBody unmarshals the JSON request body into dst and validates its
// struct tags.
func decodeBody(ctx *fasthttp.RequestCtx, dst any) error {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}
