package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/valyala/fasthttp"

	httpctx "keyrelay/internal/http/ctx"
	"keyrelay/internal/http/respond"
	"keyrelay/internal/service"
	"keyrelay/internal/token"
)

const HeaderAPIKey = "X-Api-Key"

// Authenticator resolves a presented API key. *service.Keys satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, tok string) (token.Payload, error)
}

// APIKeyAuth validates the X-Api-Key header against the active keys in the
// store and puts the key payload on the request.
func APIKeyAuth(keys Authenticator) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tok := strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderAPIKey)))
			if tok == "" {
				respond.Error(ctx, fasthttp.StatusUnauthorized, "API key required")
				return
			}

			payload, err := keys.Authenticate(ctx, tok)
			if err != nil {
				if errors.Is(err, service.ErrUnauthorized) {
					respond.Error(ctx, fasthttp.StatusUnauthorized, "Invalid API key")
					return
				}
				slog.Error("api key lookup failed", "error", err)
				respond.Error(ctx, fasthttp.StatusInternalServerError, respond.InternalErrorMessage)
				return
			}

			httpctx.SetKey(ctx, payload)
			next(ctx)
		}
	}
}
