package middleware

import (
	"github.com/valyala/fasthttp"

	"keyrelay/internal/config"
	"keyrelay/internal/http/respond"
)

const (
	HeaderAdminSecret   = "X-Login-Passwd"
	HeaderPublishSecret = "X-Publish-Password"
)

// AdminAuth returns middleware that admits requests carrying the admin
// secret. No store access happens before the check.
func AdminAuth(cfg *config.Config) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return secretAuth(cfg.AdminSecret, HeaderAdminSecret, "Unauthorized")
}

// PublishAuth guards the shared-credential publish route.
func PublishAuth(cfg *config.Config) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return secretAuth(cfg.PublishSecret, HeaderPublishSecret, "Invalid password")
}

func secretAuth(secret config.Secret, header, msg string) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if !secret.Matches(string(ctx.Request.Header.Peek(header))) {
				respond.Error(ctx, fasthttp.StatusUnauthorized, msg)
				return
			}
			next(ctx)
		}
	}
}
