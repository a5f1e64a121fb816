package ctx

import (
	"github.com/valyala/fasthttp"

	"keyrelay/internal/token"
)

const KeyPayloadKey = "apiKeyPayload"

// SetKey stores the payload of the authenticated API key on the request.
func SetKey(ctx *fasthttp.RequestCtx, p token.Payload) {
	ctx.SetUserValue(KeyPayloadKey, p)
}

func KeyFromCtx(ctx *fasthttp.RequestCtx) (token.Payload, bool) {
	v := ctx.UserValue(KeyPayloadKey)
	if v == nil {
		return token.Payload{}, false
	}
	p, ok := v.(token.Payload)
	return p, ok
}
