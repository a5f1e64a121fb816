package handlers

import (
	"github.com/valyala/fasthttp"

	"keyrelay/internal/http/respond"
	"keyrelay/internal/service"
)

type putMediaKeyRequest struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value" validate:"required"`
}

func ListMediaKeys(mk *service.MediaKeys) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		key, ok := MustKey(ctx)
		if !ok {
			return
		}
		keys, err := mk.List(ctx, key.JTI)
		if err != nil {
			serviceError(ctx, err)
			return
		}
		respond.JSON(ctx, map[string]any{"mediaKeys": keys})
	}
}

func PutMediaKey(mk *service.MediaKeys) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		key, ok := MustKey(ctx)
		if !ok {
			return
		}
		var req putMediaKeyRequest
		if err := decodeBody(ctx, &req); err != nil {
			respond.Error(ctx, fasthttp.StatusBadRequest, "Invalid request body")
			return
		}

		if err := mk.Put(ctx, key.JTI, req.Key, req.Value); err != nil {
			serviceError(ctx, err)
			return
		}
		respond.JSON(ctx, map[string]any{
			"done":    true,
			"message": "Media key stored successfully",
		})
	}
}

func DeleteMediaKey(mk *service.MediaKeys) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		key, ok := MustKey(ctx)
		if !ok {
			return
		}
		label := string(ctx.QueryArgs().Peek("key"))
		if label == "" {
			respond.Error(ctx, fasthttp.StatusBadRequest, "Invalid request")
			return
		}

		done, err := mk.Delete(ctx, key.JTI, label)
		if err != nil {
			serviceError(ctx, err)
			return
		}
		respond.JSON(ctx, map[string]any{
			"done":    done,
			"message": "Media key deleted successfully",
		})
	}
}
