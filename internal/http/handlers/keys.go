package handlers

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	"keyrelay/internal/http/respond"
	"keyrelay/internal/service"
)

type issueKeyRequest struct {
	Name string `json:"name"`
}

type renameKeyRequest struct {
	Key  string `json:"key" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// listedKey is written as a two element array, [token, details].
type listedKey service.ListedKey

func (k listedKey) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{k.Token, k.Details})
}

func ListKeys(keys *service.Keys) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		list, err := keys.List(ctx)
		if err != nil {
			serviceError(ctx, err)
			return
		}
		out := make([]listedKey, 0, len(list))
		for _, k := range list {
			out = append(out, listedKey(k))
		}
		respond.JSON(ctx, map[string]any{"apiKeys": out})
	}
}

func IssueKey(keys *service.Keys, m *Metrics) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req issueKeyRequest
		if body := ctx.PostBody(); len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				respond.Error(ctx, fasthttp.StatusBadRequest, "Invalid request")
				return
			}
		}

		issued, err := keys.Issue(ctx, req.Name)
		if err != nil {
			serviceError(ctx, err)
			return
		}
		m.keyIssued()

		respond.JSON(ctx, map[string]any{
			"done":  true,
			"token": issued.Token,
			"name":  issued.Name,
			"jti":   issued.JTI,
		})
	}
}

func RenameKey(keys *service.Keys) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req renameKeyRequest
		if err := decodeBody(ctx, &req); err != nil {
			respond.Error(ctx, fasthttp.StatusBadRequest, "Invalid request")
			return
		}

		done, err := keys.Rename(ctx, req.Key, req.Name)
		if err != nil {
			serviceError(ctx, err)
			return
		}
		respond.JSON(ctx, map[string]any{
			"done":    done,
			"message": "Key name updated successfully",
		})
	}
}

// RevokeKey takes the token, or its bare jti, from the "key" query
// parameter.
func RevokeKey(keys *service.Keys, m *Metrics) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		key := string(ctx.QueryArgs().Peek("key"))
		if key == "" {
			respond.Error(ctx, fasthttp.StatusBadRequest, "Invalid request")
			return
		}

		done, err := keys.Revoke(ctx, key)
		if err != nil {
			serviceError(ctx, err)
			return
		}
		if done {
			m.keyRevoked()
		}
		respond.JSON(ctx, map[string]any{"done": done})
	}
}
