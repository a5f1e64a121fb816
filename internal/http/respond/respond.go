// Package respond writes the JSON bodies shared by handlers and middleware.
package respond

import (
	"encoding/json"
	"log/slog"

	"github.com/valyala/fasthttp"
)

// InternalErrorMessage is the only detail callers see for internal failures.
const InternalErrorMessage = "An internal server error occurred"

// ErrorBody is the error envelope: {"error":{"message":"..."}}.
type ErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// JSON writes data as the response body.
func JSON(ctx *fasthttp.RequestCtx, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("encode response", "path", string(ctx.Path()), "error", err)
		Error(ctx, fasthttp.StatusInternalServerError, InternalErrorMessage)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// Error writes an error envelope with status code.
func Error(ctx *fasthttp.RequestCtx, code int, msg string) {
	var body ErrorBody
	body.Error.Message = msg
	b, _ := json.Marshal(body)
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(b)
}
