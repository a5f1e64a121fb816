package handlers

import (
	"context"
	"log/slog"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"

	"keyrelay/internal/config"
	appmw "keyrelay/internal/http/middleware"
	"keyrelay/internal/http/respond"
	"keyrelay/internal/publish"
	"keyrelay/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Config    *config.Config
	Store     Pinger
	Keys      *service.Keys
	MediaKeys *service.MediaKeys
	Publisher *publish.Publisher
	Metrics   *Metrics
	Gatherer  prometheus.Gatherer
}

// NewRouter registers every route.
func NewRouter(d Deps) *router.Router {
	r := router.New()
	r.NotFound = func(ctx *fasthttp.RequestCtx) {
		respond.Error(ctx, fasthttp.StatusNotFound, "Not found")
	}
	r.MethodNotAllowed = func(ctx *fasthttp.RequestCtx) {
		respond.Error(ctx, fasthttp.StatusMethodNotAllowed, "Method not allowed")
	}
	r.PanicHandler = func(ctx *fasthttp.RequestCtx, rec any) {
		slog.Error("handler panicked", "method", string(ctx.Method()), "path", string(ctx.Path()), "panic", rec)
		respond.Error(ctx, fasthttp.StatusInternalServerError, respond.InternalErrorMessage)
	}

	admin := appmw.AdminAuth(d.Config)
	apiKey := appmw.APIKeyAuth(d.Keys)

	r.GET("/healthz", Health(d.Store))

	r.GET("/keys", admin(ListKeys(d.Keys)))
	r.PUT("/keys", admin(IssueKey(d.Keys, d.Metrics)))
	r.PATCH("/keys", admin(RenameKey(d.Keys)))
	r.DELETE("/keys", admin(RevokeKey(d.Keys, d.Metrics)))

	r.GET("/mediakeys", apiKey(ListMediaKeys(d.MediaKeys)))
	r.PUT("/mediakeys", apiKey(PutMediaKey(d.MediaKeys)))
	r.DELETE("/mediakeys", apiKey(DeleteMediaKey(d.MediaKeys)))

	r.POST("/publish/{platform}", apiKey(PublishToPlatform(d.Publisher, d.MediaKeys, d.Metrics)))
	r.POST("/publish-multi", appmw.PublishAuth(d.Config)(PublishMulti(d.Publisher, d.Config, d.Metrics)))

	r.GET("/metrics", admin(PrometheusHandler(d.Gatherer)))
	r.GET("/v1/metrics", apiKey(KeyMetricsHandler(d.Gatherer)))

	return r
}

// Handler is the full server handler: the router behind the request logger.
func Handler(d Deps) fasthttp.RequestHandler {
	return RequestLogger(NewRouter(d).Handler)
}

func Health(store Pinger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if err := store.Ping(ctx); err != nil {
			slog.Error("health check failed", "error", err)
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			ctx.SetBodyString("store unavailable")
			return
		}
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	}
}
