package handlers

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"

	// sharedKeyLabel marks publishes made with the configured credentials
	// rather than a caller's API key.
	sharedKeyLabel = "shared"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	publishTotal    *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec
	keysIssued      prometheus.Counter
	keysRevoked     prometheus.Counter
}

// InitPrometheusMetrics creates the collectors and registers them with reg.
func InitPrometheusMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		publishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "keyrelay",
				Name:      "publish_total",
				Help:      "Total number of publish attempts per platform.",
			},
			[]string{"key", "platform", "outcome"},
		),
		publishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "keyrelay",
				Name:      "publish_duration_seconds",
				Help:      "Histogram of platform publish durations in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"platform"},
		),
		keysIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "keyrelay",
			Name:      "keys_issued_total",
			Help:      "Total number of API keys issued.",
		}),
		keysRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "keyrelay",
			Name:      "keys_revoked_total",
			Help:      "Total number of API keys revoked.",
		}),
	}
	reg.MustRegister(m.publishTotal, m.publishDuration, m.keysIssued, m.keysRevoked)
	return m
}

func (m *Metrics) observePublish(key, platform string, ok bool, elapsed time.Duration) {
	outcome := outcomeSuccess
	if !ok {
		outcome = outcomeError
	}
	m.publishTotal.WithLabelValues(key, platform, outcome).Inc()
	m.publishDuration.WithLabelValues(platform).Observe(elapsed.Seconds())
}

func (m *Metrics) keyIssued() {
	m.keysIssued.Inc()
}

func (m *Metrics) keyRevoked() {
	m.keysRevoked.Inc()
}

// RequestLogger returns fasthttp middleware that logs method, path, status, duration.
func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		slog.Info("request",
			"method", string(ctx.Method()),
			"path", string(ctx.Path()),
			"status", ctx.Response.StatusCode(),
			"duration", time.Since(start),
			"ip", ctx.RemoteAddr().String(),
		)
	}
}
