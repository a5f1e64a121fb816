package handlers

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"keyrelay/internal/http/respond"
)

// PrometheusHandler serves every collector in g.
func PrometheusHandler(g prometheus.Gatherer) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// KeyMetricsHandler serves the metrics of the calling API key: families
// carrying a "key" label are narrowed to the caller's jti, the rest are
// passed through unchanged.
func KeyMetricsHandler(g prometheus.Gatherer) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		key, ok := MustKey(ctx)
		if !ok {
			return
		}

		metricFamilies, err := g.Gather()
		if err != nil {
			respond.Error(ctx, fasthttp.StatusInternalServerError, "failed to gather metrics")
			return
		}

		filtered := filterByKey(metricFamilies, key.JTI)

		var buf bytes.Buffer
		encoder := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
		for _, mf := range filtered {
			if err := encoder.Encode(mf); err != nil {
				respond.Error(ctx, fasthttp.StatusInternalServerError, "failed to encode metrics")
				return
			}
		}

		ctx.SetContentType(string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBody(buf.Bytes())
	}
}

func filterByKey(families []*dto.MetricFamily, jti string) []*dto.MetricFamily {
	filtered := make([]*dto.MetricFamily, 0, len(families))
	for _, mf := range families {
		if !hasLabel(mf, "key") {
			filtered = append(filtered, mf)
			continue
		}

		var kept []*dto.Metric
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "key" && l.GetValue() == jti {
					kept = append(kept, m)
					break
				}
			}
		}
		if len(kept) == 0 {
			continue
		}

		filtered = append(filtered, &dto.MetricFamily{
			Name:   mf.Name,
			Help:   mf.Help,
			Type:   mf.Type,
			Metric: kept,
		})
	}
	return filtered
}

func hasLabel(mf *dto.MetricFamily, name string) bool {
	for _, m := range mf.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == name {
				return true
			}
		}
	}
	return false
}
