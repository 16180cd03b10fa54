// Package metrics exposes Prometheus counters and a latency histogram
// for the proxy's two client-facing facades. Grounded on
// claude-gateway's internal/metrics, adapted to this proxy's single
// upstream (labelled by resolved model family rather than provider).
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	latencyMs     *prometheus.HistogramVec
	streamErrors  *prometheus.CounterVec
}

func New() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudcode_proxy_requests_total",
			Help: "Total number of requests processed by the proxy.",
		}, []string{"facade", "family", "status"}),
		latencyMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cloudcode_proxy_request_latency_ms",
			Help:    "Request latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		}, []string{"facade", "family", "status"}),
		streamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudcode_proxy_stream_errors_total",
			Help: "Streaming failures by error kind.",
		}, []string{"kind"}),
	}
	r.MustRegister(m.requestsTotal, m.latencyMs, m.streamErrors)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one completed request against a facade
// ("anthropic" or "openai"), the resolved upstream model family, and the
// HTTP status ultimately returned to the caller.
func (m *Metrics) ObserveRequest(facade, family string, status int, dur time.Duration) {
	s := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(facade, family, s).Inc()
	m.latencyMs.WithLabelValues(facade, family, s).Observe(float64(dur.Milliseconds()))
}

// ObserveStreamError records a streaming failure (opening the stream or
// mid-stream) by the ProxyError kind
// that caused it (e.g. "stream_idle_timeout", "empty_response").
func (m *Metrics) ObserveStreamError(kind string) {
	m.streamErrors.WithLabelValues(kind).Inc()
}
