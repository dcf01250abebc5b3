package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds RED metrics for the HTTP surface.
type Metrics struct {
	reg  *prometheus.Registry
	reqs *prometheus.CounterVec
	durs *prometheus.HistogramVec
}

// NewMetrics registers the HTTP collectors plus Go and process collectors on
// a fresh registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()

	reqs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests by route and status code",
	}, []string{"route", "code"})

	durs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests by route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	reg.MustRegister(
		reqs,
		durs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{reg: reg, reqs: reqs, durs: durs}
}

// Registry exposes the underlying registry so callers can add collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware records one observation per request. It must wrap the
// ServeMux directly so the matched pattern is visible on r after serving.
func (m *Metrics) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.reqs.WithLabelValues(route, strconv.Itoa(rec.code())).Inc()
			m.durs.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}
