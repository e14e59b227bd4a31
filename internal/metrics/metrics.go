// Package metrics exposes Prometheus instrumentation for the HTTP layer and
// the job board service.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"job-portal/internal/jobs"
)

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry       *prometheus.Registry
	requestLatency *prometheus.HistogramVec
	requestCount   *prometheus.CounterVec
	events         *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, with the Go and process
// collectors included.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_latency_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "job_portal_events_total",
			Help: "Job board commands by outcome",
		}, []string{"kind", "status"}),
	}

	m.registry.MustRegister(
		m.requestLatency,
		m.requestCount,
		m.events,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records latency and a request count per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		method := c.Request.Method

		m.requestLatency.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
		m.requestCount.WithLabelValues(method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Report implements jobs.Reporter by counting events.
func (m *Metrics) Report(_ context.Context, e jobs.Event) {
	status := e.Status
	if status == "" {
		status = "ok"
	}
	if e.Kind == jobs.EventOffersExpired {
		m.events.WithLabelValues(string(e.Kind), status).Add(float64(e.Count))
		return
	}
	m.events.WithLabelValues(string(e.Kind), status).Inc()
}

var _ jobs.Reporter = (*Metrics)(nil)
