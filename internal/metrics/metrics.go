// Package metrics holds the prometheus collectors of the token endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jwtgrant"

// Token request results.
const (
	ResultIssued   = "issued"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics is a private registry, so several servers can run in one process.
type Metrics struct {
	registry        *prometheus.Registry
	tokenRequests   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tokenRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_requests_total",
			Help:      "Token endpoint requests by grant type and result.",
		}, []string{"grant_type", "result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_request_duration_seconds",
			Help:      "Token endpoint latency by grant type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"grant_type"}),
	}
	m.registry.MustRegister(
		m.tokenRequests,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveTokenRequest records one token endpoint request.
func (m *Metrics) ObserveTokenRequest(grantType, result string, elapsed time.Duration) {
	m.tokenRequests.WithLabelValues(grantType, result).Inc()
	m.requestDuration.WithLabelValues(grantType).Observe(elapsed.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
