// Package telemetry provides Prometheus instrumentation for the dashboard API.
//
// Metrics exposed:
//   - metrics_dashboard_http_requests_total: Counter of requests by route, method and status
//   - metrics_dashboard_http_request_duration_seconds: Histogram of request durations
//   - metrics_dashboard_readings_ingested_total: Counter of readings written
//   - metrics_dashboard_store_errors_total: Counter of store failures by operation
//   - metrics_dashboard_table_resets_total: Counter of successful table resets
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ReadingsIngested    prometheus.Counter
	StoreErrors         *prometheus.CounterVec
	TableResets         prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "metrics_dashboard_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "metrics_dashboard_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route and method",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),

		ReadingsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "metrics_dashboard_readings_ingested_total",
			Help: "Total number of metric readings written",
		}),

		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "metrics_dashboard_store_errors_total",
			Help: "Total number of store failures by operation",
		}, []string{"operation"}),

		TableResets: factory.NewCounter(prometheus.CounterOpts{
			Name: "metrics_dashboard_table_resets_total",
			Help: "Total number of successful metrics table resets",
		}),

		gatherer: gatherer,
	}
}

func (m *Metrics) RecordRequest(route, method, status string, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(seconds)
}

func (m *Metrics) RecordIngested() {
	m.ReadingsIngested.Inc()
}

func (m *Metrics) RecordStoreError(operation string) {
	m.StoreErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordReset() {
	m.TableResets.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
