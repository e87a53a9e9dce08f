// Package telemetry exposes Prometheus metrics for the detector.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "safespace"

// Metrics holds all service metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Classifications    *prometheus.CounterVec
	ClassifyDuration   prometheus.Histogram
	AnalyticsEvents    *prometheus.CounterVec
	EvidenceOperations *prometheus.CounterVec
	ExtensionMessages  *prometheus.CounterVec
	Notifications      *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Texts classified, by severity",
		}, []string{"severity"}),
		ClassifyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classify_duration_seconds",
			Help:      "Time spent classifying a single text",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		AnalyticsEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_events_total",
			Help:      "Analytics events recorded, by outcome",
		}, []string{"outcome"}),
		EvidenceOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evidence_operations_total",
			Help:      "Evidence store operations, by operation",
		}, []string{"operation"}),
		ExtensionMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extension_messages_total",
			Help:      "Extension bridge messages, by type and result",
		}, []string{"type", "result"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Threat notifications sent, by result",
		}, []string{"result"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Resource cache lookups, by result",
		}, []string{"result"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordClassification counts a classification with its severity and duration.
func (m *Metrics) RecordClassification(severity string, d time.Duration) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(severity).Inc()
	m.ClassifyDuration.Observe(d.Seconds())
}

// RecordAnalyticsEvent counts a toxic or safe analytics event.
func (m *Metrics) RecordAnalyticsEvent(isToxic bool) {
	if m == nil {
		return
	}
	outcome := "safe"
	if isToxic {
		outcome = "toxic"
	}
	m.AnalyticsEvents.WithLabelValues(outcome).Inc()
}

// RecordEvidence counts an evidence store operation.
func (m *Metrics) RecordEvidence(operation string) {
	if m == nil {
		return
	}
	m.EvidenceOperations.WithLabelValues(operation).Inc()
}

// RecordExtensionMessage counts a bridge message and whether it succeeded.
func (m *Metrics) RecordExtensionMessage(msgType string, err error) {
	if m == nil {
		return
	}
	m.ExtensionMessages.WithLabelValues(msgType, resultLabel(err)).Inc()
}

// RecordNotification counts a notifier delivery attempt.
func (m *Metrics) RecordNotification(err error) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(resultLabel(err)).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordHTTPRequest counts a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
