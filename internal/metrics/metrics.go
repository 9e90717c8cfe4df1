// Package metrics exports Prometheus metrics for summarization requests and
// backend calls.
package metrics

import (
	"condense/internal/summarizer"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "condense"

	StatusOK       = "ok"
	StatusError    = "error"
	StatusCanceled = "canceled"
)

type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestsActive  prometheus.Gauge
	chunks          prometheus.Histogram

	backendCalls    *prometheus.CounterVec
	backendDuration prometheus.Histogram
}

// New registers the collectors on registry, creating one when nil.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{registry: registry}

	m.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of summarization requests",
		},
		[]string{"source", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Summarization request latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"source"},
	)

	m.requestsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Number of summarization requests being processed",
		},
	)

	m.chunks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunks_per_document",
			Help:      "Number of chunks a document was split into",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	m.backendCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_calls_total",
			Help:      "Total number of summarization backend calls",
		},
		[]string{"status"},
	)

	m.backendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Summarization backend call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.requestsActive,
		m.chunks,
		m.backendCalls,
		m.backendDuration,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TrackRequest marks a request as in flight until the returned func is called.
func (m *Metrics) TrackRequest() func() {
	m.requestsActive.Inc()

	return m.requestsActive.Dec
}

func (m *Metrics) ObserveRequest(source string, err error, duration time.Duration) {
	m.requests.WithLabelValues(source, Status(err)).Inc()
	m.requestDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func (m *Metrics) ObserveChunks(n int) {
	m.chunks.Observe(float64(n))
}

func (m *Metrics) ObserveBackendCall(err error, duration time.Duration) {
	m.backendCalls.WithLabelValues(Status(err)).Inc()
	m.backendDuration.Observe(duration.Seconds())
}

// Status maps an operation result onto a status label.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCanceled
	default:
		return StatusError
	}
}

type instrumentedSummarizer struct {
	next    summarizer.Summarizer
	metrics *Metrics
}

// InstrumentSummarizer counts and times every call that reaches next.
func InstrumentSummarizer(next summarizer.Summarizer, m *Metrics) summarizer.Summarizer {
	if m == nil {
		return next
	}

	return &instrumentedSummarizer{next: next, metrics: m}
}

func (s *instrumentedSummarizer) Summarize(ctx context.Context, input summarizer.Input) (string, error) {
	start := time.Now()

	summary, err := s.next.Summarize(ctx, input)
	s.metrics.ObserveBackendCall(err, time.Since(start))

	return summary, err
}
