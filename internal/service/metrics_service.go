package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	streamSessions  *prometheus.CounterVec
	streamChunks    prometheus.Counter
	generation      prometheus.Histogram
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	streamSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_sessions_total",
		Help: "Stream sessions by terminal state",
	}, []string{"state"})

	streamChunks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stream_chunks_total",
		Help: "Total content chunks delivered over streams",
	})

	generation := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "generation_duration_seconds",
		Help:    "Latency of upstream generation calls",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	registry.MustRegister(requestDuration, requestTotal, streamSessions, streamChunks, generation)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		streamSessions:  streamSessions,
		streamChunks:    streamChunks,
		generation:      generation,
	}
}

// Handler exposes the /metrics endpoint handler.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one handled request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveStreamSession records the terminal state of one stream session.
func (s *MetricsService) ObserveStreamSession(state string) {
	s.streamSessions.WithLabelValues(state).Inc()
}

// ObserveStreamChunk counts one delivered content chunk.
func (s *MetricsService) ObserveStreamChunk() {
	s.streamChunks.Inc()
}

// ObserveGeneration records the latency of a completed generation call.
func (s *MetricsService) ObserveGeneration(duration time.Duration) {
	s.generation.Observe(duration.Seconds())
}
