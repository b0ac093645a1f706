package metrics

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
)

type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rejectedTotal   *prometheus.CounterVec

	resolutionsTotal       *prometheus.CounterVec
	resolutionDuration     *prometheus.HistogramVec
	qualityRejectionsTotal *prometheus.CounterVec
	degradedMode           prometheus.Gauge
	searchPreviewsTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legal",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legal",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "legal",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legal",
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests rejected before reaching a handler, by reason.",
		},
		[]string{"service", "reason"},
	)
	resolutionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legal",
			Subsystem: "resolution",
			Name:      "requests_total",
			Help:      "Resolved questions by winning stage, origin and language.",
		},
		[]string{"service", "stage", "origin", "language"},
	)
	resolutionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legal",
			Subsystem: "resolution",
			Name:      "duration_seconds",
			Help:      "Question resolution duration in seconds by winning stage.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"service", "stage"},
	)
	qualityRejectionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legal",
			Subsystem: "resolution",
			Name:      "quality_rejections_total",
			Help:      "Generated candidates rejected by the quality check, by reason.",
		},
		[]string{"service", "reason"},
	)
	degradedMode := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "legal",
			Subsystem: "resolution",
			Name:      "degraded_mode",
			Help:      "1 when the generative capability is unavailable for the process lifetime.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchPreviewsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legal",
			Subsystem: "search",
			Name:      "previews_total",
			Help:      "Diagnostic search previews by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		rejectedTotal,
		resolutionsTotal,
		resolutionDuration,
		qualityRejectionsTotal,
		degradedMode,
		searchPreviewsTotal,
	)

	return &HTTPServerMetrics{
		service:                service,
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		rejectedTotal:          rejectedTotal,
		resolutionsTotal:       resolutionsTotal,
		resolutionDuration:     resolutionDuration,
		qualityRejectionsTotal: qualityRejectionsTotal,
		degradedMode:           degradedMode,
		searchPreviewsTotal:    searchPreviewsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps label cardinality bounded for unknown paths.
func normalizePath(path string) string {
	switch path {
	case "/", "/ask", "/test-search", "/healthz", "/metrics":
		return path
	default:
		return "other"
	}
}

// ObserveResolution implements ports.ResolutionObserver.
func (m *HTTPServerMetrics) ObserveResolution(_ context.Context, event domain.ResolutionEvent) {
	m.resolutionsTotal.WithLabelValues(m.service, string(event.Stage), string(event.Origin), string(event.Language)).Inc()
	m.resolutionDuration.WithLabelValues(m.service, string(event.Stage)).Observe(event.Duration.Seconds())
	if event.QualityReason != "" && event.QualityReason != domain.QualityReasonOK {
		m.qualityRejectionsTotal.WithLabelValues(m.service, event.QualityReason).Inc()
	}
}

func (m *HTTPServerMetrics) SetDegraded(degraded bool) {
	if degraded {
		m.degradedMode.Set(1)
		return
	}
	m.degradedMode.Set(0)
}

func (m *HTTPServerMetrics) RecordRejection(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.rejectedTotal.WithLabelValues(m.service, reason).Inc()
}

func (m *HTTPServerMetrics) RecordSearchPreview(success bool) {
	outcome := "empty"
	if success {
		outcome = "results"
	}
	m.searchPreviewsTotal.WithLabelValues(m.service, outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
