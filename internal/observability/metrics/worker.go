package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	journalTotal    *prometheus.CounterVec
	journalDuration *prometheus.HistogramVec
	journalInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	journalTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legal",
			Subsystem: "worker",
			Name:      "journal_events_total",
			Help:      "Total journaled resolution events by status.",
		},
		[]string{"service", "status"},
	)
	journalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legal",
			Subsystem: "worker",
			Name:      "journal_duration_seconds",
			Help:      "Resolution event persistence duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	journalInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "legal",
			Subsystem: "worker",
			Name:      "journal_in_flight",
			Help:      "Number of resolution events being persisted.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legal",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between resolution and journaling start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(journalTotal, journalDuration, journalInFlight, queueLag)

	return &WorkerMetrics{
		registry:        registry,
		journalTotal:    journalTotal,
		journalDuration: journalDuration,
		journalInFlight: journalInFlight,
		queueLag:        queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEvent() {
	m.journalInFlight.Inc()
}

func (m *WorkerMetrics) FinishEvent(service string, duration time.Duration, err error) {
	m.journalInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.journalTotal.WithLabelValues(service, status).Inc()
	m.journalDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
