package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	analysisTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	analysisInFlight prometheus.Gauge
	queueLag         *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	analysisTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "snapshot_analysis_total",
			Help:      "Total analysed snapshots by status.",
		},
		[]string{"service", "status"},
	)
	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "snapshot_analysis_duration_seconds",
			Help:      "Snapshot analysis duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	analysisInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "snapshot_analysis_in_flight",
			Help:      "Number of in-flight snapshot analyses.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between snapshot save and analysis start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(analysisTotal, analysisDuration, analysisInFlight, queueLag)

	return &WorkerMetrics{
		registry:         registry,
		analysisTotal:    analysisTotal,
		analysisDuration: analysisDuration,
		analysisInFlight: analysisInFlight,
		queueLag:         queueLag,
	}
}

func (m *WorkerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartAnalysis() {
	m.analysisInFlight.Inc()
}

func (m *WorkerMetrics) FinishAnalysis(service string, duration time.Duration, err error) {
	m.analysisInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.analysisTotal.WithLabelValues(service, status).Inc()
	m.analysisDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
