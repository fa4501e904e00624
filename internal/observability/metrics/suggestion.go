package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
)

// SuggestionMetrics records suggestion pipeline activity.
type SuggestionMetrics struct {
	service string

	fetchTotal     *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	fetchInFlight  prometheus.Gauge
	retriesTotal   *prometheus.CounterVec
	staleDiscarded prometheus.Counter
}

func NewSuggestionMetrics(service string, registerer prometheus.Registerer) *SuggestionMetrics {
	fetchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "suggestions",
			Name:      "fetch_total",
			Help:      "Suggestion fetches by writing mode and outcome.",
		},
		[]string{"service", "mode", "outcome"},
	)
	fetchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "suggestions",
			Name:      "fetch_duration_seconds",
			Help:      "Suggestion fetch duration in seconds, retries included.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "mode"},
	)
	fetchInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "suggestions",
			Name:      "fetch_in_flight",
			Help:      "Number of in-flight suggestion fetches.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "suggestions",
			Name:      "retries_total",
			Help:      "Retried suggestion requests by error code.",
		},
		[]string{"service", "code"},
	)
	staleDiscarded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "suggestions",
			Name:      "stale_discarded_total",
			Help:      "Fetch results dropped because a newer fetch had started.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registerer.MustRegister(fetchTotal, fetchDuration, fetchInFlight, retriesTotal, staleDiscarded)

	return &SuggestionMetrics{
		service:        service,
		fetchTotal:     fetchTotal,
		fetchDuration:  fetchDuration,
		fetchInFlight:  fetchInFlight,
		retriesTotal:   retriesTotal,
		staleDiscarded: staleDiscarded,
	}
}

func (m *SuggestionMetrics) FetchStarted(domain.WritingMode) {
	m.fetchInFlight.Inc()
}

func (m *SuggestionMetrics) FetchFinished(mode domain.WritingMode, outcome string, duration time.Duration) {
	m.fetchInFlight.Dec()
	m.fetchTotal.WithLabelValues(m.service, string(mode), outcome).Inc()
	m.fetchDuration.WithLabelValues(m.service, string(mode)).Observe(duration.Seconds())
}

func (m *SuggestionMetrics) FetchRetried(code domain.APIErrorCode) {
	m.retriesTotal.WithLabelValues(m.service, string(code)).Inc()
}

func (m *SuggestionMetrics) StaleResultDiscarded() {
	m.staleDiscarded.Inc()
}

var _ ports.PipelineObserver = (*SuggestionMetrics)(nil)
