package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Research metrics
	SessionsCreated  prometheus.Counter
	ResearchOutcomes *prometheus.CounterVec
	ResearchDuration prometheus.Histogram

	// Provider metrics
	ProviderRecords *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics(tracker *ResearchTracker) *Metrics {
	metrics := &Metrics{
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "deepresearch_sessions_created_total",
			Help: "Total number of research sessions created",
		}),

		// Outcomes: "completed", "fallback" (completed with the static
		// fallback result) or "failed"
		ResearchOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "deepresearch_research_outcomes_total",
			Help: "Total number of research runs by outcome",
		}, []string{"outcome"}),

		ResearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "deepresearch_research_duration_seconds",
			Help:    "End-to-end aggregation run latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120}, // up to the research timeout
		}),

		ProviderRecords: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "deepresearch_provider_records_total",
			Help: "Total number of normalized records returned per provider",
		}, []string{"provider"}),
	}

	// Gauge fed by the tracker so /metrics always shows live in-flight runs
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "deepresearch_research_active",
			Help: "Number of research aggregation runs currently in flight",
		},
		func() float64 {
			if tracker != nil {
				return float64(tracker.InFlight())
			}
			return 0
		},
	))

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordSessionCreated increments the session counter. Safe to call before
// InitMetrics (a no-op then), which keeps tests free of metric registration.
func RecordSessionCreated() {
	if globalMetrics != nil {
		globalMetrics.SessionsCreated.Inc()
	}
}

// RecordResearchOutcome counts one finished run by outcome.
func RecordResearchOutcome(outcome string) {
	if globalMetrics != nil {
		globalMetrics.ResearchOutcomes.WithLabelValues(outcome).Inc()
	}
}

// RecordResearchDuration observes one run's end-to-end latency.
func RecordResearchDuration(d time.Duration) {
	if globalMetrics != nil {
		globalMetrics.ResearchDuration.Observe(d.Seconds())
	}
}

// RecordProviderRecords counts normalized records contributed by a provider.
func RecordProviderRecords(provider string, count int) {
	if globalMetrics != nil && count > 0 {
		globalMetrics.ProviderRecords.WithLabelValues(provider).Add(float64(count))
	}
}
