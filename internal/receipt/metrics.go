package receipt

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "receipt_processor"

// Outcome label values
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeError    = "error"
	outcomeFound    = "found"
	outcomeNotFound = "not_found"
)

// Metrics holds the Prometheus instruments for the service. Each Metrics
// owns its registry. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// ProcessedTotal counts process requests by outcome (accepted, rejected, error)
	ProcessedTotal *prometheus.CounterVec

	// PointsAwarded observes the score of every accepted receipt
	PointsAwarded prometheus.Histogram

	// LookupsTotal counts points lookups by outcome (found, not_found, error)
	LookupsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on a fresh registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		ProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "receipts_processed_total",
				Help:      "Total receipts submitted for processing, by outcome",
			},
			[]string{"outcome"},
		),
		PointsAwarded: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "receipt_points",
				Help:      "Points awarded to accepted receipts",
				Buckets:   []float64{10, 25, 50, 75, 100, 150, 250, 500},
			},
		),
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "points_lookups_total",
				Help:      "Total points lookups, by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) recordProcessed(outcome string, points int) {
	if m == nil {
		return
	}
	m.ProcessedTotal.WithLabelValues(outcome).Inc()
	if outcome == outcomeAccepted {
		m.PointsAwarded.Observe(float64(points))
	}
}

func (m *Metrics) recordLookup(outcome string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(outcome).Inc()
}
