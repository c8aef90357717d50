package prometheus

import (
	"time"

	"github.com/sheikh-saqib/atm-ledger/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements metrics.Collector for Prometheus.
type PrometheusCollector struct {
	operations       *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	publishes        *prometheus.CounterVec
	circuitState     *prometheus.GaugeVec
	circuitOpens     *prometheus.CounterVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_operations_total",
				Help:      "Total number of ledger operations per operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		operationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_operation_duration_seconds",
				Help:      "Ledger operation latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Total number of completion events handed to the publisher",
			},
			[]string{"status"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens",
			},
			[]string{"name"},
		),
	}
}

// Register registers all metrics with the given Prometheus registry.
func (pc *PrometheusCollector) Register(registry *prometheus.Registry) error {
	collectors := []prometheus.Collector{
		pc.operations,
		pc.operationLatency,
		pc.publishes,
		pc.circuitState,
		pc.circuitOpens,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

func (pc *PrometheusCollector) RecordOperation(op string, outcome string, duration time.Duration) {
	pc.operations.WithLabelValues(op, outcome).Inc()
	pc.operationLatency.WithLabelValues(op).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordPublish(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	pc.publishes.WithLabelValues(status).Inc()
}

func (pc *PrometheusCollector) RecordCircuitState(name string, state metrics.CircuitState) {
	pc.circuitState.WithLabelValues(name).Set(float64(state))
	if state == metrics.CircuitOpen {
		pc.circuitOpens.WithLabelValues(name).Inc()
	}
}

var _ metrics.Collector = (*PrometheusCollector)(nil)
