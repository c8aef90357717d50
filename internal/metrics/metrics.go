package metrics

import (
	"time"
)

// Collector receives ledger observability signals.
type Collector interface {
	// RecordOperation is called once per engine operation. outcome is "ok" or
	// an error class from models.ClassifyError.
	RecordOperation(op string, outcome string, duration time.Duration)

	// RecordPublish is called for every completion event handed to a publisher.
	RecordPublish(success bool)

	// RecordCircuitState reports a circuit breaker transition.
	RecordCircuitState(name string, state CircuitState)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector discards everything. It is the default collector.
type NoOpCollector struct{}

func (NoOpCollector) RecordOperation(op string, outcome string, duration time.Duration) {}

func (NoOpCollector) RecordPublish(success bool) {}

func (NoOpCollector) RecordCircuitState(name string, state CircuitState) {}
