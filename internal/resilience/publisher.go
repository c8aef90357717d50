package resilience

import (
	"context"
	"errors"
	"time"

	interfaces "github.com/sheikh-saqib/atm-ledger/internal/interfaces"
	"github.com/sheikh-saqib/atm-ledger/internal/logging"
	"github.com/sheikh-saqib/atm-ledger/internal/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while the breaker rejects publishes.
var ErrCircuitOpen = errors.New("resilience: circuit breaker open")

// Config configures the breaker around an event publisher.
type Config struct {
	// Name labels logs and metrics
	Name string

	// Timeout bounds a single publish. Zero disables it.
	Timeout time.Duration

	// MaxRequests allowed through while half-open
	MaxRequests uint32

	// Interval after which closed-state counts are cleared. Zero never clears.
	Interval time.Duration

	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration

	// ConsecutiveFailures that trip the breaker
	ConsecutiveFailures uint32
}

// DefaultConfig returns sensible defaults for a broker publisher.
func DefaultConfig() Config {
	return Config{
		Name:                "kafka",
		Timeout:             2 * time.Second,
		MaxRequests:         1,
		Interval:            60 * time.Second,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Publisher wraps an EventPublisher with a circuit breaker and a per-call timeout,
// so a dead broker costs the ledger one fast error instead of a hung request.
type Publisher struct {
	next    interfaces.EventPublisher
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  *logging.Logger
}

func NewPublisher(next interfaces.EventPublisher, config Config, collector metrics.Collector, logger *logging.Logger) *Publisher {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	logger = logger.Named("resilience").Named(config.Name)

	threshold := config.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			collector.RecordCircuitState(name, toCircuitState(to))
		},
	}

	return &Publisher{
		next:    next,
		cb:      gobreaker.NewCircuitBreaker(settings),
		timeout: config.Timeout,
		logger:  logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.next.Publish(ctx, topic, event)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// State reports the breaker's current state.
func (p *Publisher) State() metrics.CircuitState {
	return toCircuitState(p.cb.State())
}

func toCircuitState(s gobreaker.State) metrics.CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
