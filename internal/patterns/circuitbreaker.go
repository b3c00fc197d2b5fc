package patterns

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/andenet/shop-backend/internal/metrics"
)

// ProviderBreaker guards calls to one payment provider. It never retries:
// its only job is to short-circuit initiation and verification calls while
// the provider is already failing.
type ProviderBreaker struct {
	cb       *gobreaker.CircuitBreaker
	provider string
}

// NewProviderBreaker creates a circuit breaker reported under the given
// provider name in metrics and logs.
func NewProviderBreaker(provider string) *ProviderBreaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(state)

			log.WithFields(log.Fields{
				"provider": name,
				"from":     from.String(),
				"to":       to.String(),
			}).Info("Provider circuit breaker state changed")
		},
	})

	metrics.CircuitBreakerState.WithLabelValues(provider).Set(0)

	return &ProviderBreaker{cb: cb, provider: provider}
}

// Execute runs one provider call through the breaker.
func (b *ProviderBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		metrics.CircuitBreakerFailures.WithLabelValues(b.provider).Inc()
	}
	return result, FormatError(b.provider, err)
}

// State returns the breaker state as a string for health reporting.
func (b *ProviderBreaker) State() string {
	return b.cb.State().String()
}

// FormatError rewrites gobreaker sentinel errors into messages that name the
// provider; everything else passes through untouched.
func FormatError(provider string, err error) error {
	if err == gobreaker.ErrOpenState {
		return fmt.Errorf("%s circuit breaker is open (provider unavailable)", provider)
	}
	if err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("%s circuit breaker: too many requests in half-open state", provider)
	}
	return err
}
