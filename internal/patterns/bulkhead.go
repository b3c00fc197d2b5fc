package patterns

import (
	"fmt"
	"time"

	"github.com/andenet/shop-backend/internal/metrics"
)

// Bulkhead caps the number of in-flight calls to one payment provider so a
// slow provider cannot absorb every request handler.
type Bulkhead struct {
	semaphore chan struct{}
	provider  string
}

// NewBulkhead creates a bulkhead with the given capacity for a provider.
func NewBulkhead(size int, provider string) *Bulkhead {
	return &Bulkhead{
		semaphore: make(chan struct{}, size),
		provider:  provider,
	}
}

// Execute runs fn within the bulkhead's limits, rejecting the call if no slot
// frees up within a second.
func (b *Bulkhead) Execute(fn func() error) error {
	select {
	case b.semaphore <- struct{}{}:
		metrics.BulkheadActiveRequests.WithLabelValues(b.provider).Inc()
		defer func() {
			<-b.semaphore
			metrics.BulkheadActiveRequests.WithLabelValues(b.provider).Dec()
		}()
		return fn()

	case <-time.After(1 * time.Second):
		metrics.BulkheadRejectedRequests.WithLabelValues(b.provider).Inc()
		return fmt.Errorf("%s bulkhead: timeout acquiring slot", b.provider)
	}
}
