package payment

import "fmt"

// ProviderError carries a payment provider's own failure message and HTTP
// status verbatim. Transport-level failures are not wrapped in it.
type ProviderError struct {
	Provider   string
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
}
