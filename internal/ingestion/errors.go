package ingestion

import "fmt"

// FetchError wraps a failed fetch from one provider.
type FetchError struct {
	Provider string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("provider %q fetch error: %v", e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ProviderError wraps a failed normalize or persist of one payload.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %q processing error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AllProvidersFailedError aggregates every error of an ingestion pass that
// produced zero successful updates.
type AllProvidersFailedError struct {
	Errors []error
}

func (e *AllProvidersFailedError) Error() string {
	return fmt.Sprintf("all providers failed with %d errors", len(e.Errors))
}

func (e *AllProvidersFailedError) Unwrap() []error { return e.Errors }
