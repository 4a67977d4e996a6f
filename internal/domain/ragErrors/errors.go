package ragErrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation covers missing or malformed input. Never retried.
	ErrValidation = errors.New("validation error")
	// ErrModelUnavailable means an embedding or completion backend could not load or answer.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrProviderExhausted means every configured completion provider failed for one request.
	ErrProviderExhausted = errors.New("all completion providers failed")
	// ErrStoreUnavailable means the vector store errored; the chat path degrades to keyword retrieval.
	ErrStoreUnavailable = errors.New("vector store unavailable")
	ErrRateLimited      = errors.New("rate limited")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func ModelUnavailable(cause error) error {
	return fmt.Errorf("%w: %w", ErrModelUnavailable, cause)
}

func StoreUnavailable(cause error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, cause)
}
