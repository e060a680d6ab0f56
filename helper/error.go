package helper

import (
	"errors"
	"fmt"
)

// Error kinds used across the library. Callers match them with errors.Is.
var (
	// ErrConfiguration covers missing credentials or invalid parameters
	// detected at construction time. Not retryable.
	ErrConfiguration = errors.New("configuration error")
	// ErrProvider covers failed embedding or generative model calls.
	ErrProvider = errors.New("provider error")
	// ErrStore covers persistence layer failures, including constraint
	// violations like an embedding dimension mismatch.
	ErrStore = errors.New("store error")
	// ErrValidation covers bad input rejected before any provider or store call.
	ErrValidation = errors.New("validation error")
	// ErrUnsupportedFormat covers file extensions outside the supported set.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Error wraps an underlying error with the operation that failed and an
// optional error kind.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("%v in %v: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("error in %v: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches the error kind, so that
// errors.Is(err, helper.ErrStore) works across wrapping.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// NewError wraps err with the operation that failed.
func NewError(op string, err error) error {
	return &Error{Op: op, Err: err}
}

// NewConfigurationError wraps err as a configuration error.
func NewConfigurationError(op string, err error) error {
	return &Error{Op: op, Kind: ErrConfiguration, Err: err}
}

// NewProviderError wraps err as a provider error.
func NewProviderError(op string, err error) error {
	return &Error{Op: op, Kind: ErrProvider, Err: err}
}

// NewStoreError wraps err as a store error.
func NewStoreError(op string, err error) error {
	return &Error{Op: op, Kind: ErrStore, Err: err}
}

// NewValidationError wraps err as a validation error.
func NewValidationError(op string, err error) error {
	return &Error{Op: op, Kind: ErrValidation, Err: err}
}

// NewUnsupportedFormatError wraps err as an unsupported format error.
func NewUnsupportedFormatError(op string, err error) error {
	return &Error{Op: op, Kind: ErrUnsupportedFormat, Err: err}
}
