package scoring

import (
	"errors"
	"fmt"
)

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrProductNotFound = errors.New("product not found")
	ErrRecordFetch     = errors.New("record fetch failed")
	ErrProvider        = errors.New("completion provider failed")
	ErrNoOutput        = errors.New("no output received")
	ErrInvalidJSON     = errors.New("invalid JSON response")
	ErrMissingField    = errors.New("missing required field")
)

// fitError keeps the caller-facing message while exposing the sentinel to errors.Is.
type fitError struct {
	message string
	cause   error
}

func (e *fitError) Error() string {
	return e.message
}

func (e *fitError) Unwrap() error {
	return e.cause
}

func newFitError(sentinel error, format string, args ...any) error {
	return &fitError{message: fmt.Sprintf(format, args...), cause: sentinel}
}

func contactNotFound(id string) error {
	return newFitError(ErrContactNotFound, "Contact not found: %s", id)
}

func productNotFound(id string) error {
	return newFitError(ErrProductNotFound, "Product not found: %s", id)
}

func missingField(key string) error {
	return newFitError(ErrMissingField, "missing required field: %s", key)
}

func providerFailed(err error) error {
	return &fitError{message: err.Error(), cause: errors.Join(ErrProvider, err)}
}

func fetchFailed(err error) error {
	return &fitError{message: err.Error(), cause: errors.Join(ErrRecordFetch, err)}
}
