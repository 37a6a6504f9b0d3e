package repository

import (
	"errors"
	"fmt"
)

// Error kinds returned by every store adapter. Use errors.Is to test for them.
var (
	ErrNotFound   = errors.New("event not found")
	ErrConnection = errors.New("store unreachable")
	ErrQuery      = errors.New("store rejected request")
)

// StoreError carries the failing operation, its kind and the underlying cause.
type StoreError struct {
	Op   string
	Kind error
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Outcome labels for metrics.
const (
	OutcomeOK         = "ok"
	OutcomeNotFound   = "not_found"
	OutcomeConnection = "connection"
	OutcomeQuery      = "query"
)

// Outcome maps an adapter error to its metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrConnection):
		return OutcomeConnection
	default:
		return OutcomeQuery
	}
}
