package index

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFamily is returned when a backend is invoked with an
	// address family it does not support. Picking another backend or
	// family is the caller's job; the error is not retryable.
	ErrUnsupportedFamily = errors.New("unsupported address family")

	// ErrCapacityExceeded is returned when a backend-internal counter or
	// id space is exhausted. The operation fails; prior state is intact.
	ErrCapacityExceeded = errors.New("index capacity exceeded")

	// ErrProviderConflict is returned by a single-provider interval tree
	// when a record from a second provider is inserted.
	ErrProviderConflict = errors.New("provider conflict")

	// ErrClosed is returned when an index is used after Close.
	ErrClosed = errors.New("index is closed")
)

// ErrUnknownIndex indicates that no backend is registered under the
// requested name or type.
type ErrUnknownIndex struct {
	Name string
}

func (e *ErrUnknownIndex) Error() string {
	return fmt.Sprintf("unknown index backend: %q", e.Name)
}
