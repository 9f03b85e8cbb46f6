package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrFutureCycle rejects reports for cycles that have not started.
	ErrFutureCycle = errors.New("future cycle")

	// ErrMissingProvider is returned by New when a required provider is nil.
	ErrMissingProvider = errors.New("missing provider")
)

func errMissingProvider(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingProvider, name)
}

// LoadError wraps a provider failure with the snapshot that failed.
type LoadError struct {
	Snapshot string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Snapshot, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
