package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")

	// ErrResourceUnavailable marks the generative capability as absent for the
	// process lifetime. It switches the pipeline into degraded mode and is never
	// surfaced per request.
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrSourceFailure is returned by answer sources that raised, timed out or
	// produced nothing usable.
	ErrSourceFailure = errors.New("source failure")
	ErrNoCandidate   = errors.New("no candidate")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
