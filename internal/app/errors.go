package app

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Application errors.
var (
	// ErrInitialization indicates a bootstrap failure.
	ErrInitialization = errors.New("initialization failed")

	// ErrClosed is returned by an Application after Close.
	ErrClosed = errors.New("application closed")
)

// InitError is a component that failed to initialize.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Component, e.Err)
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error {
	return e.Err
}

// Is matches ErrInitialization.
func (e *InitError) Is(target error) bool {
	return target == ErrInitialization
}
