package inject

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors for body rewrites.
var (
	// ErrLabeledRemoval is returned when a removal would orphan a label.
	ErrLabeledRemoval = errors.New("cannot remove an instruction that carries a label")

	// ErrOutOfRange is returned for offsets or counts outside the body.
	ErrOutOfRange = errors.New("offset out of range")

	// ErrNoExit is returned when a body has no ret to branch to.
	ErrNoExit = errors.New("method has no exit point")

	// ErrUnresolvedParameter is matched by a ConfigurationError for a
	// constructor parameter that has no source.
	ErrUnresolvedParameter = errors.New("unresolved constructor parameter")

	// ErrAmbiguousParameter is matched by a ConfigurationError for a
	// constructor parameter with more than one candidate source.
	ErrAmbiguousParameter = errors.New("ambiguous constructor parameter")

	// ErrNoDispatcher is matched by a ConfigurationError when a payload type
	// has no registered dispatcher.
	ErrNoDispatcher = errors.New("no dispatcher for payload")

	// ErrNotDeniable is matched by a ConfigurationError when a payload type
	// cannot be denied.
	ErrNotDeniable = errors.New("payload is not deniable")
)

// ConfigurationError reports an injection site that cannot be wired.
// The method it names is left unmodified.
type ConfigurationError struct {
	// Method is the full name of the instrumented method.
	Method string

	// Payload is the payload type being injected.
	Payload string

	// Param is the constructor parameter at fault, empty when not applicable.
	Param string

	// Err is the underlying reason.
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("inject %s into %s: parameter %s: %v", e.Payload, e.Method, e.Param, e.Err)
	}
	return fmt.Sprintf("inject %s into %s: %v", e.Payload, e.Method, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
