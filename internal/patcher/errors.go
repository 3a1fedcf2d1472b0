package patcher

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors for the coordinator.
var (
	// ErrUnknownCandidate is returned when a candidate name is not registered.
	ErrUnknownCandidate = errors.New("unknown candidate")

	// ErrDuplicateCandidate is returned when two candidates share a name.
	ErrDuplicateCandidate = errors.New("duplicate candidate")

	// ErrNoRewrite is returned for a candidate without a rewrite function.
	ErrNoRewrite = errors.New("candidate has no rewrite")

	// ErrMethodDisabled is returned when applying a candidate whose method
	// is disabled.
	ErrMethodDisabled = errors.New("method disabled")

	// ErrRewritePanic is matched by faults caused by a panicking rewrite.
	ErrRewritePanic = errors.New("rewrite panicked")
)

// InstrumentationFault reports a candidate that could not be applied.
type InstrumentationFault struct {
	// Candidate is the candidate name.
	Candidate string

	// Method is the target method's full name.
	Method string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *InstrumentationFault) Error() string {
	return fmt.Sprintf("candidate %s on %s: %v", e.Candidate, e.Method, e.Err)
}

// Unwrap returns the underlying error.
func (e *InstrumentationFault) Unwrap() error {
	return e.Err
}
