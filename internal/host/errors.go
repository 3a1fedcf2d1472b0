package host

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/dshills/retrofit/internal/il"
)

// Sentinel errors for image loading and execution.
var (
	// ErrUnknownType is returned when a type is not part of the image.
	ErrUnknownType = errors.New("unknown host type")

	// ErrUnknownMethod is returned when a method is not declared on a type.
	ErrUnknownMethod = errors.New("unknown host method")

	// ErrUnknownNative is returned when a body calls a native that is not bound.
	ErrUnknownNative = errors.New("unknown native")

	// ErrSyntax is returned for malformed instruction listings.
	ErrSyntax = errors.New("syntax error")

	// ErrStackUnderflow is returned when an instruction pops an empty stack.
	ErrStackUnderflow = errors.New("stack underflow")

	// ErrArity is returned when a method is invoked with the wrong argument count.
	ErrArity = errors.New("wrong number of arguments")

	// ErrStepLimit is returned when execution exceeds the configured step limit.
	ErrStepLimit = errors.New("step limit exceeded")

	// ErrUnknownLabel is returned when a branch targets a label not in the body.
	ErrUnknownLabel = errors.New("unknown label")

	// ErrNilReceiver is returned when callvirt or a field access meets nil.
	ErrNilReceiver = errors.New("nil receiver")

	// ErrTypeMismatch is returned when an operand value has the wrong type.
	ErrTypeMismatch = errors.New("type mismatch")
)

// ExecError describes a failure at a specific instruction.
type ExecError struct {
	Method string
	Index  int
	Op     il.Opcode
	Err    error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	return fmt.Sprintf("%s+%04d %s: %v", e.Method, e.Index, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecError) Unwrap() error {
	return e.Err
}
