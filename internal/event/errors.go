package event

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors for dispatchers and the registry.
var (
	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrInvalidPriority is returned for priorities outside 0..1000.
	ErrInvalidPriority = errors.New("priority out of range")

	// ErrHandlerPanic is matched by every HandlerFault.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrDuplicateEvent is returned when a payload type or name is registered twice.
	ErrDuplicateEvent = errors.New("event already registered")

	// ErrUnknownEvent is returned when a registry lookup finds nothing.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrHandlerType is returned when an untyped handler does not match the
	// dispatcher's payload type.
	ErrHandlerType = errors.New("handler does not match event payload")

	// ErrPayloadType is returned when an untyped dispatch carries the wrong payload.
	ErrPayloadType = errors.New("payload does not match event")

	// ErrUncomparableReceiver is returned when a receiver cannot be used as a key.
	ErrUncomparableReceiver = errors.New("receiver is not comparable")
)

// HandlerFault describes a handler that panicked during dispatch.
type HandlerFault struct {
	// Event is the name of the event being dispatched.
	Event string

	// Handler is the handler's function name.
	Handler string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *HandlerFault) Error() string {
	return fmt.Sprintf("handler %s panicked on event %s: %v", e.Handler, e.Event, e.Value)
}

// Is allows errors.Is to match HandlerFault with ErrHandlerPanic.
func (e *HandlerFault) Is(target error) bool {
	return target == ErrHandlerPanic
}

// Unwrap returns the panic value when it was an error.
func (e *HandlerFault) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
