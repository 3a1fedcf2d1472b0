package registration

import "github.com/cockroachdb/errors"

var (
	// ErrNilTarget is returned for a nil instance or table.
	ErrNilTarget = errors.New("nil registration target")

	// ErrUnknownMethod is returned when a marker names a missing method.
	ErrUnknownMethod = errors.New("marked method not found")

	// ErrBadSignature is returned for handlers that are not func() or
	// func(payload) without results.
	ErrBadSignature = errors.New("handler signature not supported")

	// ErrNoEvent is returned when no dispatcher can be inferred for a
	// zero-argument handler.
	ErrNoEvent = errors.New("zero-argument handler needs an explicit event")

	// ErrPayloadMismatch is returned when a handler's parameter does not
	// match the payload of its explicit event.
	ErrPayloadMismatch = errors.New("handler parameter does not match event payload")
)
