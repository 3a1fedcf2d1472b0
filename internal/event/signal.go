package event

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

// Signal is a dispatcher for events without a payload.
type Signal struct {
	d *Dispatcher[struct{}]
}

var _ AnyDispatcher = (*Signal)(nil)

// NewSignal creates a signal named after its event.
func NewSignal(name string, opts ...DispatcherOption) *Signal {
	return &Signal{d: NewDispatcher[struct{}](name, opts...)}
}

// Name returns the event name.
func (s *Signal) Name() string { return s.d.Name() }

// PayloadType returns nil; signals carry no payload.
func (s *Signal) PayloadType() reflect.Type { return nil }

// Len returns the number of handlers.
func (s *Signal) Len() int { return s.d.Len() }

// Instrumented reports whether the lazy instrumentation hook has run.
func (s *Signal) Instrumented() bool { return s.d.Instrumented() }

// SetInstrumenter replaces the lazy instrumentation hook.
func (s *Signal) SetInstrumenter(fn Instrumenter) { s.d.SetInstrumenter(fn) }

// SetExecutionLogging toggles debug logging of every raise.
func (s *Signal) SetExecutionLogging(enabled bool) { s.d.SetExecutionLogging(enabled) }

// Handlers returns the registered handlers in dispatch order.
func (s *Signal) Handlers() []HandlerInfo { return s.d.Handlers() }

// Stats returns a copy of the signal counters.
func (s *Signal) Stats() Stats { return s.d.Stats() }

// Subscribe registers a handler.
func (s *Signal) Subscribe(fn func(), opts ...SubscribeOption) error {
	return s.d.SubscribeObserver(fn, opts...)
}

// Unsubscribe removes a handler.
func (s *Signal) Unsubscribe(fn func(), opts ...SubscribeOption) bool {
	return s.d.UnsubscribeObserver(fn, opts...)
}

// SubscribeObserver is Subscribe.
func (s *Signal) SubscribeObserver(fn func(), opts ...SubscribeOption) error {
	return s.Subscribe(fn, opts...)
}

// UnsubscribeObserver is Unsubscribe.
func (s *Signal) UnsubscribeObserver(fn func(), opts ...SubscribeOption) bool {
	return s.Unsubscribe(fn, opts...)
}

// SubscribeAny accepts a func().
func (s *Signal) SubscribeAny(fn any, opts ...SubscribeOption) error {
	switch h := fn.(type) {
	case func():
		return s.Subscribe(h, opts...)
	case nil:
		return ErrNilHandler
	default:
		return errors.Wrapf(ErrHandlerType, "%s: got %T", s.Name(), fn)
	}
}

// UnsubscribeAny removes a handler registered with SubscribeAny.
func (s *Signal) UnsubscribeAny(fn any, opts ...SubscribeOption) bool {
	h, ok := fn.(func())
	return ok && s.Unsubscribe(h, opts...)
}

// Raise runs every handler in priority order.
func (s *Signal) Raise() {
	s.d.Dispatch(struct{}{})
}

// DispatchAny raises the signal. The payload must be nil.
func (s *Signal) DispatchAny(payload any) error {
	if payload != nil {
		return errors.Wrapf(ErrPayloadType, "%s takes no payload, got %T", s.Name(), payload)
	}
	s.Raise()
	return nil
}
