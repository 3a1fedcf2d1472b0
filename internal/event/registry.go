package event

import (
	"reflect"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/dshills/retrofit/internal/il"
)

// Entry binds an event to its dispatcher and the callables injected code uses.
type Entry struct {
	// Type is the event type.
	Type EventType

	// Name is the dispatcher name.
	Name string

	// Payload is the payload type, nil for signals.
	Payload reflect.Type

	// Dispatcher serves the event.
	Dispatcher AnyDispatcher

	// Ctor constructs the payload from host values. Nil for signals.
	Ctor *il.Ctor

	// Dispatch pops the payload (nothing for signals) and dispatches it.
	Dispatch *il.Func

	// IsAllowed pops a deniable payload and pushes whether it is allowed.
	// Nil when the payload is not deniable.
	IsAllowed *il.Func
}

// Deniable reports whether the payload can be vetoed.
func (e *Entry) Deniable() bool {
	return e.IsAllowed != nil
}

// Registry maps payload types and event types to their dispatchers.
// It is built once at startup.
type Registry struct {
	byPayload map[reflect.Type]*Entry
	byType    map[EventType]*Entry
	byName    map[string]*Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byPayload: make(map[reflect.Type]*Entry),
		byType:    make(map[EventType]*Entry),
		byName:    make(map[string]*Entry),
	}
}

// Register adds the dispatcher for payload type T.
func Register[T any](r *Registry, t EventType, d *Dispatcher[T], ctor *il.Ctor) error {
	payload := reflect.TypeFor[T]()
	if _, dup := r.byPayload[payload]; dup {
		return errors.Wrapf(ErrDuplicateEvent, "payload %s", payload)
	}
	e := &Entry{
		Type:       t,
		Name:       d.Name(),
		Payload:    payload,
		Dispatcher: d,
		Ctor:       ctor,
		Dispatch: &il.Func{
			Name:  d.Name() + ".Dispatch",
			NumIn: 1,
			Invoke: func(args []any) (any, error) {
				return nil, d.DispatchAny(args[0])
			},
		},
	}
	if payload.Implements(reflect.TypeFor[Deniable]()) {
		e.IsAllowed = &il.Func{
			Name:    d.Name() + ".IsAllowed",
			NumIn:   1,
			Returns: true,
			Invoke: func(args []any) (any, error) {
				den, ok := args[0].(Deniable)
				if !ok || isNilPayload(args[0]) {
					return nil, errors.Wrapf(ErrPayloadType, "%s: %T is not deniable", d.Name(), args[0])
				}
				return den.Allowed(), nil
			},
		}
	}
	if err := r.add(e); err != nil {
		return err
	}
	r.byPayload[payload] = e
	return nil
}

// RegisterSignal adds a payload-less event.
func RegisterSignal(r *Registry, t EventType, s *Signal) error {
	return r.add(&Entry{
		Type:       t,
		Name:       s.Name(),
		Dispatcher: s,
		Dispatch: &il.Func{
			Name: s.Name() + ".Raise",
			Invoke: func([]any) (any, error) {
				s.Raise()
				return nil, nil
			},
		},
	})
}

func (r *Registry) add(e *Entry) error {
	if _, dup := r.byName[e.Name]; dup {
		return errors.Wrapf(ErrDuplicateEvent, "name %q", e.Name)
	}
	if e.Type != EventNone {
		if _, dup := r.byType[e.Type]; dup {
			return errors.Wrapf(ErrDuplicateEvent, "event %s", e.Type)
		}
		r.byType[e.Type] = e
	}
	r.byName[e.Name] = e
	return nil
}

// Lookup returns the entry for payload type T.
func Lookup[T any](r *Registry) (*Entry, error) {
	return r.ByPayload(reflect.TypeFor[T]())
}

// LookupDispatcher returns the typed dispatcher for T.
func LookupDispatcher[T any](r *Registry) (*Dispatcher[T], error) {
	e, err := Lookup[T](r)
	if err != nil {
		return nil, err
	}
	d, ok := e.Dispatcher.(*Dispatcher[T])
	if !ok {
		return nil, errors.Wrapf(ErrPayloadType, "%s", e.Name)
	}
	return d, nil
}

// ByPayload returns the entry for a payload type.
func (r *Registry) ByPayload(t reflect.Type) (*Entry, error) {
	e, ok := r.byPayload[t]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEvent, "payload %v", t)
	}
	return e, nil
}

// ByType returns the entry for an event type.
func (r *Registry) ByType(t EventType) (*Entry, error) {
	e, ok := r.byType[t]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEvent, "event %s", t)
	}
	return e, nil
}

// ByName returns the entry for a dispatcher name.
func (r *Registry) ByName(name string) (*Entry, error) {
	e, ok := r.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEvent, "%q", name)
	}
	return e, nil
}

// Entries returns every entry ordered by event type, then name.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, 0, len(r.byName))
	for _, e := range r.byName {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SetInstrumenter wires every dispatcher's lazy hook to fn.
func (r *Registry) SetInstrumenter(fn func(EventType)) {
	for _, e := range r.Entries() {
		t := e.Type
		e.Dispatcher.SetInstrumenter(func() { fn(t) })
	}
}

// SetExecutionLogging toggles dispatch logging on every dispatcher.
func (r *Registry) SetExecutionLogging(enabled bool) {
	type toggler interface{ SetExecutionLogging(bool) }
	for _, e := range r.byName {
		if t, ok := e.Dispatcher.(toggler); ok {
			t.SetExecutionLogging(enabled)
		}
	}
}
