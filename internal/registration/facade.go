package registration

import (
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dshills/retrofit/internal/event"
)

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the facade logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Facade) {
		if logger != nil {
			f.logger = logger
		}
	}
}

type subKey struct {
	receiver any
	name     string
}

// Facade subscribes and unsubscribes tagged handlers.
// It is not safe for concurrent use.
type Facade struct {
	registry *event.Registry
	logger   *zap.Logger
	subs     map[subKey]event.AnyDispatcher
}

// New creates a facade over registry.
func New(registry *event.Registry, opts ...Option) *Facade {
	f := &Facade{
		registry: registry,
		logger:   zap.NewNop(),
		subs:     make(map[subKey]event.AnyDispatcher),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// handler is one resolved marker.
type handler struct {
	marker   Marker
	fn       reflect.Value
	receiver any
	name     string
}

func (h *handler) options() []event.SubscribeOption {
	opts := []event.SubscribeOption{
		event.WithName(h.name),
		event.WithReceiver(h.receiver),
		event.WithPriority(h.marker.Priority),
		event.WithAutoManaged(h.marker.AutoManaged),
	}
	if h.marker.RunsWhenDenied {
		opts = append(opts, event.RunWhenDenied())
	}
	return opts
}

// RegisterEvents subscribes every auto-managed marker of instance and returns
// the number of new subscriptions.
func (f *Facade) RegisterEvents(instance Tagged) (int, error) {
	handlers, err := f.instanceHandlers(instance)
	if err != nil {
		return 0, err
	}
	return f.register(handlers), nil
}

// UnregisterEvents removes what RegisterEvents subscribed for instance.
func (f *Facade) UnregisterEvents(instance Tagged) (int, error) {
	handlers, err := f.instanceHandlers(instance)
	if err != nil {
		return 0, err
	}
	return f.unregister(handlers), nil
}

// RegisterStaticEvents subscribes every auto-managed marker of table.
func (f *Facade) RegisterStaticEvents(table StaticTagged) (int, error) {
	handlers, err := f.staticHandlers(table)
	if err != nil {
		return 0, err
	}
	return f.register(handlers), nil
}

// UnregisterStaticEvents removes what RegisterStaticEvents subscribed for table.
func (f *Facade) UnregisterStaticEvents(table StaticTagged) (int, error) {
	handlers, err := f.staticHandlers(table)
	if err != nil {
		return 0, err
	}
	return f.unregister(handlers), nil
}

// Registered returns the number of live subscriptions made by the facade.
func (f *Facade) Registered() int {
	return len(f.subs)
}

func (f *Facade) instanceHandlers(instance Tagged) ([]handler, error) {
	if isNil(instance) {
		return nil, ErrNilTarget
	}
	if !reflect.TypeOf(instance).Comparable() {
		return nil, errors.Wrapf(event.ErrUncomparableReceiver, "%T", instance)
	}
	v := reflect.ValueOf(instance)
	var out []handler
	for _, m := range instance.EventMarkers() {
		fn := v.MethodByName(m.Method)
		if !fn.IsValid() {
			f.skip(m, errors.Wrapf(ErrUnknownMethod, "%T.%s", instance, m.Method))
			continue
		}
		out = append(out, handler{
			marker:   m,
			fn:       fn,
			receiver: instance,
			name:     fmt.Sprintf("%T.%s", instance, m.Method),
		})
	}
	return out, nil
}

func (f *Facade) staticHandlers(table StaticTagged) ([]handler, error) {
	if isNil(table) {
		return nil, ErrNilTarget
	}
	// Tables are often plain structs of funcs, which are not comparable.
	var receiver any = fmt.Sprintf("%T", table)
	if reflect.TypeOf(table).Comparable() {
		receiver = table
	}
	var out []handler
	for _, m := range table.StaticEventMarkers() {
		fn := reflect.ValueOf(m.Func)
		if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
			f.skip(m.Marker, errors.Wrapf(ErrBadSignature, "%s is %T", m.Method, m.Func))
			continue
		}
		out = append(out, handler{
			marker:   m.Marker,
			fn:       fn,
			receiver: receiver,
			name:     fmt.Sprintf("%T.%s", table, m.Method),
		})
	}
	return out, nil
}

func (f *Facade) register(handlers []handler) int {
	n := 0
	for i := range handlers {
		h := &handlers[i]
		if !h.marker.AutoManaged {
			f.logger.Debug("marker not auto-managed", zap.String("handler", h.name))
			continue
		}
		key := subKey{receiver: h.receiver, name: h.name}
		if _, dup := f.subs[key]; dup {
			continue
		}
		d, err := f.resolve(h)
		if err != nil {
			f.skip(h.marker, errors.Wrap(err, h.name))
			continue
		}
		if err := d.SubscribeAny(h.fn.Interface(), h.options()...); err != nil {
			f.skip(h.marker, errors.Wrap(err, h.name))
			continue
		}
		f.subs[key] = d
		n++
		f.logger.Debug("handler registered",
			zap.String("handler", h.name),
			zap.String("event", d.Name()),
			zap.Stringer("priority", h.marker.Priority),
		)
	}
	return n
}

func (f *Facade) unregister(handlers []handler) int {
	n := 0
	for i := range handlers {
		h := &handlers[i]
		key := subKey{receiver: h.receiver, name: h.name}
		d, ok := f.subs[key]
		if !ok {
			continue
		}
		if d.UnsubscribeAny(h.fn.Interface(), h.options()...) {
			n++
		}
		delete(f.subs, key)
	}
	return n
}

// resolve picks the dispatcher for a handler.
func (f *Facade) resolve(h *handler) (event.AnyDispatcher, error) {
	ft := h.fn.Type()
	if ft.NumOut() != 0 || ft.NumIn() > 1 || ft.IsVariadic() {
		return nil, errors.Wrapf(ErrBadSignature, "%s", ft)
	}

	if h.marker.Event != event.EventNone {
		e, err := f.registry.ByType(h.marker.Event)
		if err != nil {
			return nil, err
		}
		if ft.NumIn() == 1 && ft.In(0) != e.Payload {
			return nil, errors.Wrapf(ErrPayloadMismatch, "%s takes %s, %s carries %v", h.name, ft.In(0), e.Name, e.Payload)
		}
		return e.Dispatcher, nil
	}

	if ft.NumIn() == 0 {
		return nil, ErrNoEvent
	}
	e, err := f.registry.ByPayload(ft.In(0))
	if err != nil {
		return nil, err
	}
	return e.Dispatcher, nil
}

func (f *Facade) skip(m Marker, err error) {
	f.logger.Warn("handler skipped",
		zap.String("method", m.Method),
		zap.Stringer("event", m.Event),
		zap.Error(err),
	)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
