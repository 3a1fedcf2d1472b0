package event

import (
	"reflect"
	"runtime/debug"
	"slices"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// AnyDispatcher is the payload-agnostic view of a Dispatcher or Signal used by
// the registry, the registration facade and script hosts.
type AnyDispatcher interface {
	Name() string
	PayloadType() reflect.Type
	Len() int
	Instrumented() bool
	SetInstrumenter(fn Instrumenter)
	Handlers() []HandlerInfo

	// SubscribeAny accepts func(T) or func().
	SubscribeAny(fn any, opts ...SubscribeOption) error
	UnsubscribeAny(fn any, opts ...SubscribeOption) bool
	SubscribeObserver(fn func(), opts ...SubscribeOption) error
	UnsubscribeObserver(fn func(), opts ...SubscribeOption) bool

	// DispatchAny dispatches a payload of the dispatcher's type, or nil for signals.
	DispatchAny(payload any) error
}

// Stats contains dispatcher counters.
type Stats struct {
	// Dispatched is the number of Dispatch calls.
	Dispatched uint64

	// HandlersExecuted is the number of handler invocations.
	HandlersExecuted uint64

	// HandlersSkipped is the number of typed handlers skipped due to denial.
	HandlersSkipped uint64

	// HandlerPanics is the number of recovered handler panics.
	HandlerPanics uint64
}

// Dispatcher delivers payloads of type T to subscribed handlers.
type Dispatcher[T any] struct {
	name    string
	records []*record[T]

	instrumenter Instrumenter
	instrumented bool

	logger       *zap.Logger
	logExecution bool
	stats        Stats
}

var _ AnyDispatcher = (*Dispatcher[struct{}])(nil)

// NewDispatcher creates a dispatcher named after its event.
func NewDispatcher[T any](name string, opts ...DispatcherOption) *Dispatcher[T] {
	cfg := dispatcherConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Dispatcher[T]{
		name:         name,
		instrumenter: cfg.instrumenter,
		logger:       cfg.logger.With(zap.String("event", name)),
		logExecution: cfg.logExecution,
	}
}

// Name returns the event name.
func (d *Dispatcher[T]) Name() string {
	return d.name
}

// PayloadType returns the reflect type of T.
func (d *Dispatcher[T]) PayloadType() reflect.Type {
	return reflect.TypeFor[T]()
}

// Len returns the number of registered handlers, observers included.
func (d *Dispatcher[T]) Len() int {
	return len(d.records)
}

// Instrumented reports whether the lazy instrumentation hook has run.
func (d *Dispatcher[T]) Instrumented() bool {
	return d.instrumented
}

// SetInstrumenter replaces the lazy instrumentation hook. If handlers are
// already registered and the hook has not run yet, it runs now.
func (d *Dispatcher[T]) SetInstrumenter(fn Instrumenter) {
	d.instrumenter = fn
	if len(d.records) > 0 {
		d.instrument()
	}
}

// SetExecutionLogging toggles debug logging of every dispatch.
func (d *Dispatcher[T]) SetExecutionLogging(enabled bool) {
	d.logExecution = enabled
}

// Stats returns a copy of the dispatcher counters.
func (d *Dispatcher[T]) Stats() Stats {
	return d.stats
}

// Handlers returns the registered handlers in dispatch order.
func (d *Dispatcher[T]) Handlers() []HandlerInfo {
	out := make([]HandlerInfo, len(d.records))
	for i, r := range d.records {
		out[i] = r.info()
	}
	return out
}

// Subscribe registers a typed handler. Subscribing the same function and
// receiver twice is a no-op.
func (d *Dispatcher[T]) Subscribe(fn func(T), opts ...SubscribeOption) error {
	if fn == nil {
		return ErrNilHandler
	}
	return d.add(fn, &record[T]{typed: fn}, opts)
}

// SubscribeObserver registers a zero-argument handler that runs after every
// typed handler when the payload is still allowed.
func (d *Dispatcher[T]) SubscribeObserver(fn func(), opts ...SubscribeOption) error {
	if fn == nil {
		return ErrNilHandler
	}
	return d.add(fn, &record[T]{observer: fn}, opts)
}

// Unsubscribe removes a typed handler. Removing an unknown handler is a no-op
// that returns false.
func (d *Dispatcher[T]) Unsubscribe(fn func(T), opts ...SubscribeOption) bool {
	if fn == nil {
		return false
	}
	return d.remove(fn, false, opts)
}

// UnsubscribeObserver removes an observer.
func (d *Dispatcher[T]) UnsubscribeObserver(fn func(), opts ...SubscribeOption) bool {
	if fn == nil {
		return false
	}
	return d.remove(fn, true, opts)
}

// SubscribeAny registers fn, which must be a func(T) or a func().
func (d *Dispatcher[T]) SubscribeAny(fn any, opts ...SubscribeOption) error {
	switch h := fn.(type) {
	case func(T):
		return d.Subscribe(h, opts...)
	case func():
		return d.SubscribeObserver(h, opts...)
	case nil:
		return ErrNilHandler
	default:
		return errors.Wrapf(ErrHandlerType, "%s: got %T", d.name, fn)
	}
}

// UnsubscribeAny removes a handler registered with SubscribeAny.
func (d *Dispatcher[T]) UnsubscribeAny(fn any, opts ...SubscribeOption) bool {
	switch h := fn.(type) {
	case func(T):
		return d.Unsubscribe(h, opts...)
	case func():
		return d.UnsubscribeObserver(h, opts...)
	default:
		return false
	}
}

// DispatchAny dispatches payload after checking its type.
func (d *Dispatcher[T]) DispatchAny(payload any) error {
	p, ok := payload.(T)
	if !ok {
		return errors.Wrapf(ErrPayloadType, "%s: got %T", d.name, payload)
	}
	d.Dispatch(p)
	return nil
}

func (d *Dispatcher[T]) add(fn any, r *record[T], opts []SubscribeOption) error {
	cfg := newSubscribeConfig(opts)
	if err := cfg.priority.Validate(); err != nil {
		return err
	}
	key, err := makeKey(fn, cfg)
	if err != nil {
		return err
	}
	if d.find(key, r.isObserver()) >= 0 {
		return nil
	}
	r.key = key
	r.priority = cfg.priority
	r.runsWhenDenied = cfg.runsWhenDenied
	r.autoManaged = cfg.autoManaged

	pos := slices.IndexFunc(d.records, r.before)
	if pos < 0 {
		d.records = append(d.records, r)
	} else {
		d.records = slices.Insert(d.records, pos, r)
	}

	d.logger.Debug("handler subscribed",
		zap.String("handler", key.String()),
		zap.Stringer("priority", cfg.priority),
		zap.Bool("observer", r.isObserver()),
	)
	d.instrument()
	return nil
}

func (d *Dispatcher[T]) remove(fn any, observer bool, opts []SubscribeOption) bool {
	key, err := makeKey(fn, newSubscribeConfig(opts))
	if err != nil {
		return false
	}
	i := d.find(key, observer)
	if i < 0 {
		return false
	}
	d.records = slices.Delete(d.records, i, i+1)
	d.logger.Debug("handler unsubscribed", zap.String("handler", key.String()))
	return true
}

func (d *Dispatcher[T]) find(key handlerKey, observer bool) int {
	return slices.IndexFunc(d.records, func(r *record[T]) bool {
		return r.key == key && r.isObserver() == observer
	})
}

func (d *Dispatcher[T]) instrument() {
	if d.instrumented || d.instrumenter == nil {
		return
	}
	d.instrumented = true
	d.logger.Debug("instrumenting on first subscription")
	d.instrumenter()
}

// Dispatch delivers payload to every eligible handler in order.
func (d *Dispatcher[T]) Dispatch(payload T) {
	d.stats.Dispatched++
	if d.logExecution {
		d.logger.Debug("dispatch", zap.Int("handlers", len(d.records)))
	}

	// Handlers may subscribe or unsubscribe while running.
	records := slices.Clone(d.records)
	deniable, isDeniable := any(payload).(Deniable)
	if isDeniable && isNilPayload(payload) {
		isDeniable = false
	}

	for _, r := range records {
		if r.isObserver() {
			continue
		}
		if isDeniable && !deniable.Allowed() && !r.runsWhenDenied {
			d.stats.HandlersSkipped++
			continue
		}
		d.invoke(r, func() { r.typed(payload) })
		if isDeniable && deniable.HardDenied() {
			d.logger.Debug("hard denied", zap.String("handler", r.key.String()))
			return
		}
	}

	if isDeniable && !deniable.Allowed() {
		if d.logExecution {
			d.logger.Debug("denied")
		}
		return
	}

	for _, r := range records {
		if r.isObserver() {
			d.invoke(r, r.observer)
		}
	}
}

func (d *Dispatcher[T]) invoke(r *record[T], call func()) {
	d.stats.HandlersExecuted++
	defer func() {
		if v := recover(); v != nil {
			d.stats.HandlerPanics++
			fault := &HandlerFault{
				Event:   d.name,
				Handler: r.key.String(),
				Value:   v,
				Stack:   string(debug.Stack()),
			}
			d.logger.Error("handler fault",
				zap.String("handler", fault.Handler),
				zap.Error(fault),
				zap.String("stack", fault.Stack),
			)
		}
	}()
	call()
}

func isNilPayload(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
