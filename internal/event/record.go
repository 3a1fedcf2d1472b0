package event

import (
	"reflect"
	"runtime"

	"github.com/cockroachdb/errors"
)

// handlerKey identifies a subscription: code identity plus receiver.
type handlerKey struct {
	code     uintptr
	name     string
	receiver any
}

func makeKey(fn any, cfg subscribeConfig) (handlerKey, error) {
	if cfg.receiver != nil && !reflect.TypeOf(cfg.receiver).Comparable() {
		return handlerKey{}, errors.Wrapf(ErrUncomparableReceiver, "%T", cfg.receiver)
	}
	if cfg.name != "" {
		return handlerKey{name: cfg.name, receiver: cfg.receiver}, nil
	}
	return handlerKey{code: reflect.ValueOf(fn).Pointer(), receiver: cfg.receiver}, nil
}

func (k handlerKey) String() string {
	if k.name != "" {
		return k.name
	}
	if f := runtime.FuncForPC(k.code); f != nil {
		return f.Name()
	}
	return "unknown"
}

// HandlerInfo describes a registered handler.
type HandlerInfo struct {
	Name           string
	Priority       Priority
	RunsWhenDenied bool
	AutoManaged    bool
	Observer       bool
	Receiver       any
}

type record[T any] struct {
	key            handlerKey
	priority       Priority
	runsWhenDenied bool
	autoManaged    bool
	typed          func(T)
	observer       func()
}

func (r *record[T]) isObserver() bool {
	return r.observer != nil
}

// before reports whether r orders ahead of other. Equal records keep
// registration order.
func (r *record[T]) before(other *record[T]) bool {
	if r.isObserver() != other.isObserver() {
		return !r.isObserver()
	}
	return r.priority > other.priority
}

func (r *record[T]) info() HandlerInfo {
	return HandlerInfo{
		Name:           r.key.String(),
		Priority:       r.priority,
		RunsWhenDenied: r.runsWhenDenied,
		AutoManaged:    r.autoManaged,
		Observer:       r.isObserver(),
		Receiver:       r.key.receiver,
	}
}
