package inject

import (
	"reflect"
	"slices"

	"go.uber.org/zap"

	"github.com/dshills/retrofit/internal/event"
	"github.com/dshills/retrofit/internal/il"
)

// EventInjector splices a plain event of payload type T into a method body.
// The payload is constructed and dispatched; nothing reads it back, so T need
// not be deniable.
type EventInjector[T any] struct {
	*Injector

	registry    *event.Registry
	autoInsert  bool
	correlation *Correlation
}

// NewEvent creates an event injector that shares j's buffer.
func NewEvent[T any](j *Injector, registry *event.Registry) *EventInjector[T] {
	return &EventInjector[T]{
		Injector:   j,
		registry:   registry,
		autoInsert: true,
	}
}

// AutoInsertConstructorParameters controls whether constructor arguments are
// correlated and loaded automatically. When disabled the loads passed to
// InjectEvent and InjectEventOnExit are used instead.
func (d *EventInjector[T]) AutoInsertConstructorParameters(auto bool) *EventInjector[T] {
	d.autoInsert = auto
	return d
}

// Correlation returns the constructor correlation of the last injection.
func (d *EventInjector[T]) Correlation() *Correlation {
	return d.correlation
}

// InjectEvent inserts, at offset (or the cursor):
//
//	loads; newobj T; call Dispatch
//
// Labels on the instruction previously at offset move to the first inserted
// instruction.
func (d *EventInjector[T]) InjectEvent(offset int, loads ...il.Instruction) error {
	seq, err := d.sequence(loads)
	if err != nil {
		return d.fail(err)
	}
	at, err := d.resolve(offset)
	if err != nil {
		return d.fail(err)
	}
	if err := d.splice(at, seq); err != nil {
		return d.fail(err)
	}
	d.logger.Debug("event injected",
		zap.String("payload", d.payload()),
		zap.Int("offset", at),
		zap.Int("count", len(seq)),
	)
	return nil
}

// InjectEventOnExit inserts the event before every ret, so it is raised
// after the body ran whichever way it returns. Branches to a ret run the
// event first.
func (d *EventInjector[T]) InjectEventOnExit(loads ...il.Instruction) error {
	seq, err := d.sequence(loads)
	if err != nil {
		return d.fail(err)
	}
	rets := d.Snapshot().FindAll(il.IsOp(il.Ret))
	if len(rets) == 0 {
		return d.fail(&ConfigurationError{Method: d.method.FullName(), Payload: d.payload(), Err: ErrNoExit})
	}
	for _, at := range slices.Backward(rets) {
		if err := d.splice(at, il.CloneBody(seq)); err != nil {
			return d.fail(err)
		}
	}
	d.logger.Debug("event injected on exit",
		zap.String("payload", d.payload()),
		zap.Int("sites", len(rets)),
		zap.Int("count", len(seq)),
	)
	return nil
}

func (d *EventInjector[T]) sequence(loads []il.Instruction) ([]il.Instruction, error) {
	method := d.method.FullName()
	entry, err := event.Lookup[T](d.registry)
	if err != nil || entry.Ctor == nil {
		return nil, &ConfigurationError{Method: method, Payload: d.payload(), Err: ErrNoDispatcher}
	}

	var seq []il.Instruction
	if d.autoInsert {
		corr, err := Correlate(d.work, entry.Ctor)
		if err != nil {
			return nil, err
		}
		d.correlation = corr
		seq = append(seq, corr.Loads()...)
	} else {
		seq = append(seq, il.CloneBody(loads)...)
	}
	return append(seq,
		il.New(il.NewObj, entry.Ctor),
		il.New(il.Call, entry.Dispatch),
	), nil
}

func (d *EventInjector[T]) splice(at int, seq []il.Instruction) error {
	hadOriginal := at < d.Len()
	if err := d.InjectAt(at, seq...); err != nil {
		return err
	}
	if !hadOriginal {
		return nil
	}
	return d.MoveLabels(at+len(seq), at)
}

func (d *EventInjector[T]) payload() string {
	return reflect.TypeFor[T]().String()
}

func (d *EventInjector[T]) fail(err error) error {
	d.logger.Warn("event not injected",
		zap.String("payload", d.payload()),
		zap.Error(err),
	)
	return err
}
