package inject

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/dshills/retrofit/internal/event"
	"github.com/dshills/retrofit/internal/il"
)

// DeniableEventInjector splices a deniable event of payload type T into a
// method body.
type DeniableEventInjector[T event.Deniable] struct {
	*Injector

	registry    *event.Registry
	autoInsert  bool
	createLocal bool
	local       int
	correlation *Correlation
}

// NewDeniable creates a deniable event injector that shares j's buffer.
func NewDeniable[T event.Deniable](j *Injector, registry *event.Registry) *DeniableEventInjector[T] {
	return &DeniableEventInjector[T]{
		Injector:   j,
		registry:   registry,
		autoInsert: true,
		local:      -1,
	}
}

// AutoInsertConstructorParameters controls whether constructor arguments are
// loaded automatically. When disabled the caller must have pushed them, in
// constructor order, immediately before the injection offset.
func (d *DeniableEventInjector[T]) AutoInsertConstructorParameters(auto bool) *DeniableEventInjector[T] {
	d.autoInsert = auto
	return d
}

// CreateLocalForPayload stores the payload in a new local so code after the
// injection can read it back with ldloc PayloadLocal().
func (d *DeniableEventInjector[T]) CreateLocalForPayload(create bool) *DeniableEventInjector[T] {
	d.createLocal = create
	return d
}

// PayloadLocal returns the payload local slot, or -1.
func (d *DeniableEventInjector[T]) PayloadLocal() int {
	return d.local
}

// Correlation returns the constructor correlation of the last injection.
func (d *DeniableEventInjector[T]) Correlation() *Correlation {
	return d.correlation
}

// InjectDeniableEvent inserts, at offset (or the cursor):
//
//	[loads] newobj T; dup; [dup; stloc local]; call Dispatch; callvirt IsAllowed; brfalse exit
//
// where exit is a new label on the method's last ret. Labels on the
// instruction previously at offset move to the first inserted instruction, so
// branches into that point run the event first. On error the buffer is left
// unchanged.
func (d *DeniableEventInjector[T]) InjectDeniableEvent(offset int) error {
	payload := reflect.TypeFor[T]().String()
	method := d.method.FullName()
	fail := func(err error) error {
		d.logger.Warn("deniable event not injected",
			zap.String("payload", payload),
			zap.Error(err),
		)
		return err
	}

	entry, err := event.Lookup[T](d.registry)
	if err != nil {
		return fail(&ConfigurationError{Method: method, Payload: payload, Err: ErrNoDispatcher})
	}
	if !entry.Deniable() {
		return fail(&ConfigurationError{Method: method, Payload: payload, Err: ErrNotDeniable})
	}
	if entry.Ctor == nil {
		return fail(&ConfigurationError{Method: method, Payload: payload, Err: ErrNoDispatcher})
	}

	at, err := d.resolve(offset)
	if err != nil {
		return fail(err)
	}
	exit := d.Snapshot().FindLastIndex(il.IsOp(il.Ret))
	if exit < 0 {
		return fail(&ConfigurationError{Method: method, Payload: payload, Err: ErrNoExit})
	}

	var seq []il.Instruction
	if d.autoInsert {
		corr, err := Correlate(d.work, entry.Ctor)
		if err != nil {
			return fail(err)
		}
		d.correlation = corr
		seq = append(seq, corr.Loads()...)
	}

	label := d.DefineLabel()
	seq = append(seq, il.New(il.NewObj, entry.Ctor), il.Simple(il.Dup))
	if d.createLocal {
		d.local = d.DeclareLocal("ev"+entry.Name, payload)
		seq = append(seq, il.Simple(il.Dup), il.New(il.StLoc, d.local))
	}
	seq = append(seq,
		il.New(il.Call, entry.Dispatch),
		il.New(il.CallVirt, entry.IsAllowed),
		il.New(il.BrFalse, label),
	)

	hadOriginal := at < d.Len()
	if err := d.InjectAt(at, seq...); err != nil {
		return fail(err)
	}
	if hadOriginal {
		if err := d.MoveLabels(at+len(seq), at); err != nil {
			return fail(err)
		}
	}
	if exit >= at {
		exit += len(seq)
	}
	if err := d.AddLabel(exit, label); err != nil {
		return fail(err)
	}

	d.logger.Debug("deniable event injected",
		zap.String("payload", payload),
		zap.Int("offset", at),
		zap.Int("count", len(seq)),
		zap.Stringer("exit", label),
	)
	return nil
}
