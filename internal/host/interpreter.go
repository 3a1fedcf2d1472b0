package host

import (
	"context"
	"reflect"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dshills/retrofit/internal/il"
)

// DefaultStepLimit bounds a single invocation.
const DefaultStepLimit = 100_000

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithStepLimit sets the maximum number of executed instructions per Invoke.
// Zero or negative disables the limit.
func WithStepLimit(n int) Option {
	return func(in *Interpreter) {
		in.stepLimit = n
	}
}

// WithLogger sets the logger used for instruction tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(in *Interpreter) {
		in.logger = logger
	}
}

// WithTrace logs every executed instruction at debug level.
func WithTrace(enabled bool) Option {
	return func(in *Interpreter) {
		in.trace = enabled
	}
}

// Interpreter executes method bodies.
type Interpreter struct {
	stepLimit int
	trace     bool
	logger    *zap.Logger
}

// NewInterpreter creates an interpreter.
func NewInterpreter(opts ...Option) *Interpreter {
	in := &Interpreter{
		stepLimit: DefaultStepLimit,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

type frame struct {
	method *il.Method
	args   []any
	locals []any
	stack  []any
}

func (f *frame) push(v any) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop() (any, error) {
	if len(f.stack) == 0 {
		return nil, ErrStackUnderflow
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

// popN pops n values and returns them in push order.
func (f *frame) popN(n int) ([]any, error) {
	if len(f.stack) < n {
		return nil, ErrStackUnderflow
	}
	out := make([]any, n)
	copy(out, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return out, nil
}

func (f *frame) popInts() (int, int, error) {
	vals, err := f.popN(2)
	if err != nil {
		return 0, 0, err
	}
	a, okA := vals[0].(int)
	b, okB := vals[1].(int)
	if !okA || !okB {
		return 0, 0, errors.Wrapf(ErrTypeMismatch, "want int operands, got %T and %T", vals[0], vals[1])
	}
	return a, b, nil
}

// Invoke executes m with args. For instance methods args[0] is the receiver.
// It returns the top of stack at ret for non-void methods, nil otherwise.
func (in *Interpreter) Invoke(ctx context.Context, m *il.Method, args ...any) (any, error) {
	if len(args) != m.NumArgs() {
		return nil, errors.Wrapf(ErrArity, "%s: want %d, got %d", m.FullName(), m.NumArgs(), len(args))
	}

	// The body is read once so a concurrent rewrite is never half-observed.
	body := m.Body
	targets := make(map[il.Label]int)
	for i, ins := range body {
		for _, l := range ins.Labels {
			targets[l] = i
		}
	}

	f := &frame{
		method: m,
		args:   args,
		locals: make([]any, len(m.Locals)),
	}

	steps := 0
	pc := 0
	for pc < len(body) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		steps++
		if in.stepLimit > 0 && steps > in.stepLimit {
			return nil, &ExecError{Method: m.FullName(), Index: pc, Op: body[pc].Op, Err: ErrStepLimit}
		}

		ins := body[pc]
		if in.trace {
			in.logger.Debug("exec",
				zap.String("method", m.FullName()),
				zap.Int("pc", pc),
				zap.Stringer("ins", ins),
				zap.Int("depth", len(f.stack)),
			)
		}

		next, done, err := in.step(f, ins, pc, targets)
		if err != nil {
			return nil, &ExecError{Method: m.FullName(), Index: pc, Op: ins.Op, Err: err}
		}
		if done {
			if m.Returns != "" && len(f.stack) > 0 {
				return f.stack[len(f.stack)-1], nil
			}
			return nil, nil
		}
		pc = next
	}
	return nil, nil
}

func (in *Interpreter) step(f *frame, ins il.Instruction, pc int, targets map[il.Label]int) (int, bool, error) {
	switch ins.Op {
	case il.Nop:
	case il.LdArg:
		n, _ := ins.Operand.(int)
		if n < 0 || n >= len(f.args) {
			return 0, false, errors.Wrapf(il.ErrBadOperand, "argument %d of %d", n, len(f.args))
		}
		f.push(f.args[n])
	case il.LdLoc:
		n, _ := ins.Operand.(int)
		if n < 0 || n >= len(f.locals) {
			return 0, false, errors.Wrapf(il.ErrBadOperand, "local %d of %d", n, len(f.locals))
		}
		f.push(f.locals[n])
	case il.StLoc:
		n, _ := ins.Operand.(int)
		if n < 0 || n >= len(f.locals) {
			return 0, false, errors.Wrapf(il.ErrBadOperand, "local %d of %d", n, len(f.locals))
		}
		v, err := f.pop()
		if err != nil {
			return 0, false, err
		}
		f.locals[n] = v
	case il.LdcI4, il.LdcBool, il.LdStr:
		f.push(ins.Operand)
	case il.LdNull:
		f.push(nil)
	case il.Dup:
		v, err := f.pop()
		if err != nil {
			return 0, false, err
		}
		f.push(v)
		f.push(v)
	case il.Pop:
		if _, err := f.pop(); err != nil {
			return 0, false, err
		}
	case il.Add, il.Sub, il.Mul, il.Clt, il.Cgt:
		a, b, err := f.popInts()
		if err != nil {
			return 0, false, err
		}
		switch ins.Op {
		case il.Add:
			f.push(a + b)
		case il.Sub:
			f.push(a - b)
		case il.Mul:
			f.push(a * b)
		case il.Clt:
			f.push(a < b)
		case il.Cgt:
			f.push(a > b)
		}
	case il.Ceq:
		vals, err := f.popN(2)
		if err != nil {
			return 0, false, err
		}
		f.push(equal(vals[0], vals[1]))
	case il.Br, il.BrTrue, il.BrFalse:
		target, ok := ins.Target()
		if !ok {
			return 0, false, il.ErrBadOperand
		}
		taken := true
		if ins.Op.IsConditional() {
			v, err := f.pop()
			if err != nil {
				return 0, false, err
			}
			taken = truthy(v) == (ins.Op == il.BrTrue)
		}
		if taken {
			idx, found := targets[target]
			if !found {
				return 0, false, errors.Wrapf(ErrUnknownLabel, "%s", target)
			}
			return idx, false, nil
		}
	case il.NewObj:
		c, ok := ins.Operand.(*il.Ctor)
		if !ok || c == nil || c.New == nil {
			return 0, false, il.ErrBadOperand
		}
		args, err := f.popN(len(c.Params))
		if err != nil {
			return 0, false, err
		}
		v, err := c.New(args)
		if err != nil {
			return 0, false, errors.Wrapf(err, "newobj %s", c.Type)
		}
		f.push(v)
	case il.Call, il.CallVirt:
		fn, ok := ins.Operand.(*il.Func)
		if !ok || fn == nil || fn.Invoke == nil {
			return 0, false, il.ErrBadOperand
		}
		args, err := f.popN(fn.NumIn)
		if err != nil {
			return 0, false, err
		}
		if ins.Op == il.CallVirt && (len(args) == 0 || isNil(args[0])) {
			return 0, false, errors.Wrapf(ErrNilReceiver, "callvirt %s", fn.Name)
		}
		v, err := fn.Invoke(args)
		if err != nil {
			return 0, false, errors.Wrapf(err, "call %s", fn.Name)
		}
		if fn.Returns {
			f.push(v)
		}
	case il.LdFld:
		name, _ := ins.Operand.(il.Field)
		v, err := f.pop()
		if err != nil {
			return 0, false, err
		}
		obj, err := accessor(v)
		if err != nil {
			return 0, false, err
		}
		val, _ := obj.Field(string(name))
		f.push(val)
	case il.StFld:
		name, _ := ins.Operand.(il.Field)
		vals, err := f.popN(2)
		if err != nil {
			return 0, false, err
		}
		obj, err := accessor(vals[0])
		if err != nil {
			return 0, false, err
		}
		obj.SetField(string(name), vals[1])
	case il.Ret:
		return 0, true, nil
	default:
		return 0, false, errors.Wrapf(il.ErrUnknownOpcode, "%s", ins.Op)
	}
	return pc + 1, false, nil
}

func accessor(v any) (FieldAccessor, error) {
	if isNil(v) {
		return nil, ErrNilReceiver
	}
	obj, ok := v.(FieldAccessor)
	if !ok {
		return nil, errors.Wrapf(ErrTypeMismatch, "%T has no fields", v)
	}
	return obj, nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int:
		return x != 0
	default:
		return !isNil(v)
	}
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

func equal(a, b any) bool {
	if a == nil || b == nil {
		return isNil(a) && isNil(b)
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
