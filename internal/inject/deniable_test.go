package inject_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dshills/retrofit/internal/event"
	"github.com/dshills/retrofit/internal/host"
	"github.com/dshills/retrofit/internal/il"
	"github.com/dshills/retrofit/internal/inject"
)

type opening struct {
	event.Denial
	Door  *host.Object
	Force int
}

type unregistered struct {
	event.Denial
}

var openingCtor = &il.Ctor{
	Type: "opening",
	Params: []il.Param{
		{Name: "door", Type: "Door"},
		{Name: "force", Type: "int"},
		{Name: "isAllowed", Type: "bool"},
	},
	New: func(args []any) (any, error) {
		door, _ := args[0].(*host.Object)
		return &opening{Door: door, Force: args[1].(int), Denial: event.Allow(args[2].(bool))}, nil
	},
}

type fixture struct {
	registry *event.Registry
	openings *event.Dispatcher[*opening]
	trace    []int
	traceFn  *il.Func
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		registry: event.NewRegistry(),
		openings: event.NewDispatcher[*opening]("Opening"),
	}
	require.NoError(t, event.Register(f.registry, event.UsingKey, f.openings, openingCtor))
	f.traceFn = &il.Func{Name: "Trace", NumIn: 1, Invoke: func(args []any) (any, error) {
		f.trace = append(f.trace, args[0].(int))
		return nil, nil
	}}
	return f
}

// scenarioBody has ten instructions; instruction 2 branches to index 5.
func (f *fixture) scenarioBody() *il.Method {
	return &il.Method{
		DeclaringType: "Door",
		Name:          "Open",
		Params:        []il.Param{{Name: "force", Type: "int"}},
		Body: []il.Instruction{
			il.New(il.LdArg, 0),
			il.New(il.LdArg, 1),
			il.New(il.BrTrue, il.Label(0)),
			il.Simple(il.Pop),
			il.Simple(il.Ret),
			il.New(il.LdcI4, 1).WithLabels(0),
			il.New(il.Call, f.traceFn),
			il.New(il.LdcI4, 2),
			il.New(il.Call, f.traceFn),
			il.Simple(il.Ret),
		},
	}
}

func TestCorrelate(t *testing.T) {
	f := newFixture(t)
	m := f.scenarioBody()

	corr, err := inject.Correlate(m, openingCtor)
	require.NoError(t, err)
	require.NoError(t, corr.Verify(
		inject.Expect{Param: "door", Kind: inject.FromReceiver, Arg: 0},
		inject.Expect{Param: "force", Kind: inject.FromParam, Arg: 1},
		inject.Expect{Param: "isAllowed", Kind: inject.FromLiteralTrue},
	))
	assert.Equal(t, []il.Instruction{
		il.New(il.LdArg, 0),
		il.New(il.LdArg, 1),
		il.New(il.LdcBool, true),
	}, corr.Loads())

	err = corr.Verify(inject.Expect{Param: "door", Kind: inject.FromReceiver})
	assert.Error(t, err, "wrong number of expectations")
	err = corr.Verify(
		inject.Expect{Param: "door", Kind: inject.FromReceiver},
		inject.Expect{Param: "force", Kind: inject.FromParam, Arg: 2},
		inject.Expect{Param: "isAllowed", Kind: inject.FromLiteralTrue},
	)
	assert.Error(t, err, "wrong arg slot")
}

func TestCorrelateStaticAndFailures(t *testing.T) {
	static := &il.Method{
		DeclaringType: "Door",
		Name:          "Slam",
		Static:        true,
		Params:        []il.Param{{Name: "door", Type: "Door"}, {Name: "force", Type: "int"}},
	}
	corr, err := inject.Correlate(static, openingCtor)
	require.NoError(t, err)
	require.NoError(t, corr.Verify(
		inject.Expect{Param: "door", Kind: inject.FromParam, Arg: 0},
		inject.Expect{Param: "force", Kind: inject.FromParam, Arg: 1},
		inject.Expect{Param: "isAllowed", Kind: inject.FromLiteralTrue},
	))

	tests := []struct {
		name   string
		params []il.Param
		want   error
	}{
		{
			name:   "missing",
			params: []il.Param{{Name: "strength", Type: "int"}},
			want:   inject.ErrUnresolvedParameter,
		},
		{
			name:   "type mismatch",
			params: []il.Param{{Name: "force", Type: "string"}},
			want:   inject.ErrUnresolvedParameter,
		},
		{
			name:   "ambiguous",
			params: []il.Param{{Name: "force", Type: "int"}, {Name: "force", Type: "int"}},
			want:   inject.ErrAmbiguousParameter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &il.Method{DeclaringType: "Door", Name: "Open", Params: tt.params}
			_, err := inject.Correlate(m, openingCtor)
			var cfgErr *inject.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, "Door.Open", cfgErr.Method)
		})
	}
}

// TestDeniableInjectionScenario injects at the target of an existing branch
// and checks that denial returns early through the relocated label.
func TestDeniableInjectionScenario(t *testing.T) {
	f := newFixture(t)
	m := f.scenarioBody()
	const k = 5

	j := inject.New(m)
	d := inject.NewDeniable[*opening](j, f.registry)
	require.NoError(t, d.InjectDeniableEvent(k))
	require.NoError(t, j.Commit())

	snap := il.NewSnapshot(m.Body)
	branch := snap.At(2)
	target, ok := branch.Target()
	require.True(t, ok)
	assert.Equal(t, k, snap.LabelTarget(target), "incoming branch must land on the first injected instruction")
	assert.Equal(t, il.LdArg, snap.At(k).Op)

	spans := j.Injected()
	require.Contains(t, spans, k)
	n := spans[k]
	assert.Equal(t, 8, n, "3 loads, newobj, dup, call, callvirt, brfalse")
	assert.Empty(t, snap.At(k+n).Labels, "original instruction gives up its labels")

	exit := snap.FindLastIndex(il.IsOp(il.Ret))
	brfalse, ok := snap.At(k + n - 1).Target()
	require.True(t, ok)
	assert.Equal(t, exit, snap.LabelTarget(brfalse))

	door := host.NewObject("Door", nil)
	in := host.NewInterpreter()

	// Allowed: the original code runs.
	_, err := in.Invoke(context.Background(), m, door, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, f.trace)

	// Denied: nothing from k on runs.
	f.trace = nil
	var seen *opening
	require.NoError(t, f.openings.Subscribe(func(p *opening) {
		seen = p
		p.SetAllowed(false)
	}))
	_, err = in.Invoke(context.Background(), m, door, 3)
	require.NoError(t, err)
	assert.Empty(t, f.trace)
	require.NotNil(t, seen)
	assert.Same(t, door, seen.Door)
	assert.Equal(t, 3, seen.Force)

	// The branch not taken never reaches the event.
	seen = nil
	_, err = in.Invoke(context.Background(), m, door, 0)
	require.NoError(t, err)
	assert.Nil(t, seen)
}

func TestDeniableInjectionLocal(t *testing.T) {
	f := newFixture(t)
	m := f.scenarioBody()

	j := inject.New(m)
	d := inject.NewDeniable[*opening](j, f.registry).CreateLocalForPayload(true)
	require.NoError(t, d.InjectDeniableEvent(5))
	require.Equal(t, 0, d.PayloadLocal())

	// Read the payload back after the event and trace its force.
	forceFn := &il.Func{Name: "TraceForce", NumIn: 1, Invoke: func(args []any) (any, error) {
		f.trace = append(f.trace, args[0].(*opening).Force)
		return nil, nil
	}}
	at := 5 + j.Injected()[5]
	require.NoError(t, j.InjectAt(at,
		il.New(il.LdLoc, d.PayloadLocal()),
		il.New(il.Call, forceFn),
	))
	require.NoError(t, j.Commit())
	require.Len(t, m.Locals, 1)
	assert.Equal(t, "*inject_test.opening", m.Locals[0].Type)

	_, err := host.NewInterpreter().Invoke(context.Background(), m, host.NewObject("Door", nil), 7)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 1, 2}, f.trace)
}

func TestDeniableInjectionManualLoads(t *testing.T) {
	f := newFixture(t)
	m := &il.Method{
		DeclaringType: "Crawler",
		Name:          "Bite",
		Body: []il.Instruction{
			il.New(il.LdcI4, 9),
			il.New(il.Call, f.traceFn),
			il.Simple(il.Ret),
		},
	}

	j := inject.New(m)
	require.NoError(t, j.InjectAt(0,
		il.Simple(il.LdNull),
		il.New(il.LdcI4, 40),
		il.New(il.LdcBool, true),
	))
	d := inject.NewDeniable[*opening](j, f.registry).AutoInsertConstructorParameters(false)
	require.NoError(t, d.InjectDeniableEvent(inject.Cursor))
	require.NoError(t, j.Commit())
	assert.Nil(t, d.Correlation())

	var force int
	require.NoError(t, f.openings.Subscribe(func(p *opening) { force = p.Force }))
	_, err := host.NewInterpreter().Invoke(context.Background(), m, host.NewObject("Crawler", nil))
	require.NoError(t, err)
	assert.Equal(t, 40, force)
	assert.Equal(t, []int{9}, f.trace)
}

// TestDeniableInjectionConfigurationError verifies an unregistered payload
// is logged and leaves the method unmodified.
func TestDeniableInjectionConfigurationError(t *testing.T) {
	f := newFixture(t)
	m := f.scenarioBody()
	before := il.CloneBody(m.Body)

	core, logs := observer.New(zapcore.WarnLevel)
	j := inject.New(m, inject.WithLogger(zap.New(core)))
	err := inject.NewDeniable[*unregistered](j, f.registry).InjectDeniableEvent(5)

	var cfgErr *inject.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.True(t, errors.Is(err, inject.ErrNoDispatcher))
	assert.Equal(t, 10, j.Len())
	require.NoError(t, j.Commit())
	assert.Equal(t, before, m.Body)
	assert.Equal(t, 1, logs.FilterMessage("deniable event not injected").Len())
}

func TestDeniableInjectionNoExit(t *testing.T) {
	f := newFixture(t)
	m := &il.Method{DeclaringType: "Door", Name: "Open", Params: []il.Param{{Name: "force", Type: "int"}}, Body: []il.Instruction{il.Simple(il.Nop)}}
	err := inject.NewDeniable[*opening](inject.New(m), f.registry).InjectDeniableEvent(0)
	assert.True(t, errors.Is(err, inject.ErrNoExit), "got %v", err)
}
