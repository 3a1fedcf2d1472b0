package inject_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/retrofit/internal/event"
	"github.com/dshills/retrofit/internal/host"
	"github.com/dshills/retrofit/internal/il"
	"github.com/dshills/retrofit/internal/inject"
)

type closed struct {
	Door  *host.Object
	Force int
}

var closedCtor = &il.Ctor{
	Type: "closed",
	Params: []il.Param{
		{Name: "door", Type: "Door"},
		{Name: "force", Type: "int"},
	},
	New: func(args []any) (any, error) {
		door, _ := args[0].(*host.Object)
		return &closed{Door: door, Force: args[1].(int)}, nil
	},
}

// closeBody returns early through a branch to its second ret.
func (f *fixture) closeBody() *il.Method {
	return &il.Method{
		DeclaringType: "Door",
		Name:          "Close",
		Params:        []il.Param{{Name: "force", Type: "int"}},
		Body: []il.Instruction{
			il.New(il.LdArg, 1),
			il.New(il.BrFalse, il.Label(0)),
			il.New(il.LdcI4, 5),
			il.New(il.Call, f.traceFn),
			il.Simple(il.Ret),
			il.Simple(il.Ret).WithLabels(0),
		},
	}
}

func newClosings(t *testing.T, f *fixture) *event.Dispatcher[*closed] {
	t.Helper()
	d := event.NewDispatcher[*closed]("Closing")
	require.NoError(t, event.Register(f.registry, event.Saving, d, closedCtor))
	return d
}

func TestEventOnEveryExit(t *testing.T) {
	f := newFixture(t)
	closings := newClosings(t, f)
	m := f.closeBody()

	j := inject.New(m)
	ev := inject.NewEvent[*closed](j, f.registry)
	require.NoError(t, ev.InjectEventOnExit())
	require.NotNil(t, ev.Correlation())
	require.NoError(t, j.Commit())

	var seen []*closed
	require.NoError(t, closings.Subscribe(func(c *closed) { seen = append(seen, c) }))

	door := host.NewObject("Door", nil)
	for _, force := range []int{0, 3} {
		_, err := host.NewInterpreter().Invoke(context.Background(), m, door, force)
		require.NoError(t, err)
	}

	require.Len(t, seen, 2, "one event per call, branch included")
	assert.Same(t, door, seen[0].Door)
	assert.Equal(t, 0, seen[0].Force)
	assert.Equal(t, 3, seen[1].Force)
	assert.Equal(t, []int{5}, f.trace, "event runs after the body")
}

func TestEventManualLoads(t *testing.T) {
	f := newFixture(t)
	closings := newClosings(t, f)
	m := f.closeBody()

	j := inject.New(m)
	require.NoError(t, inject.NewEvent[*closed](j, f.registry).
		AutoInsertConstructorParameters(false).
		InjectEvent(0, il.New(il.LdNull), il.New(il.LdcI4, 9)))
	require.NoError(t, j.Commit())

	var force int
	require.NoError(t, closings.Subscribe(func(c *closed) { force = c.Force }))
	_, err := host.NewInterpreter().Invoke(context.Background(), m, host.NewObject("Door", nil), 0)
	require.NoError(t, err)
	assert.Equal(t, 9, force)
}

func TestEventConfigurationErrors(t *testing.T) {
	f := newFixture(t)
	newClosings(t, f)

	j := inject.New(f.closeBody())
	err := inject.NewEvent[*unregistered](j, f.registry).InjectEventOnExit()
	var cfg *inject.ConfigurationError
	require.True(t, errors.As(err, &cfg))
	assert.True(t, errors.Is(err, inject.ErrNoDispatcher))
	assert.Zero(t, j.Added())

	noExit := &il.Method{DeclaringType: "Door", Name: "Spin", Body: []il.Instruction{il.Simple(il.Nop)}}
	err = inject.NewEvent[*closed](inject.New(noExit), f.registry).InjectEventOnExit()
	assert.True(t, errors.Is(err, inject.ErrNoExit))
}
