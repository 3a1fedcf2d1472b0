package registration_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dshills/retrofit/internal/event"
	"github.com/dshills/retrofit/internal/event/events"
	"github.com/dshills/retrofit/internal/registration"
)

type guard struct {
	name   string
	calls  []string
	opened int
}

func (g *guard) EventMarkers() []registration.Marker {
	return []registration.Marker{
		registration.Mark("OnHealing").WithPriority(event.PriorityHigh),
		registration.Mark("OnInjure").RunWhenDenied(),
		registration.Mark("OnOpened").On(event.GameOpened),
		registration.Mark("AfterHealing").On(event.Healing),
		registration.Mark("Manual").Manual(),
		registration.Mark("Missing"),
		registration.Mark("Untyped"),
		registration.Mark("Wrong").On(event.Healing),
	}
}

func (g *guard) OnHealing(ev *events.Healing) {
	g.calls = append(g.calls, g.name+":heal")
	ev.SetAllowed(false)
}

func (g *guard) OnInjure(*events.CriticallyInjure) { g.calls = append(g.calls, g.name+":injure") }
func (g *guard) OnOpened()                         { g.opened++ }
func (g *guard) AfterHealing()                     { g.calls = append(g.calls, g.name+":after") }
func (g *guard) Manual(*events.Healing)            {}
func (g *guard) Untyped()                          {}
func (g *guard) Wrong(*events.UsingItem)           {}

type valueGuard struct {
	names []string
}

func (valueGuard) EventMarkers() []registration.Marker { return nil }

func newFacade(t *testing.T) (*registration.Facade, *events.Handlers, *observer.ObservedLogs) {
	t.Helper()
	h, err := events.NewRegistry()
	require.NoError(t, err)
	core, logs := observer.New(zapcore.DebugLevel)
	return registration.New(h.Registry, registration.WithLogger(zap.New(core))), h, logs
}

func TestRegisterEvents(t *testing.T) {
	f, h, logs := newFacade(t)
	g := &guard{name: "a"}

	n, err := f.RegisterEvents(g)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, h.Healing.Len())
	assert.Equal(t, 1, h.CriticallyInjure.Len())
	assert.Equal(t, 1, h.GameOpened.Len())
	assert.Equal(t, 3, logs.FilterMessage("handler skipped").Len())

	infos := h.Healing.Handlers()
	assert.Equal(t, "*registration_test.guard.OnHealing", infos[0].Name)
	assert.Equal(t, event.PriorityHigh, infos[0].Priority)
	assert.Same(t, g, infos[0].Receiver)
	assert.True(t, infos[1].Observer)
	assert.True(t, h.CriticallyInjure.Handlers()[0].RunsWhenDenied)

	h.GameOpened.Raise()
	assert.Equal(t, 1, g.opened)

	// The observer does not run for a denied payload.
	h.Healing.Dispatch(&events.Healing{})
	assert.Equal(t, []string{"a:heal"}, g.calls)
}

func TestRegisterTwiceIsNoop(t *testing.T) {
	f, h, _ := newFacade(t)
	g := &guard{name: "a"}

	_, err := f.RegisterEvents(g)
	require.NoError(t, err)
	n, err := f.RegisterEvents(g)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, h.Healing.Len())
	assert.Equal(t, 4, f.Registered())
}

func TestInstancesAreDistinct(t *testing.T) {
	f, h, _ := newFacade(t)
	a, b := &guard{name: "a"}, &guard{name: "b"}

	_, err := f.RegisterEvents(a)
	require.NoError(t, err)
	_, err = f.RegisterEvents(b)
	require.NoError(t, err)
	assert.Equal(t, 2, h.CriticallyInjure.Len())

	h.CriticallyInjure.Dispatch(&events.CriticallyInjure{})
	assert.Equal(t, []string{"a:injure"}, a.calls)
	assert.Equal(t, []string{"b:injure"}, b.calls)

	n, err := f.UnregisterEvents(a)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, h.CriticallyInjure.Len())
	assert.Same(t, b, h.CriticallyInjure.Handlers()[0].Receiver)

	n, err = f.UnregisterEvents(a)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegisterRejectsBadTargets(t *testing.T) {
	f, _, _ := newFacade(t)

	var g *guard
	_, err := f.RegisterEvents(g)
	assert.True(t, errors.Is(err, registration.ErrNilTarget))

	_, err = f.RegisterEvents(valueGuard{names: []string{"x"}})
	assert.True(t, errors.Is(err, event.ErrUncomparableReceiver))
}

type saves struct {
	slots  []string
	resets int
}

func (s *saves) table() *saveTable {
	return &saveTable{
		onSaving: func(ev *events.Saving) { s.slots = append(s.slots, ev.SaveSlot) },
		onReset:  func() { s.resets++ },
	}
}

type saveTable struct {
	onSaving func(*events.Saving)
	onReset  func()
}

func (t *saveTable) StaticEventMarkers() []registration.StaticMarker {
	return []registration.StaticMarker{
		registration.Static(registration.Mark("onSaving"), t.onSaving),
		registration.Static(registration.Mark("onReset").On(event.ResetSave).WithPriority(event.PriorityLowest), t.onReset),
		registration.Static(registration.Mark("nothing"), nil),
	}
}

func TestStaticEvents(t *testing.T) {
	f, h, logs := newFacade(t)
	s := &saves{}
	table := s.table()

	n, err := f.RegisterStaticEvents(table)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, logs.FilterMessage("handler skipped").Len())

	h.Saving.Dispatch(&events.Saving{SaveSlot: "LCSaveFile2"})
	h.ResetSave.Dispatch(&events.ResetSave{})
	assert.Equal(t, []string{"LCSaveFile2"}, s.slots)
	assert.Equal(t, 1, s.resets)
	assert.Equal(t, event.PriorityLowest, h.ResetSave.Handlers()[0].Priority)

	n, err = f.UnregisterStaticEvents(table)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, h.Saving.Len())
	assert.Zero(t, h.ResetSave.Len())
}
