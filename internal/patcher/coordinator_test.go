package patcher_test

import (
	"strings"
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
	"github.com/dshills/retrofit/internal/patcher"
)

const image = `
types:
  - name: Menu
    methods:
      - name: Start
        body: |
          ret
  - name: Player
    methods:
      - name: Heal
        body: |
          ret
      - name: Hurt
        body: |
          ret
`

type counter map[string]int

// prepend returns a rewrite that inserts a nop at the start and counts calls.
func (c counter) prepend(name string) patcher.RewriteFunc {
	return func(j *inject.Injector, _ *patcher.Context) error {
		c[name]++
		return j.InjectAt(0, il.Simple(il.Nop))
	}
}

func loadImage(t *testing.T) *host.Image {
	t.Helper()
	img, err := host.ParseImage([]byte(image), nil)
	require.NoError(t, err)
	return img
}

func body(t *testing.T, img *host.Image, typ, name string) []il.Instruction {
	t.Helper()
	m, err := img.Method(typ, name)
	require.NoError(t, err)
	return m.Body
}

func candidates(c counter) []patcher.Candidate {
	return []patcher.Candidate{
		{Name: "MenuStart", Type: "Menu", Method: "Start", Rewrite: c.prepend("MenuStart")},
		{Name: "PlayerHeal", Type: "Player", Method: "Heal", Events: []event.EventType{event.Healing}, Rewrite: c.prepend("PlayerHeal")},
		{Name: "PlayerHurt", Type: "Player", Method: "Hurt", Events: []event.EventType{event.CriticallyInjure, event.Healing}, Rewrite: c.prepend("PlayerHurt")},
		{Name: "Ignored", Type: "Player", Method: "Hurt", Ignore: true, Rewrite: c.prepend("Ignored")},
	}
}

func TestStartLazy(t *testing.T) {
	img := loadImage(t)
	calls := counter{}
	c, err := patcher.New(img, event.NewRegistry(), candidates(calls))
	require.NoError(t, err)

	res := c.Start()
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, []string{"MenuStart"}, c.Applied())
	assert.Equal(t, []string{"PlayerHeal", "PlayerHurt"}, c.Pending())
	assert.Len(t, body(t, img, "Menu", "Start"), 2)
	assert.Len(t, body(t, img, "Player", "Heal"), 1)
	assert.Zero(t, calls["Ignored"])

	_, ok := c.Candidate("Ignored")
	assert.False(t, ok)
}

func TestStartEager(t *testing.T) {
	img := loadImage(t)
	c, err := patcher.New(img, event.NewRegistry(), candidates(counter{}), patcher.WithLazy(false))
	require.NoError(t, err)

	res := c.Start()
	assert.Equal(t, 3, res.Total)
	assert.Empty(t, c.Pending())
}

func TestApplyForIsIdempotent(t *testing.T) {
	img := loadImage(t)
	calls := counter{}
	c, err := patcher.New(img, event.NewRegistry(), candidates(calls))
	require.NoError(t, err)

	res := c.ApplyFor(event.CriticallyInjure)
	assert.Equal(t, 1, res.Total)
	assert.True(t, c.IsApplied("PlayerHurt"))

	res = c.ApplyFor(event.Healing)
	assert.Equal(t, 1, res.Total, "PlayerHurt is already applied")
	res = c.ApplyFor(event.Healing)
	assert.Equal(t, 0, res.Total)

	require.NoError(t, c.Apply("PlayerHurt"))
	assert.Equal(t, 1, calls["PlayerHurt"])
	assert.Equal(t, 1, calls["PlayerHeal"])
	assert.Len(t, body(t, img, "Player", "Hurt"), 2)

	assert.True(t, errors.Is(c.Apply("Nope"), patcher.ErrUnknownCandidate))
}

// TestBatchToleratesFailures verifies a failing candidate is counted without
// stopping or undoing the rest of the batch.
func TestBatchToleratesFailures(t *testing.T) {
	img := loadImage(t)
	calls := counter{}
	core, logs := observer.New(zapcore.ErrorLevel)

	cands := []patcher.Candidate{
		{Name: "Good1", Type: "Menu", Method: "Start", Rewrite: calls.prepend("Good1")},
		{Name: "Missing", Type: "Menu", Method: "Stop", Rewrite: calls.prepend("Missing")},
		{Name: "Failing", Type: "Player", Method: "Heal", Rewrite: func(j *inject.Injector, _ *patcher.Context) error {
			if err := j.InjectAt(0, il.Simple(il.Nop)); err != nil {
				return err
			}
			return errors.New("cannot find anchor")
		}},
		{Name: "Panicking", Type: "Player", Method: "Heal", Rewrite: func(*inject.Injector, *patcher.Context) error {
			panic("bad rewrite")
		}},
		{Name: "NoRewrite", Type: "Player", Method: "Heal"},
		{Name: "Good2", Type: "Player", Method: "Hurt", Rewrite: calls.prepend("Good2")},
	}
	c, err := patcher.New(img, event.NewRegistry(), cands, patcher.WithLogger(zap.New(core)))
	require.NoError(t, err)

	res := c.Start()
	assert.Equal(t, 6, res.Total)
	assert.Equal(t, 4, res.Failed)
	assert.Equal(t, 2, res.Applied())
	assert.Equal(t, []string{"Good1", "Good2"}, c.Applied())
	assert.Len(t, body(t, img, "Player", "Heal"), 1, "failed rewrite leaves the method alone")
	assert.Equal(t, 4, logs.FilterMessage("instrumentation fault").Len())

	var fault *patcher.InstrumentationFault
	require.True(t, errors.As(res.Faults[0], &fault))
	assert.Equal(t, "Missing", fault.Candidate)
	assert.True(t, errors.Is(res.Faults[0], host.ErrUnknownMethod))
	assert.True(t, errors.Is(res.Faults[2], patcher.ErrRewritePanic))
	assert.True(t, errors.Is(res.Faults[3], patcher.ErrNoRewrite))
}

func TestRollback(t *testing.T) {
	img := loadImage(t)
	c, err := patcher.New(img, event.NewRegistry(), candidates(counter{}), patcher.WithLazy(false))
	require.NoError(t, err)

	before := il.CloneBody(body(t, img, "Player", "Hurt"))
	c.Start()
	require.Len(t, body(t, img, "Player", "Hurt"), 2)

	assert.Equal(t, 3, c.Rollback())
	assert.Equal(t, before, body(t, img, "Player", "Hurt"))
	assert.Empty(t, c.Applied())
	assert.Equal(t, []string{"MenuStart", "PlayerHeal", "PlayerHurt"}, c.Pending())

	// Reapplying after a rollback rewrites the original body again.
	res := c.Start()
	assert.Equal(t, 3, res.Total)
	assert.Len(t, body(t, img, "Player", "Hurt"), 2)
}

func TestSharedMethodRestoresFirstOriginal(t *testing.T) {
	img := loadImage(t)
	calls := counter{}
	cands := []patcher.Candidate{
		{Name: "A", Type: "Player", Method: "Heal", Rewrite: calls.prepend("A")},
		{Name: "B", Type: "Player", Method: "Heal", Rewrite: calls.prepend("B")},
	}
	c, err := patcher.New(img, event.NewRegistry(), cands)
	require.NoError(t, err)

	c.Start()
	assert.Len(t, body(t, img, "Player", "Heal"), 3)
	assert.Equal(t, 1, c.Rollback())
	assert.Len(t, body(t, img, "Player", "Heal"), 1)
}

func TestDisable(t *testing.T) {
	img := loadImage(t)
	calls := counter{}
	c, err := patcher.New(img, event.NewRegistry(), candidates(calls))
	require.NoError(t, err)

	c.ApplyFor(event.Healing)
	require.Len(t, body(t, img, "Player", "Heal"), 2)

	c.Disable("Player.Heal")
	assert.Len(t, body(t, img, "Player", "Heal"), 1)
	assert.False(t, c.IsApplied("PlayerHeal"))
	assert.Equal(t, []string{"Player.Heal"}, c.Disabled())

	err = c.Apply("PlayerHeal")
	assert.True(t, errors.Is(err, patcher.ErrMethodDisabled))
	assert.False(t, c.IsApplied("PlayerHeal"), "disabled methods are skipped")
	assert.Contains(t, c.Describe(), "disabled")

	res := c.ApplyFor(event.Healing)
	assert.Zero(t, res.Total)
	assert.Zero(t, res.Applied())
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, res.Faults)

	c.Enable("Player.Heal")
	require.NoError(t, c.Apply("PlayerHeal"))
	assert.True(t, c.IsApplied("PlayerHeal"))
}

func TestDetailedLogging(t *testing.T) {
	img := loadImage(t)
	core, logs := observer.New(zapcore.InfoLevel)
	c, err := patcher.New(img, event.NewRegistry(), candidates(counter{}),
		patcher.WithLogger(zap.New(core)),
		patcher.WithDetailedLogging("MenuStart"),
	)
	require.NoError(t, err)

	c.Start()
	var found bool
	for _, e := range logs.All() {
		if strings.HasPrefix(e.Message, "patched body") {
			found = true
			assert.Contains(t, e.Message, "Menu.Start()")
			assert.Contains(t, e.Message, "+ 0000")
		}
	}
	assert.True(t, found, "expected the rewritten body to be logged")
}

func TestDuplicateCandidate(t *testing.T) {
	cands := []patcher.Candidate{{Name: "A"}, {Name: "A"}}
	_, err := patcher.New(loadImage(t), event.NewRegistry(), cands)
	assert.True(t, errors.Is(err, patcher.ErrDuplicateCandidate))
}

// TestLazyInstrumentationThroughRegistry verifies that only the first
// subscription to an event applies its candidates.
func TestLazyInstrumentationThroughRegistry(t *testing.T) {
	img := loadImage(t)
	calls := counter{}
	registry := event.NewRegistry()
	healing := event.NewDispatcher[*struct{ event.Denial }]("Healing")
	injure := event.NewDispatcher[*struct{}]("CriticallyInjure")
	require.NoError(t, event.Register(registry, event.Healing, healing, nil))
	require.NoError(t, event.Register(registry, event.CriticallyInjure, injure, nil))

	c, err := patcher.New(img, registry, candidates(calls))
	require.NoError(t, err)
	registry.SetInstrumenter(c.Instrumenter())
	c.Start()

	assert.Zero(t, calls["PlayerHeal"]+calls["PlayerHurt"], "no subscribers, no instrumentation")

	require.NoError(t, healing.Subscribe(func(*struct{ event.Denial }) {}))
	assert.Equal(t, 1, calls["PlayerHeal"])
	assert.Equal(t, 1, calls["PlayerHurt"])

	require.NoError(t, healing.SubscribeObserver(func() {}))
	require.NoError(t, injure.Subscribe(func(*struct{}) {}))
	assert.Equal(t, 1, calls["PlayerHeal"])
	assert.Equal(t, 1, calls["PlayerHurt"], "PlayerHurt was already applied for Healing")
}
