package patches_test

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
	"github.com/dshills/retrofit/internal/event/events"
	"github.com/dshills/retrofit/internal/host"
	"github.com/dshills/retrofit/internal/il"
	"github.com/dshills/retrofit/internal/inject"
	"github.com/dshills/retrofit/internal/patcher"
	"github.com/dshills/retrofit/internal/patches"
)

type game struct {
	h     *events.Handlers
	img   *host.Image
	coord *patcher.Coordinator
	in    *host.Interpreter
	logs  *observer.ObservedLogs
}

func newGame(t *testing.T, lazy bool) *game {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	h, err := events.NewRegistry(event.WithLogger(logger))
	require.NoError(t, err)
	img, err := patches.LoadGame(patches.Natives(logger))
	require.NoError(t, err)
	coord, err := patcher.New(img, h.Registry, patches.Candidates(),
		patcher.WithLogger(logger),
		patcher.WithLazy(lazy),
	)
	require.NoError(t, err)
	h.Registry.SetInstrumenter(coord.Instrumenter())

	res := coord.Start()
	require.Zero(t, res.Failed, "%v", res.Faults)

	return &game{h: h, img: img, coord: coord, in: host.NewInterpreter(), logs: logs}
}

func (g *game) call(t *testing.T, typ, name string, args ...any) {
	t.Helper()
	m, err := g.img.Method(typ, name)
	require.NoError(t, err)
	_, err = g.in.Invoke(context.Background(), m, args...)
	require.NoError(t, err)
}

func newPlayer() *host.Object {
	return host.NewObject("PlayerController", map[string]any{
		"playerUsername": "alice",
		"health":         100,
	})
}

func TestEveryCandidateApplies(t *testing.T) {
	g := newGame(t, false)
	assert.Len(t, g.coord.Applied(), len(patches.Candidates()))
	assert.Empty(t, g.coord.Pending())
}

func TestCriticallyInjure(t *testing.T) {
	g := newGame(t, false)
	player := newPlayer()

	var seen *host.Object
	deny := true
	require.NoError(t, g.h.CriticallyInjure.Subscribe(func(ev *events.CriticallyInjure) {
		seen = ev.Player
		if deny {
			ev.SetAllowed(false)
		}
	}))

	g.call(t, "PlayerController", "MakeCriticallyInjured", player, true)
	assert.Same(t, player, seen)
	assert.False(t, player.Bool("criticallyInjured"), "denied")

	deny = false
	g.call(t, "PlayerController", "MakeCriticallyInjured", player, true)
	assert.True(t, player.Bool("criticallyInjured"))
	assert.True(t, player.Bool("bleeding"))
}

// TestHealingBranchRunsEvent verifies the branch into the recovery path lands
// on the injected event rather than past it.
func TestHealingBranchRunsEvent(t *testing.T) {
	g := newGame(t, false)
	player := newPlayer()
	player.SetField("criticallyInjured", true)

	var healed, injured int
	require.NoError(t, g.h.Healing.Subscribe(func(ev *events.Healing) {
		healed++
		ev.SetAllowed(false)
	}))
	require.NoError(t, g.h.CriticallyInjure.Subscribe(func(*events.CriticallyInjure) {
		injured++
	}))

	g.call(t, "PlayerController", "MakeCriticallyInjured", player, false)
	assert.Equal(t, 1, healed)
	assert.Zero(t, injured)
	assert.True(t, player.Bool("criticallyInjured"), "healing denied")
}

func TestCrawlerDamageComesFromPayload(t *testing.T) {
	g := newGame(t, false)
	crawler := host.NewObject("CrawlerAI", nil)

	var enemy *host.Object
	require.NoError(t, g.h.EnemyAttackingPlayer.Subscribe(func(ev *events.EnemyAttackingPlayer) {
		enemy = ev.Enemy
		assert.Equal(t, 40, ev.Damage)
		ev.Damage = 10
	}))

	player := newPlayer()
	g.call(t, "CrawlerAI", "OnCollideWithPlayer", crawler, player)
	assert.Same(t, crawler, enemy)
	assert.Equal(t, 90, player.Int("health"))
}

func TestCrawlerAttackDenied(t *testing.T) {
	g := newGame(t, false)
	require.NoError(t, g.h.EnemyAttackingPlayer.Subscribe(func(ev *events.EnemyAttackingPlayer) {
		ev.SetAllowed(false)
	}))

	player := newPlayer()
	g.call(t, "CrawlerAI", "OnCollideWithPlayer", host.NewObject("CrawlerAI", nil), player)
	assert.Equal(t, 100, player.Int("health"))
}

func TestCrawlerChecksRunBeforeEvent(t *testing.T) {
	g := newGame(t, false)
	var raised int
	require.NoError(t, g.h.EnemyAttackingPlayer.Subscribe(func(*events.EnemyAttackingPlayer) {
		raised++
	}))

	dead := host.NewObject("CrawlerAI", map[string]any{"isEnemyDead": true})
	g.call(t, "CrawlerAI", "OnCollideWithPlayer", dead, newPlayer())

	deadPlayer := newPlayer()
	deadPlayer.SetField("isPlayerDead", true)
	g.call(t, "CrawlerAI", "OnCollideWithPlayer", host.NewObject("CrawlerAI", nil), deadPlayer)

	assert.Zero(t, raised)
}

func TestJesterKillsOnlyWhenPoppedOut(t *testing.T) {
	g := newGame(t, false)
	var raised int
	require.NoError(t, g.h.EnemyAttackingPlayer.Subscribe(func(ev *events.EnemyAttackingPlayer) {
		raised++
		assert.Equal(t, 100, ev.Damage)
	}))

	jester := host.NewObject("JesterAI", map[string]any{"currentBehaviourStateIndex": 0})
	player := newPlayer()
	g.call(t, "JesterAI", "OnCollideWithPlayer", jester, player)
	assert.Zero(t, raised)

	jester.SetField("currentBehaviourStateIndex", 2)
	g.call(t, "JesterAI", "OnCollideWithPlayer", jester, player)
	assert.Equal(t, 1, raised)
	assert.True(t, player.Bool("isPlayerDead"))
}

func TestHittingEnemy(t *testing.T) {
	g := newGame(t, false)
	player := newPlayer()
	enemy := host.NewObject("EnemyAI", map[string]any{"enemyHP": 5})

	require.NoError(t, g.h.HittingEnemy.Subscribe(func(ev *events.HittingEnemy) {
		assert.Same(t, enemy, ev.Enemy)
		assert.Same(t, player, ev.Player)
		if ev.Force > 2 {
			ev.SetAllowed(false)
		}
	}))

	g.call(t, "EnemyAI", "HitEnemy", enemy, 2, player, true)
	assert.Equal(t, 3, enemy.Int("enemyHP"))
	g.call(t, "EnemyAI", "HitEnemy", enemy, 3, player, true)
	assert.Equal(t, 3, enemy.Int("enemyHP"), "denied")
}

func TestUsingItem(t *testing.T) {
	g := newGame(t, false)
	item := host.NewObject("GrabbableObject", map[string]any{"itemName": "flashlight"})

	var buttonDown bool
	require.NoError(t, g.h.UsingItem.Subscribe(func(ev *events.UsingItem) {
		buttonDown = ev.ButtonDown
		ev.SetAllowed(false)
	}))

	g.call(t, "GrabbableObject", "ItemActivate", item, true, true)
	assert.True(t, buttonDown)
	assert.False(t, item.Bool("isBeingUsed"))
}

func TestResetSave(t *testing.T) {
	g := newGame(t, false)
	manager := host.NewObject("GameNetworkManager", map[string]any{"currentSaveFileName": "LCSaveFile1"})

	var slot string
	require.NoError(t, g.h.ResetSave.Subscribe(func(ev *events.ResetSave) {
		slot = ev.SaveSlot
		ev.SetAllowed(false)
	}))

	g.call(t, "GameNetworkManager", "ResetSavedGameValues", manager)
	assert.Equal(t, "LCSaveFile1", slot)
	assert.Zero(t, g.logs.FilterMessage("save deleted").Len())
}

func TestSavingRaisedAfterSave(t *testing.T) {
	tests := []struct {
		method string
		slot   string
		item   events.SaveItem
	}{
		{"SaveGameValues", "LCSaveFile2", events.SaveGameValues},
		{"SaveLocalPlayerValues", events.GeneralSaveSlot, events.SaveLocalPlayerValues},
		{"SaveItemsInShip", "LCSaveFile2", events.SaveShipItems},
		{"ConvertUnsellableItemsToCredits", "LCSaveFile2", events.SaveUnsellableItems},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			g := newGame(t, true)
			var got []*events.Saving
			require.NoError(t, g.h.Saving.Subscribe(func(ev *events.Saving) { got = append(got, ev) }))

			manager := host.NewObject("GameNetworkManager", map[string]any{
				"currentSaveFileName": "LCSaveFile2",
				"isHostingGame":       true,
			})
			g.call(t, "GameNetworkManager", tt.method, manager)

			require.Len(t, got, 1)
			assert.Equal(t, tt.slot, got[0].SaveSlot)
			assert.Equal(t, tt.item, got[0].Item)
			assert.Equal(t, 1, g.logs.FilterMessage("save written").Len())
		})
	}
}

// TestSavingOnEarlyReturn verifies the event is raised on every exit, not
// only the last ret.
func TestSavingOnEarlyReturn(t *testing.T) {
	g := newGame(t, false)
	var slots []string
	require.NoError(t, g.h.Saving.Subscribe(func(ev *events.Saving) { slots = append(slots, ev.SaveSlot) }))

	client := host.NewObject("GameNetworkManager", map[string]any{"currentSaveFileName": "LCSaveFile3"})
	g.call(t, "GameNetworkManager", "SaveGameValues", client)
	assert.Equal(t, []string{"LCSaveFile3"}, slots)
	assert.Zero(t, g.logs.FilterMessage("save written").Len())
}

func TestLoadingSaveRaisedAfterLoad(t *testing.T) {
	manager := host.NewObject("GameNetworkManager", map[string]any{"currentSaveFileName": "LCSaveFile1"})
	round := host.NewObject("StartOfRound", map[string]any{"networkManager": manager})

	tests := []struct {
		typ    string
		method string
		args   []any
		slot   string
		item   events.LoadedItem
	}{
		{"GameNetworkManager", "Start", []any{manager}, events.GeneralSaveSlot, events.LoadedLastSelectedSave},
		{"StartOfRound", "SpawnUnlockable", []any{round, 4}, "LCSaveFile1", events.LoadedSpawnUnlockable},
		{"StartOfRound", "LoadUnlockables", []any{round}, "LCSaveFile1", events.LoadedUnlockables},
		{"StartOfRound", "LoadShipGrabbableItems", []any{round}, "LCSaveFile1", events.LoadedShipGrabbableItems},
		{"StartOfRound", "SetTimeAndPlanetToSavedSettings", []any{round}, "LCSaveFile1", events.LoadedTimeAndPlanetSettings},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			g := newGame(t, true)
			var got []*events.LoadingSave
			require.NoError(t, g.h.LoadingSave.Subscribe(func(ev *events.LoadingSave) { got = append(got, ev) }))

			g.call(t, tt.typ, tt.method, tt.args...)
			require.Len(t, got, 1)
			assert.Equal(t, tt.slot, got[0].SaveSlot)
			assert.Equal(t, tt.item, got[0].Item)
		})
	}
	assert.Equal(t, 4, round.Int("lastSpawnedUnlockable"))
	assert.True(t, round.Bool("planetLoaded"))
}

func TestSaveEventsAreLazy(t *testing.T) {
	g := newGame(t, true)
	saves := []string{patches.SaveGameValues, patches.SaveLocalPlayerValues, patches.SaveItemsInShip, patches.SaveUnsellableItems}
	for _, name := range saves {
		require.False(t, g.coord.IsApplied(name), name)
	}

	require.NoError(t, g.h.Saving.SubscribeObserver(func() {}))
	for _, name := range saves {
		assert.True(t, g.coord.IsApplied(name), name)
	}
	assert.False(t, g.coord.IsApplied(patches.LoadingGlobalSave))
}

func TestGameOpenedIsUnconditional(t *testing.T) {
	g := newGame(t, true)
	assert.Equal(t, []string{patches.GameOpened}, g.coord.Applied())

	var opened int
	require.NoError(t, g.h.GameOpened.Subscribe(func() { opened++ }))

	menu := host.NewObject("MenuManager", nil)
	g.call(t, "MenuManager", "Start", menu)
	assert.Equal(t, 1, opened)
	assert.True(t, menu.Bool("opened"))
}

func TestLazyInstrumentation(t *testing.T) {
	g := newGame(t, true)
	require.False(t, g.coord.IsApplied(patches.PlayerHealingInjuring))

	require.NoError(t, g.h.Healing.SubscribeObserver(func() {}))
	assert.True(t, g.coord.IsApplied(patches.PlayerHealingInjuring))
	assert.False(t, g.coord.IsApplied(patches.CrawlerOnCollideWithPlayer))

	require.NoError(t, g.h.EnemyAttackingPlayer.SubscribeObserver(func() {}))
	assert.True(t, g.coord.IsApplied(patches.CrawlerOnCollideWithPlayer))
	assert.True(t, g.coord.IsApplied(patches.JesterOnCollideWithPlayer))
}

func TestRollbackRestoresGame(t *testing.T) {
	g := newGame(t, false)
	var raised int
	require.NoError(t, g.h.EnemyAttackingPlayer.Subscribe(func(*events.EnemyAttackingPlayer) { raised++ }))

	assert.Equal(t, len(patches.Candidates()), g.coord.Rollback())

	player := newPlayer()
	g.call(t, "CrawlerAI", "OnCollideWithPlayer", host.NewObject("CrawlerAI", nil), player)
	assert.Zero(t, raised)
	assert.Equal(t, 60, player.Int("health"))
}

func TestIgnoredCandidate(t *testing.T) {
	cands := patches.Candidates(patches.UsingItem)
	for _, c := range cands {
		assert.Equal(t, c.Name == patches.UsingItem, c.Ignore, c.Name)
	}
}

// TestCorrelationDrift verifies a candidate refuses a host method whose
// signature no longer matches the expected argument sources.
func TestCorrelationDrift(t *testing.T) {
	h, err := events.NewRegistry()
	require.NoError(t, err)
	img, err := patches.LoadGame(patches.Natives(nil))
	require.NoError(t, err)

	hit, err := img.Method("EnemyAI", "HitEnemy")
	require.NoError(t, err)
	hit.Static = true
	hit.Params = append([]il.Param{{Name: "enemy", Type: "EnemyAI"}}, hit.Params...)
	before := il.CloneBody(hit.Body)

	item, err := img.Method("GrabbableObject", "ItemActivate")
	require.NoError(t, err)
	item.Params = item.Params[:1]

	coord, err := patcher.New(img, h.Registry, patches.Candidates())
	require.NoError(t, err)

	err = coord.Apply(patches.EnemyHitEnemy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comes from")
	assert.Equal(t, before, hit.Body)

	err = coord.Apply(patches.UsingItem)
	var cfg *inject.ConfigurationError
	require.True(t, errors.As(err, &cfg))
	assert.True(t, errors.Is(err, inject.ErrUnresolvedParameter))
	assert.Equal(t, "buttonDown bool", cfg.Param)
}
