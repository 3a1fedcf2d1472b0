package events

import (
	"github.com/cockroachdb/errors"

	"github.com/dshills/retrofit/internal/event"
	"github.com/dshills/retrofit/internal/host"
	"github.com/dshills/retrofit/internal/il"
)

// Handlers holds every dispatcher, grouped the way extensions look them up.
type Handlers struct {
	Registry *event.Registry

	// Player events.
	CriticallyInjure *event.Dispatcher[*CriticallyInjure]
	Healing          *event.Dispatcher[*Healing]

	// Item events.
	UsingItem *event.Dispatcher[*UsingItem]
	UsingKey  *event.Dispatcher[*UsingKey]

	// Server events.
	LoadingSave *event.Dispatcher[*LoadingSave]
	ResetSave   *event.Dispatcher[*ResetSave]
	Saving      *event.Dispatcher[*Saving]
	GameOpened  *event.Signal

	// Enemy events.
	HittingEnemy         *event.Dispatcher[*HittingEnemy]
	KillingEnemy         *event.Dispatcher[*KillingEnemy]
	StunningEnemy        *event.Dispatcher[*StunningEnemy]
	EnemyAttackingPlayer *event.Dispatcher[*EnemyAttackingPlayer]
	EnemyKillingPlayer   *event.Dispatcher[*EnemyKillingPlayer]
}

// NewRegistry creates every dispatcher and registers it with its constructor.
func NewRegistry(opts ...event.DispatcherOption) (*Handlers, error) {
	h := &Handlers{
		Registry:             event.NewRegistry(),
		CriticallyInjure:     event.NewDispatcher[*CriticallyInjure](event.CriticallyInjure.String(), opts...),
		Healing:              event.NewDispatcher[*Healing](event.Healing.String(), opts...),
		UsingItem:            event.NewDispatcher[*UsingItem](event.UsingItem.String(), opts...),
		UsingKey:             event.NewDispatcher[*UsingKey](event.UsingKey.String(), opts...),
		LoadingSave:          event.NewDispatcher[*LoadingSave](event.LoadingSave.String(), opts...),
		ResetSave:            event.NewDispatcher[*ResetSave](event.ResetSave.String(), opts...),
		Saving:               event.NewDispatcher[*Saving](event.Saving.String(), opts...),
		GameOpened:           event.NewSignal(event.GameOpened.String(), opts...),
		HittingEnemy:         event.NewDispatcher[*HittingEnemy](event.HittingEnemy.String(), opts...),
		KillingEnemy:         event.NewDispatcher[*KillingEnemy](event.KillingEnemy.String(), opts...),
		StunningEnemy:        event.NewDispatcher[*StunningEnemy](event.StunningEnemy.String(), opts...),
		EnemyAttackingPlayer: event.NewDispatcher[*EnemyAttackingPlayer](event.EnemyAttackingPlayer.String(), opts...),
		EnemyKillingPlayer:   event.NewDispatcher[*EnemyKillingPlayer](event.EnemyKillingPlayer.String(), opts...),
	}
	r := h.Registry

	for _, err := range []error{
		event.Register(r, event.CriticallyInjure, h.CriticallyInjure, ctor("CriticallyInjure",
			[]il.Param{{Name: "player", Type: TypePlayer}, {Name: "isAllowed", Type: TypeBool}},
			func(a *args) any {
				return &CriticallyInjure{Player: a.object(0), Denial: event.Allow(a.bool(1))}
			})),
		event.Register(r, event.Healing, h.Healing, ctor("Healing",
			[]il.Param{{Name: "player", Type: TypePlayer}, {Name: "isAllowed", Type: TypeBool}},
			func(a *args) any {
				return &Healing{Player: a.object(0), Denial: event.Allow(a.bool(1))}
			})),
		event.Register(r, event.UsingItem, h.UsingItem, ctor("UsingItem",
			[]il.Param{{Name: "item", Type: TypeItem}, {Name: "buttonDown", Type: TypeBool}, {Name: "isAllowed", Type: TypeBool}},
			func(a *args) any {
				return &UsingItem{Item: a.object(0), ButtonDown: a.bool(1), Denial: event.Allow(a.bool(2))}
			})),
		event.Register(r, event.UsingKey, h.UsingKey, ctor("UsingKey",
			[]il.Param{{Name: "key", Type: TypeKey}, {Name: "isAllowed", Type: TypeBool}},
			func(a *args) any {
				return &UsingKey{Key: a.object(0), Denial: event.Allow(a.bool(1))}
			})),
		event.Register(r, event.LoadingSave, h.LoadingSave, ctor("LoadingSave",
			[]il.Param{{Name: "saveSlot", Type: TypeString}, {Name: "loadedItem", Type: TypeString}},
			func(a *args) any {
				return &LoadingSave{SaveSlot: a.string(0), Item: LoadedItem(a.string(1))}
			})),
		event.Register(r, event.ResetSave, h.ResetSave, ctor("ResetSave",
			[]il.Param{{Name: "saveSlot", Type: TypeString}, {Name: "isAllowed", Type: TypeBool}},
			func(a *args) any {
				return &ResetSave{SaveSlot: a.string(0), Denial: event.Allow(a.bool(1))}
			})),
		event.Register(r, event.Saving, h.Saving, ctor("Saving",
			[]il.Param{{Name: "saveSlot", Type: TypeString}, {Name: "saveItem", Type: TypeString}},
			func(a *args) any {
				return &Saving{SaveSlot: a.string(0), Item: SaveItem(a.string(1))}
			})),
		event.RegisterSignal(r, event.GameOpened, h.GameOpened),
		event.Register(r, event.HittingEnemy, h.HittingEnemy, ctor("HittingEnemy",
			[]il.Param{{Name: "enemy", Type: TypeEnemy}, {Name: "playerWhoHit", Type: TypePlayer}, {Name: "force", Type: TypeInt}, {Name: "isAllowed", Type: TypeBool}},
			func(a *args) any {
				return &HittingEnemy{Enemy: a.object(0), Player: a.object(1), Force: a.int(2), Denial: event.Allow(a.bool(3))}
			})),
		event.Register(r, event.KillingEnemy, h.KillingEnemy, ctor("KillingEnemy",
			[]il.Param{{Name: "enemy", Type: TypeEnemy}, {Name: "playerWhoHit", Type: TypePlayer}, {Name: "isAllowed", Type: TypeBool}},
			func(a *args) any {
				return &KillingEnemy{Enemy: a.object(0), Player: a.object(1), Denial: event.Allow(a.bool(2))}
			})),
		event.Register(r, event.StunningEnemy, h.StunningEnemy, ctor("StunningEnemy",
			[]il.Param{{Name: "enemy", Type: TypeEnemy}, {Name: "setStunnedByPlayer", Type: TypePlayer}, {Name: "isAllowed", Type: TypeBool}},
			func(a *args) any {
				return &StunningEnemy{Enemy: a.object(0), Player: a.object(1), Denial: event.Allow(a.bool(2))}
			})),
		event.Register(r, event.EnemyAttackingPlayer, h.EnemyAttackingPlayer, ctor("EnemyAttackingPlayer",
			[]il.Param{{Name: "damage", Type: TypeInt}, {Name: "player", Type: TypePlayer}, {Name: "enemy", Type: TypeEnemy}, {Name: "isAllowed", Type: TypeBool}},
			func(a *args) any {
				return &EnemyAttackingPlayer{Damage: a.int(0), Player: a.object(1), Enemy: a.object(2), Denial: event.Allow(a.bool(3))}
			})),
		event.Register(r, event.EnemyKillingPlayer, h.EnemyKillingPlayer, ctor("EnemyKillingPlayer",
			[]il.Param{{Name: "player", Type: TypePlayer}, {Name: "enemy", Type: TypeEnemy}, {Name: "isAllowed", Type: TypeBool}},
			func(a *args) any {
				return &EnemyKillingPlayer{Player: a.object(0), Enemy: a.object(1), Denial: event.Allow(a.bool(2))}
			})),
	} {
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}

func ctor(typ string, params []il.Param, build func(*args) any) *il.Ctor {
	return &il.Ctor{
		Type:   typ,
		Params: params,
		New: func(values []any) (any, error) {
			if len(values) != len(params) {
				return nil, errors.Newf("%s: want %d arguments, got %d", typ, len(params), len(values))
			}
			a := &args{typ: typ, params: params, values: values}
			v := build(a)
			if a.err != nil {
				return nil, a.err
			}
			return v, nil
		},
	}
}

// args converts constructor arguments, recording the first mismatch.
type args struct {
	typ    string
	params []il.Param
	values []any
	err    error
}

func (a *args) fail(i int) {
	if a.err == nil {
		a.err = errors.Wrapf(host.ErrTypeMismatch, "%s: %s got %T", a.typ, a.params[i], a.values[i])
	}
}

func (a *args) object(i int) *host.Object {
	if a.values[i] == nil {
		return nil
	}
	o, ok := a.values[i].(*host.Object)
	if !ok {
		a.fail(i)
	}
	return o
}

func (a *args) bool(i int) bool {
	b, ok := a.values[i].(bool)
	if !ok {
		a.fail(i)
	}
	return b
}

func (a *args) int(i int) int {
	n, ok := a.values[i].(int)
	if !ok {
		a.fail(i)
	}
	return n
}

func (a *args) string(i int) string {
	s, ok := a.values[i].(string)
	if !ok {
		a.fail(i)
	}
	return s
}
