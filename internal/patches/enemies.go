package patches

import (
	"github.com/cockroachdb/errors"

	"github.com/dshills/retrofit/internal/event/events"
	"github.com/dshills/retrofit/internal/il"
	"github.com/dshills/retrofit/internal/inject"
	"github.com/dshills/retrofit/internal/patcher"
)

// attackDamage reads the damage a handler settled on back out of the payload.
var attackDamage = &il.Func{
	Name:    "EnemyAttackingPlayer.Damage",
	NumIn:   1,
	Returns: true,
	Invoke: func(args []any) (any, error) {
		ev, ok := args[0].(*events.EnemyAttackingPlayer)
		if !ok || ev == nil {
			return nil, errors.Newf("EnemyAttackingPlayer.Damage: got %T", args[0])
		}
		return ev.Damage, nil
	},
}

// enemyAttackingPlayer raises EnemyAttackingPlayer once the collision checks
// have passed (after the second ret). The damage constant that follows is
// replaced with the payload's Damage so handlers can change it.
//
// The constructor takes the damage first and the player from a local, so
// the arguments are loaded by hand.
func enemyAttackingPlayer(j *inject.Injector, ctx *patcher.Context) error {
	snap := j.Snapshot()
	second := snap.FindNth(2, il.IsOp(il.Ret), 0)
	if second < 0 {
		return errors.Wrap(ErrAnchorNotFound, "second ret")
	}
	at := second + 1
	constant := snap.FindIndex(at, il.IsOp(il.LdcI4))
	if constant < 0 {
		return errors.Wrap(ErrAnchorNotFound, "damage constant")
	}
	damage, ok := snap.At(constant).Operand.(int)
	if !ok {
		return errors.Wrapf(ErrUnexpectedOperand, "damage constant %s", snap.At(constant))
	}
	player, err := localIndex(j.Work(), "player")
	if err != nil {
		return err
	}

	loads := []il.Instruction{
		il.New(il.LdcI4, damage),
		il.New(il.LdLoc, player),
		il.New(il.LdArg, 0),
		il.New(il.LdcBool, true),
	}
	if err := injectLoads(j, at, loads...); err != nil {
		return err
	}
	d := inject.NewDeniable[*events.EnemyAttackingPlayer](j, ctx.Registry).
		AutoInsertConstructorParameters(false).
		CreateLocalForPayload(true)
	if err := d.InjectDeniableEvent(inject.Cursor); err != nil {
		return err
	}

	constant += j.Added()
	if err := j.Remove(1, constant); err != nil {
		return err
	}
	return j.InjectAt(constant,
		il.New(il.LdLoc, d.PayloadLocal()),
		il.New(il.CallVirt, attackDamage),
	)
}

// hittingEnemy raises HittingEnemy before the hit is applied.
func hittingEnemy(j *inject.Injector, ctx *patcher.Context) error {
	d := inject.NewDeniable[*events.HittingEnemy](j, ctx.Registry)
	if err := d.InjectDeniableEvent(0); err != nil {
		return err
	}
	return d.Correlation().Verify(
		inject.Expect{Param: "enemy", Kind: inject.FromReceiver, Arg: 0},
		inject.Expect{Param: "playerWhoHit", Kind: inject.FromParam, Arg: 2},
		inject.Expect{Param: "force", Kind: inject.FromParam, Arg: 1},
		inject.Expect{Param: "isAllowed", Kind: inject.FromLiteralTrue},
	)
}
