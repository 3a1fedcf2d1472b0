package patches

import (
	"github.com/cockroachdb/errors"

	"github.com/dshills/retrofit/internal/event/events"
	"github.com/dshills/retrofit/internal/il"
	"github.com/dshills/retrofit/internal/inject"
	"github.com/dshills/retrofit/internal/patcher"
)

var playerFromReceiver = []inject.Expect{
	{Param: "player", Kind: inject.FromReceiver, Arg: 0},
	{Param: "isAllowed", Kind: inject.FromLiteralTrue},
}

// healingInjuring raises Healing at the start of the recovery branch (after
// the second ret) and CriticallyInjure once enable has been tested. The later
// offset is patched first so the earlier one stays valid.
func healingInjuring(j *inject.Injector, ctx *patcher.Context) error {
	second := j.Snapshot().FindNth(2, il.IsOp(il.Ret), 0)
	if second < 0 {
		return errors.Wrap(ErrAnchorNotFound, "second ret")
	}

	heal := inject.NewDeniable[*events.Healing](j, ctx.Registry)
	if err := heal.InjectDeniableEvent(second + 1); err != nil {
		return err
	}
	if err := heal.Correlation().Verify(playerFromReceiver...); err != nil {
		return err
	}

	injure := inject.NewDeniable[*events.CriticallyInjure](j, ctx.Registry)
	if err := injure.InjectDeniableEvent(2); err != nil {
		return err
	}
	return injure.Correlation().Verify(playerFromReceiver...)
}

// usingItem raises UsingItem before the item activates.
func usingItem(j *inject.Injector, ctx *patcher.Context) error {
	d := inject.NewDeniable[*events.UsingItem](j, ctx.Registry)
	if err := d.InjectDeniableEvent(0); err != nil {
		return err
	}
	return d.Correlation().Verify(
		inject.Expect{Param: "item", Kind: inject.FromReceiver, Arg: 0},
		inject.Expect{Param: "buttonDown", Kind: inject.FromParam, Arg: 2},
		inject.Expect{Param: "isAllowed", Kind: inject.FromLiteralTrue},
	)
}
