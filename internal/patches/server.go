package patches

import (
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/dshills/retrofit/internal/event"
	"github.com/dshills/retrofit/internal/event/events"
	"github.com/dshills/retrofit/internal/il"
	"github.com/dshills/retrofit/internal/inject"
	"github.com/dshills/retrofit/internal/patcher"
)

// resetSave raises ResetSave before the save slot is wiped. The slot name
// lives in a field, so the arguments are loaded by hand.
func resetSave(j *inject.Injector, ctx *patcher.Context) error {
	if err := injectLoads(j, 0,
		il.New(il.LdArg, 0),
		il.New(il.LdFld, il.Field("currentSaveFileName")),
		il.New(il.LdcBool, true),
	); err != nil {
		return err
	}
	return inject.NewDeniable[*events.ResetSave](j, ctx.Registry).
		AutoInsertConstructorParameters(false).
		InjectDeniableEvent(inject.Cursor)
}

// gameOpened raises GameOpened before every return of the menu's Start.
func gameOpened(j *inject.Injector, ctx *patcher.Context) error {
	entry, err := ctx.Registry.ByType(event.GameOpened)
	if err != nil {
		return err
	}
	rets := j.Snapshot().FindAll(il.IsOp(il.Ret))
	if len(rets) == 0 {
		return errors.Wrap(ErrAnchorNotFound, "ret")
	}
	// Back to front so earlier offsets stay valid.
	for _, at := range slices.Backward(rets) {
		if err := injectLoads(j, at, il.New(il.Call, entry.Dispatch)); err != nil {
			return err
		}
	}
	return nil
}

// saving raises Saving with item after the save method ran, loading the slot
// name with slot at every exit.
func saving(item events.SaveItem, slot ...il.Instruction) patcher.RewriteFunc {
	return func(j *inject.Injector, ctx *patcher.Context) error {
		return inject.NewEvent[*events.Saving](j, ctx.Registry).
			AutoInsertConstructorParameters(false).
			InjectEventOnExit(append(il.CloneBody(slot), il.New(il.LdStr, string(item)))...)
	}
}

// loadingSave raises LoadingSave with item after the load method ran.
func loadingSave(item events.LoadedItem, slot ...il.Instruction) patcher.RewriteFunc {
	return func(j *inject.Injector, ctx *patcher.Context) error {
		return inject.NewEvent[*events.LoadingSave](j, ctx.Registry).
			AutoInsertConstructorParameters(false).
			InjectEventOnExit(append(il.CloneBody(slot), il.New(il.LdStr, string(item)))...)
	}
}

// Slot loads.
var (
	generalSlot = []il.Instruction{
		il.New(il.LdStr, events.GeneralSaveSlot),
	}
	managerSlot = []il.Instruction{
		il.New(il.LdArg, 0),
		il.New(il.LdFld, il.Field("currentSaveFileName")),
	}
	roundSlot = []il.Instruction{
		il.New(il.LdArg, 0),
		il.New(il.LdFld, il.Field("networkManager")),
		il.New(il.LdFld, il.Field("currentSaveFileName")),
	}
)
