// Package inject rewrites host method bodies.
//
// An Injector works on a private copy of one method and keeps a cursor, the
// index at which the next instructions are inserted. Inserting advances the
// cursor past the new instructions so consecutive injections read in order:
//
//	inj := inject.New(m)
//	snap := inj.Snapshot()
//	at := snap.FindNth(2, il.IsOp(il.Ret), 0) + 1
//	if err := inj.InjectAt(at, il.New(il.LdArg, 0), il.New(il.Call, trace)); err != nil {
//	    return err
//	}
//	return inj.Commit()
//
// Labels are branch targets attached to instructions. Removing an instruction
// that carries a label fails with ErrLabeledRemoval; move the label first
// with MoveLabels. Commit validates the rewritten body and installs it in one
// assignment, so the method is never seen half rewritten.
//
// DeniableEventInjector builds on Injector to splice a deniable event into a
// body: construct the payload from the method's own values, dispatch it, and
// return early when a handler denied it. EventInjector does the same for
// payloads nobody can deny, typically raised before every ret so the event
// follows the original body.
package inject
