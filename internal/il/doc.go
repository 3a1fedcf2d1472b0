// Package il defines the instruction model of host method bodies.
//
// A host method body is an ordered list of Instructions for a small stack
// machine. Each instruction carries an opcode, an optional operand and zero or
// more attached Labels. Labels are the branch targets: a branch instruction
// names a Label as its operand and control transfers to whichever instruction
// currently carries that Label. Because targets follow labels and not indexes,
// spans can be inserted or removed in front of a target without rewriting the
// branches that point at it, as long as the label itself is never orphaned.
//
// # Reading and writing
//
// Snapshot is an immutable, searchable read view over a body. Rewrites happen
// on a separate write list (see package inject) and are merged back into the
// Method in a single assignment once the pass validates.
//
//	snap := il.NewSnapshot(m.Body)
//	second := snap.FindNth(2, il.IsOp(il.Ret), 0)
//
// # Operands
//
//   - int: argument index, local index or integer constant
//   - bool, string: constants
//   - Label: branch target
//   - *Func: a callable bound to Go code (natives and injected dispatch calls)
//   - *Ctor: a payload or host object constructor with declared parameters
//   - Field: a field name on a host object
package il
