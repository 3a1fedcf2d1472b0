package patches

import "github.com/cockroachdb/errors"

var (
	// ErrAnchorNotFound is returned when a rewrite cannot locate its
	// injection point in the target body.
	ErrAnchorNotFound = errors.New("injection anchor not found")

	// ErrUnexpectedOperand is returned when an anchor instruction does not
	// carry the operand the rewrite reads.
	ErrUnexpectedOperand = errors.New("unexpected operand")

	// ErrUnknownLocal is returned when a rewrite needs a local the target
	// does not declare.
	ErrUnknownLocal = errors.New("unknown local")
)
