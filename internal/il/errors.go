package il

import "github.com/cockroachdb/errors"

// Sentinel errors for instruction validation.
var (
	// ErrDanglingLabel is returned when a branch targets a label that no
	// instruction carries.
	ErrDanglingLabel = errors.New("branch targets a label no instruction carries")

	// ErrDuplicateLabel is returned when a label is attached to more than one
	// instruction.
	ErrDuplicateLabel = errors.New("label attached to more than one instruction")

	// ErrBadOperand is returned when an instruction's operand does not match
	// what its opcode expects.
	ErrBadOperand = errors.New("operand does not match opcode")

	// ErrUnknownOpcode is returned when a mnemonic cannot be parsed.
	ErrUnknownOpcode = errors.New("unknown opcode")
)
