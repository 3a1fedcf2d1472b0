package il

import (
	"strconv"
	"strings"
)

// Opcode identifies a host machine instruction.
type Opcode uint8

const (
	// Nop does nothing.
	Nop Opcode = iota
	// LdArg pushes argument n. For instance methods argument 0 is the receiver.
	LdArg
	// LdLoc pushes local n.
	LdLoc
	// StLoc pops into local n.
	StLoc
	// LdcI4 pushes an integer constant.
	LdcI4
	// LdcBool pushes a boolean constant.
	LdcBool
	// LdStr pushes a string constant.
	LdStr
	// LdNull pushes nil.
	LdNull
	// Dup duplicates the top of stack.
	Dup
	// Pop discards the top of stack.
	Pop
	// Add pops two integers and pushes their sum.
	Add
	// Sub pops two integers and pushes their difference.
	Sub
	// Mul pops two integers and pushes their product.
	Mul
	// Clt pushes whether the second-from-top is less than the top.
	Clt
	// Cgt pushes whether the second-from-top is greater than the top.
	Cgt
	// Ceq pushes whether the two top values are equal.
	Ceq
	// Br branches unconditionally.
	Br
	// BrTrue pops and branches when the value is true or non-zero.
	BrTrue
	// BrFalse pops and branches when the value is false, zero or nil.
	BrFalse
	// NewObj pops constructor arguments and pushes the constructed value.
	NewObj
	// Call pops arguments, invokes a Func and pushes its result if any.
	Call
	// CallVirt is Call with a mandatory non-nil receiver as first argument.
	CallVirt
	// LdFld pops an object and pushes one of its fields.
	LdFld
	// StFld pops a value and an object and stores the field.
	StFld
	// Ret returns from the method.
	Ret

	opcodeCount
)

var mnemonics = [opcodeCount]string{
	Nop:      "nop",
	LdArg:    "ldarg",
	LdLoc:    "ldloc",
	StLoc:    "stloc",
	LdcI4:    "ldc.i4",
	LdcBool:  "ldc.bool",
	LdStr:    "ldstr",
	LdNull:   "ldnull",
	Dup:      "dup",
	Pop:      "pop",
	Add:      "add",
	Sub:      "sub",
	Mul:      "mul",
	Clt:      "clt",
	Cgt:      "cgt",
	Ceq:      "ceq",
	Br:       "br",
	BrTrue:   "brtrue",
	BrFalse:  "brfalse",
	NewObj:   "newobj",
	Call:     "call",
	CallVirt: "callvirt",
	LdFld:    "ldfld",
	StFld:    "stfld",
	Ret:      "ret",
}

// String returns the opcode mnemonic.
func (op Opcode) String() string {
	if op < opcodeCount {
		return mnemonics[op]
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

// IsBranch reports whether the opcode transfers control to a Label operand.
func (op Opcode) IsBranch() bool {
	return op == Br || op == BrTrue || op == BrFalse
}

// IsConditional reports whether the opcode is a conditional branch.
func (op Opcode) IsConditional() bool {
	return op == BrTrue || op == BrFalse
}

// IsCall reports whether the opcode invokes a Func.
func (op Opcode) IsCall() bool {
	return op == Call || op == CallVirt
}

// ParseOpcode parses a mnemonic. Matching is case-insensitive.
func ParseOpcode(s string) (Opcode, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for op, m := range mnemonics {
		if m == s {
			return Opcode(op), true
		}
	}
	return Nop, false
}
