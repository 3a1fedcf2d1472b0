package il

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Instruction is a single host machine instruction.
type Instruction struct {
	// Op is the opcode.
	Op Opcode

	// Operand is the opcode argument, nil when the opcode takes none.
	Operand any

	// Labels are the branch targets attached to this instruction.
	Labels []Label
}

// New creates an instruction with an operand.
func New(op Opcode, operand any) Instruction {
	return Instruction{Op: op, Operand: operand}
}

// Simple creates an instruction without an operand.
func Simple(op Opcode) Instruction {
	return Instruction{Op: op}
}

// WithLabels returns a copy of the instruction with labels appended.
func (i Instruction) WithLabels(labels ...Label) Instruction {
	out := i.Clone()
	out.Labels = append(out.Labels, labels...)
	return out
}

// HasLabel reports whether l is attached to the instruction.
func (i Instruction) HasLabel(l Label) bool {
	return slices.Contains(i.Labels, l)
}

// Target returns the branch target of a branch instruction.
func (i Instruction) Target() (Label, bool) {
	if !i.Op.IsBranch() {
		return 0, false
	}
	l, ok := i.Operand.(Label)
	return l, ok
}

// Clone returns a copy that shares no label storage with i.
func (i Instruction) Clone() Instruction {
	out := i
	if i.Labels != nil {
		out.Labels = slices.Clone(i.Labels)
	}
	return out
}

// String renders the instruction in listing form without its labels.
func (i Instruction) String() string {
	if i.Operand == nil {
		return i.Op.String()
	}
	return i.Op.String() + " " + FormatOperand(i.Operand)
}

// FormatOperand renders an operand the way listings and the assembler spell it.
func FormatOperand(v any) string {
	switch o := v.(type) {
	case nil:
		return ""
	case string:
		return strconv.Quote(o)
	case fmt.Stringer:
		return o.String()
	default:
		return fmt.Sprint(o)
	}
}

// CloneBody deep-copies a method body.
func CloneBody(body []Instruction) []Instruction {
	if body == nil {
		return nil
	}
	out := make([]Instruction, len(body))
	for i, ins := range body {
		out[i] = ins.Clone()
	}
	return out
}

// labelList renders attached labels as "L1, L2".
func labelList(labels []Label) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.String()
	}
	return strings.Join(parts, ", ")
}
