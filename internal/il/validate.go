package il

import "github.com/cockroachdb/errors"

// Validate checks that a body is self-consistent.
//
// Every label is attached to at most one instruction, every branch targets an
// attached label, and every operand has the kind its opcode expects.
func Validate(body []Instruction) error {
	attached := make(map[Label]int, len(body))
	for i, ins := range body {
		for _, l := range ins.Labels {
			if prev, dup := attached[l]; dup {
				return errors.Wrapf(ErrDuplicateLabel, "%s at %d and %d", l, prev, i)
			}
			attached[l] = i
		}
	}
	for i, ins := range body {
		if err := checkOperand(ins); err != nil {
			return errors.Wrapf(err, "instruction %d (%s)", i, ins.Op)
		}
		if t, ok := ins.Target(); ok {
			if _, found := attached[t]; !found {
				return errors.Wrapf(ErrDanglingLabel, "instruction %d: %s %s", i, ins.Op, t)
			}
		}
	}
	return nil
}

func checkOperand(ins Instruction) error {
	ok := true
	switch ins.Op {
	case LdArg, LdLoc, StLoc:
		n, isInt := ins.Operand.(int)
		ok = isInt && n >= 0
	case LdcI4:
		_, ok = ins.Operand.(int)
	case LdcBool:
		_, ok = ins.Operand.(bool)
	case LdStr:
		_, ok = ins.Operand.(string)
	case Br, BrTrue, BrFalse:
		_, ok = ins.Operand.(Label)
	case NewObj:
		c, isCtor := ins.Operand.(*Ctor)
		ok = isCtor && c != nil && c.New != nil
	case Call, CallVirt:
		f, isFunc := ins.Operand.(*Func)
		ok = isFunc && f != nil && f.Invoke != nil
	case LdFld, StFld:
		_, ok = ins.Operand.(Field)
	case Nop, LdNull, Dup, Pop, Add, Sub, Mul, Clt, Cgt, Ceq, Ret:
		ok = ins.Operand == nil
	default:
		return errors.Wrapf(ErrUnknownOpcode, "%s", ins.Op)
	}
	if !ok {
		return errors.Wrapf(ErrBadOperand, "got %T", ins.Operand)
	}
	return nil
}
