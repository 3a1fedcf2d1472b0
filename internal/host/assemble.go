package host

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/dshills/retrofit/internal/il"
)

// Natives binds native names to Go functions.
type Natives map[string]*il.Func

// Bind adds a native and returns the table for chaining.
func (n Natives) Bind(name string, numIn int, returns bool, fn func(args []any) (any, error)) Natives {
	n[name] = &il.Func{Name: name, NumIn: numIn, Returns: returns, Invoke: fn}
	return n
}

// Assembler turns instruction listings into bodies.
type Assembler struct {
	natives Natives
	ctors   map[string]*il.Ctor
}

// NewAssembler creates an assembler that resolves calls against natives and
// newobj operands against ctors.
func NewAssembler(natives Natives, ctors map[string]*il.Ctor) *Assembler {
	if natives == nil {
		natives = Natives{}
	}
	if ctors == nil {
		ctors = map[string]*il.Ctor{}
	}
	return &Assembler{natives: natives, ctors: ctors}
}

// Assemble parses a listing. One instruction per line; leading "Ln:" tokens
// attach labels; ';' and '#' start comments. A label on a line of its own
// attaches to the next instruction.
func (a *Assembler) Assemble(src string) ([]il.Instruction, error) {
	var (
		body    []il.Instruction
		pending []il.Label
		lineNo  int
	)
	sc := bufio.NewScanner(strings.NewReader(src))
	for sc.Scan() {
		lineNo++
		rest := strings.TrimSpace(stripComment(sc.Text()))
		for rest != "" {
			tok, tail, _ := strings.Cut(rest, " ")
			if !strings.HasSuffix(tok, ":") {
				break
			}
			l, err := parseLabel(strings.TrimSuffix(tok, ":"))
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			pending = append(pending, l)
			rest = strings.TrimSpace(tail)
		}
		if rest == "" {
			continue
		}
		mnemonic, arg, _ := strings.Cut(rest, " ")
		op, ok := il.ParseOpcode(mnemonic)
		if !ok {
			return nil, errors.Wrapf(il.ErrUnknownOpcode, "line %d: %q", lineNo, mnemonic)
		}
		arg = strings.TrimSpace(arg)
		operand, err := a.operand(op, arg)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		ins := il.New(op, operand)
		if len(pending) > 0 {
			ins = ins.WithLabels(pending...)
			pending = nil
		}
		body = append(body, ins)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read listing")
	}
	if len(pending) > 0 {
		return nil, errors.Wrapf(ErrSyntax, "labels %v attach to no instruction", pending)
	}
	if err := il.Validate(body); err != nil {
		return nil, err
	}
	return body, nil
}

func (a *Assembler) operand(op il.Opcode, arg string) (any, error) {
	need := func() error {
		if arg == "" {
			return errors.Wrapf(ErrSyntax, "%s needs an operand", op)
		}
		return nil
	}
	switch op {
	case il.LdArg, il.LdLoc, il.StLoc, il.LdcI4:
		if err := need(); err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, errors.Wrapf(ErrSyntax, "%s: bad integer %q", op, arg)
		}
		return n, nil
	case il.LdcBool:
		b, err := strconv.ParseBool(arg)
		if err != nil {
			return nil, errors.Wrapf(ErrSyntax, "%s: bad bool %q", op, arg)
		}
		return b, nil
	case il.LdStr:
		s, err := strconv.Unquote(arg)
		if err != nil {
			return nil, errors.Wrapf(ErrSyntax, "%s: bad string %s", op, arg)
		}
		return s, nil
	case il.Br, il.BrTrue, il.BrFalse:
		if err := need(); err != nil {
			return nil, err
		}
		return parseLabel(arg)
	case il.NewObj:
		if err := need(); err != nil {
			return nil, err
		}
		c, ok := a.ctors[arg]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownType, "newobj %q", arg)
		}
		return c, nil
	case il.Call, il.CallVirt:
		if err := need(); err != nil {
			return nil, err
		}
		name := strings.TrimPrefix(arg, "native:")
		f, ok := a.natives[name]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownNative, "%q", name)
		}
		return f, nil
	case il.LdFld, il.StFld:
		if err := need(); err != nil {
			return nil, err
		}
		return il.Field(strings.TrimPrefix(arg, ".")), nil
	default:
		if arg != "" {
			return nil, errors.Wrapf(ErrSyntax, "%s takes no operand", op)
		}
		return nil, nil
	}
}

func parseLabel(s string) (il.Label, error) {
	if len(s) < 2 || (s[0] != 'L' && s[0] != 'l') {
		return 0, errors.Wrapf(ErrSyntax, "bad label %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 {
		return 0, errors.Wrapf(ErrSyntax, "bad label %q", s)
	}
	return il.Label(n), nil
}

func stripComment(line string) string {
	inString := false
	for i, r := range line {
		switch {
		case r == '"' && (i == 0 || line[i-1] != '\\'):
			inString = !inString
		case (r == ';' || r == '#') && !inString:
			return line[:i]
		}
	}
	return line
}
