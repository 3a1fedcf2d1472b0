package inject

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/dshills/retrofit/internal/il"
)

// SourceKind tells where a constructor argument comes from.
type SourceKind int

const (
	// FromReceiver loads the instrumented method's receiver.
	FromReceiver SourceKind = iota
	// FromParam loads one of the method's parameters.
	FromParam
	// FromLiteralTrue pushes true for the trailing "allowed" parameter.
	FromLiteralTrue
)

// String returns the kind name.
func (k SourceKind) String() string {
	switch k {
	case FromReceiver:
		return "receiver"
	case FromParam:
		return "param"
	case FromLiteralTrue:
		return "true"
	default:
		return "unknown"
	}
}

// Source is the resolved origin of one constructor argument.
type Source struct {
	Kind SourceKind

	// Param is the constructor parameter being fed.
	Param il.Param

	// Arg is the argument slot loaded for FromReceiver and FromParam.
	Arg int
}

// Load returns the instruction that pushes the value.
func (s Source) Load() il.Instruction {
	if s.Kind == FromLiteralTrue {
		return il.New(il.LdcBool, true)
	}
	return il.New(il.LdArg, s.Arg)
}

// String renders "name type <- ldarg 1".
func (s Source) String() string {
	return s.Param.String() + " <- " + s.Load().String()
}

// Correlation maps every constructor parameter of a payload to a value of
// the instrumented method.
type Correlation struct {
	Method  string
	Ctor    *il.Ctor
	Sources []Source
}

// Loads returns the instructions that push every constructor argument.
func (c *Correlation) Loads() []il.Instruction {
	out := make([]il.Instruction, len(c.Sources))
	for i, s := range c.Sources {
		out[i] = s.Load()
	}
	return out
}

// String renders one source per line.
func (c *Correlation) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s -> %s\n", c.Method, c.Ctor)
	for _, s := range c.Sources {
		sb.WriteString("  ")
		sb.WriteString(s.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Expect describes the source a test requires for a constructor parameter.
type Expect struct {
	Param string
	Kind  SourceKind
	// Arg is checked for FromReceiver and FromParam.
	Arg int
}

// Verify checks the correlation against an explicit expectation, one entry
// per constructor parameter in order.
func (c *Correlation) Verify(want ...Expect) error {
	if len(want) != len(c.Sources) {
		return errors.Newf("%s: %d sources, expected %d", c.Method, len(c.Sources), len(want))
	}
	for i, w := range want {
		got := c.Sources[i]
		if got.Param.Name != w.Param {
			return errors.Newf("%s: source %d feeds %q, expected %q", c.Method, i, got.Param.Name, w.Param)
		}
		if got.Kind != w.Kind {
			return errors.Newf("%s: %s comes from %s, expected %s", c.Method, w.Param, got.Kind, w.Kind)
		}
		if got.Kind != FromLiteralTrue && got.Arg != w.Arg {
			return errors.Newf("%s: %s loads arg %d, expected %d", c.Method, w.Param, got.Arg, w.Arg)
		}
	}
	return nil
}

// Correlate resolves every parameter of ctor against m, in order:
//
//  1. the first parameter, when its type is m's declaring type and m has a
//     receiver, loads the receiver;
//  2. the last parameter, when it is a bool, is the literal true;
//  3. otherwise exactly one of m's parameters must share its name and type.
//
// Any parameter left unresolved is a *ConfigurationError.
func Correlate(m *il.Method, ctor *il.Ctor) (*Correlation, error) {
	c := &Correlation{Method: m.FullName(), Ctor: ctor}
	last := len(ctor.Params) - 1
	for i, p := range ctor.Params {
		switch {
		case i == 0 && !m.Static && p.Type == m.DeclaringType:
			c.Sources = append(c.Sources, Source{Kind: FromReceiver, Param: p, Arg: 0})
			continue
		case i == last && p.Type == "bool":
			c.Sources = append(c.Sources, Source{Kind: FromLiteralTrue, Param: p})
			continue
		}

		match := -1
		for j, mp := range m.Params {
			if mp.Name != p.Name || mp.Type != p.Type {
				continue
			}
			if match >= 0 {
				return nil, &ConfigurationError{Method: m.FullName(), Payload: ctor.Type, Param: p.String(), Err: ErrAmbiguousParameter}
			}
			match = j
		}
		if match < 0 {
			return nil, &ConfigurationError{Method: m.FullName(), Payload: ctor.Type, Param: p.String(), Err: ErrUnresolvedParameter}
		}
		c.Sources = append(c.Sources, Source{Kind: FromParam, Param: p, Arg: m.ArgIndex(match)})
	}
	return c, nil
}
