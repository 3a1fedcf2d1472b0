package il

import (
	"strconv"
	"strings"
)

// Label is a method-scoped branch target id.
type Label int

// String returns the label in listing form, e.g. "L3".
func (l Label) String() string {
	return "L" + strconv.Itoa(int(l))
}

// Param is a named, typed parameter of a method or constructor.
type Param struct {
	Name string
	Type string
}

// String returns "name type".
func (p Param) String() string {
	return p.Name + " " + p.Type
}

// Func is a callable operand bound to Go code.
//
// NumIn counts every popped argument including the receiver for CallVirt.
// When Returns is set the result of Invoke is pushed.
type Func struct {
	Name    string
	NumIn   int
	Returns bool
	Invoke  func(args []any) (any, error)
}

// String returns the function name.
func (f *Func) String() string {
	if f == nil {
		return "<nil func>"
	}
	return f.Name
}

// Ctor constructs a value of a named type from positional arguments.
type Ctor struct {
	Type   string
	Params []Param
	New    func(args []any) (any, error)
}

// String renders the constructor signature, e.g. "Healing(player PlayerController, isAllowed bool)".
func (c *Ctor) String() string {
	if c == nil {
		return "<nil ctor>"
	}
	parts := make([]string, len(c.Params))
	for i, p := range c.Params {
		parts[i] = p.String()
	}
	return c.Type + "(" + strings.Join(parts, ", ") + ")"
}

// Field names a field on a host object.
type Field string

// String returns the field name prefixed with a dot.
func (f Field) String() string {
	return "." + string(f)
}
