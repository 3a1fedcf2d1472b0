package host

import (
	"fmt"
	"sort"
	"strings"
)

// FieldAccessor is implemented by values that ldfld and stfld operate on.
type FieldAccessor interface {
	Field(name string) (any, bool)
	SetField(name string, value any)
}

// Object is a host object instance.
type Object struct {
	Type   string
	Fields map[string]any
}

// NewObject creates an object with the given field values.
func NewObject(typ string, fields map[string]any) *Object {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &Object{Type: typ, Fields: fields}
}

// Field returns a field value.
func (o *Object) Field(name string) (any, bool) {
	v, ok := o.Fields[name]
	return v, ok
}

// SetField stores a field value.
func (o *Object) SetField(name string, value any) {
	o.Fields[name] = value
}

// Int returns an integer field, or zero.
func (o *Object) Int(name string) int {
	n, _ := o.Fields[name].(int)
	return n
}

// Bool returns a boolean field, or false.
func (o *Object) Bool(name string) bool {
	b, _ := o.Fields[name].(bool)
	return b
}

// String renders "Type{a: 1, b: true}" with fields sorted by name.
func (o *Object) String() string {
	if o == nil {
		return "<nil>"
	}
	keys := make([]string, 0, len(o.Fields))
	for k := range o.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %v", k, o.Fields[k])
	}
	return o.Type + "{" + strings.Join(parts, ", ") + "}"
}
