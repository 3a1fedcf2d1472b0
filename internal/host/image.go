package host

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/dshills/retrofit/internal/il"
)

// Type is a host type: declared fields and methods.
type Type struct {
	Name    string
	Fields  []string
	Methods map[string]*il.Method
}

// Ctor returns a constructor that assigns its arguments to the declared
// fields in order.
func (t *Type) Ctor() *il.Ctor {
	params := make([]il.Param, len(t.Fields))
	for i, f := range t.Fields {
		params[i] = il.Param{Name: f, Type: "any"}
	}
	fields := t.Fields
	name := t.Name
	return &il.Ctor{
		Type:   name,
		Params: params,
		New: func(args []any) (any, error) {
			values := make(map[string]any, len(fields))
			for i, f := range fields {
				values[f] = args[i]
			}
			return NewObject(name, values), nil
		},
	}
}

// Image is the set of host types available to patches.
type Image struct {
	types map[string]*Type
}

// NewImage creates an empty image.
func NewImage() *Image {
	return &Image{types: make(map[string]*Type)}
}

// AddType adds or replaces a type.
func (img *Image) AddType(t *Type) {
	if t.Methods == nil {
		t.Methods = make(map[string]*il.Method)
	}
	img.types[t.Name] = t
}

// AddMethod attaches a method to its declaring type, creating the type if needed.
func (img *Image) AddMethod(m *il.Method) {
	t, ok := img.types[m.DeclaringType]
	if !ok {
		t = &Type{Name: m.DeclaringType}
		img.AddType(t)
	}
	t.Methods[m.Name] = m
}

// Type returns a type by name.
func (img *Image) Type(name string) (*Type, error) {
	t, ok := img.types[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "%q", name)
	}
	return t, nil
}

// Method looks up a method by declaring type and name.
func (img *Image) Method(typ, name string) (*il.Method, error) {
	t, err := img.Type(typ)
	if err != nil {
		return nil, err
	}
	m, ok := t.Methods[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownMethod, "%s.%s", typ, name)
	}
	return m, nil
}

// NewObject creates an instance of a declared type with all fields nil.
func (img *Image) NewObject(typ string) (*Object, error) {
	t, err := img.Type(typ)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any, len(t.Fields))
	for _, f := range t.Fields {
		fields[f] = nil
	}
	return NewObject(t.Name, fields), nil
}

// Types returns the type names in sorted order.
func (img *Image) Types() []string {
	names := make([]string, 0, len(img.types))
	for n := range img.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Methods returns every method sorted by full name.
func (img *Image) Methods() []*il.Method {
	var out []*il.Method
	for _, t := range img.types {
		for _, m := range t.Methods {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FullName() < out[j].FullName()
	})
	return out
}
