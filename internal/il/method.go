package il

import "slices"

// Local is a named, typed local variable slot.
type Local struct {
	Name string
	Type string
}

// Method describes one host method and owns its body.
type Method struct {
	// DeclaringType is the host type the method belongs to.
	DeclaringType string

	// Name is the method name.
	Name string

	// Static is true when the method has no implicit receiver.
	Static bool

	// Params are the declared parameters, excluding the receiver.
	Params []Param

	// Returns is the return type name, empty for void methods.
	Returns string

	// Locals are the local variable slots.
	Locals []Local

	// Body is the instruction stream.
	Body []Instruction

	nextLabel  Label
	labelsSeen bool
}

// FullName returns "DeclaringType.Name".
func (m *Method) FullName() string {
	if m.DeclaringType == "" {
		return m.Name
	}
	return m.DeclaringType + "." + m.Name
}

// NumArgs returns the number of argument slots including the receiver.
func (m *Method) NumArgs() int {
	if m.Static {
		return len(m.Params)
	}
	return len(m.Params) + 1
}

// ArgIndex maps a declared parameter position to its argument slot.
func (m *Method) ArgIndex(param int) int {
	if m.Static {
		return param
	}
	return param + 1
}

// DefineLabel allocates a label that is unused anywhere in the body.
func (m *Method) DefineLabel() Label {
	if !m.labelsSeen {
		m.nextLabel = maxLabel(m.Body) + 1
		m.labelsSeen = true
	}
	l := m.nextLabel
	m.nextLabel++
	return l
}

// DeclareLocal appends a local slot and returns its index.
func (m *Method) DeclareLocal(name, typ string) int {
	m.Locals = append(m.Locals, Local{Name: name, Type: typ})
	return len(m.Locals) - 1
}

// Clone returns a deep copy of the method.
func (m *Method) Clone() *Method {
	out := *m
	out.Params = slices.Clone(m.Params)
	out.Locals = slices.Clone(m.Locals)
	out.Body = CloneBody(m.Body)
	return &out
}

// maxLabel returns the highest label attached to or targeted by body, or -1.
func maxLabel(body []Instruction) Label {
	highest := Label(-1)
	for _, ins := range body {
		for _, l := range ins.Labels {
			highest = max(highest, l)
		}
		if t, ok := ins.Target(); ok {
			highest = max(highest, t)
		}
	}
	return highest
}
