package registration

import "github.com/dshills/retrofit/internal/event"

// Marker tags one method of an instance as an event handler.
type Marker struct {
	// Method is the exported method name.
	Method string

	// Event selects the dispatcher. EventNone infers it from the parameter.
	Event event.EventType

	Priority       event.Priority
	RunsWhenDenied bool

	// AutoManaged markers are subscribed by RegisterEvents. Others are left
	// to the extension.
	AutoManaged bool
}

// Mark returns a marker for method with default priority, auto-managed.
func Mark(method string) Marker {
	return Marker{
		Method:      method,
		Priority:    event.PriorityDefault,
		AutoManaged: true,
	}
}

// On sets the event explicitly.
func (m Marker) On(t event.EventType) Marker {
	m.Event = t
	return m
}

// WithPriority sets the handler priority.
func (m Marker) WithPriority(p event.Priority) Marker {
	m.Priority = p
	return m
}

// RunWhenDenied lets the handler run after the payload was denied.
func (m Marker) RunWhenDenied() Marker {
	m.RunsWhenDenied = true
	return m
}

// Manual excludes the marker from RegisterEvents.
func (m Marker) Manual() Marker {
	m.AutoManaged = false
	return m
}

// StaticMarker tags a free function.
type StaticMarker struct {
	Marker

	// Func is the handler: func(payload) or func().
	Func any
}

// Static pairs a marker with fn. The marker's Method names the function.
func Static(m Marker, fn any) StaticMarker {
	return StaticMarker{Marker: m, Func: fn}
}

// Tagged is implemented by instances that declare handler methods.
type Tagged interface {
	EventMarkers() []Marker
}

// StaticTagged is implemented by tables of free handler functions.
type StaticTagged interface {
	StaticEventMarkers() []StaticMarker
}
