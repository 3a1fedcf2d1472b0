// Package registration subscribes tagged methods to their event dispatchers.
//
// An extension declares its handlers with markers:
//
//	func (p *Plugin) EventMarkers() []registration.Marker {
//	    return []registration.Marker{
//	        registration.Mark("OnHealing").WithPriority(event.PriorityHigh),
//	        registration.Mark("OnGameOpened").On(event.GameOpened),
//	    }
//	}
//
// A marker without an event resolves its dispatcher from the handler's single
// parameter type. A zero-argument handler needs an explicit event: it becomes
// an observer of a payload event or a subscriber of a standalone event.
//
// Handlers that cannot be resolved are logged and skipped; registration of
// the remaining handlers continues.
package registration
