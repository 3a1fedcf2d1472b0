// Package event implements priority-ordered, deniable event dispatch.
//
// Each event is served by one Dispatcher[T] for its payload type T, or by a
// Signal for payload-less events. Handlers are kept in a single ordered set:
// typed handlers first, by descending Priority, stable in registration order,
// followed by observers (zero-argument handlers) in the same order.
//
// # Denial
//
// Payloads that implement Deniable may be vetoed by a handler:
//
//	d.Subscribe(func(p *events.Healing) {
//	    if p.Player.Int("health") > 80 {
//	        p.SetAllowed(false)
//	    }
//	}, event.WithPriority(event.PriorityHigh))
//
// Once denied, later typed handlers are skipped unless they subscribed with
// RunWhenDenied. HardDeny stops dispatch immediately. Observers only run when
// the payload is still allowed after every typed handler.
//
// # Faults
//
// A panicking handler is recovered, logged as a HandlerFault with its name,
// and dispatch continues with the next handler. A fault never changes the
// payload's allowed state.
//
// # Lazy instrumentation
//
// A dispatcher holds an Instrumenter hook. The first successful subscription
// calls it exactly once, which lets the host patch for an event be applied
// only when somebody listens.
//
// Dispatch is single-threaded: a Dispatcher holds no locks and must only be
// used from the goroutine that drives the host.
package event
