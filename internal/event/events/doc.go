// Package events defines the payloads of every retrofitted host event and
// builds the registry that serves them.
//
// Each payload has a constructor descriptor whose parameters are named and
// typed after the host method values they are built from, so injected code
// can correlate them with the instrumented method's receiver and arguments.
package events
