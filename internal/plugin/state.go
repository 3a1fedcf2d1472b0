package plugin

// State is the lifecycle state of a script.
type State int

// Script states.
const (
	// StateUnloaded - the script is not running.
	StateUnloaded State = iota

	// StateLoaded - the main chunk ran and its handlers are subscribed.
	StateLoaded

	// StateError - the main chunk failed.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
