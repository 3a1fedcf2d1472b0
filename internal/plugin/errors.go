package plugin

import "github.com/cockroachdb/errors"

// Plugin host errors.
var (
	// ErrScriptNotFound is returned for an unknown script id.
	ErrScriptNotFound = errors.New("script not found")

	// ErrNoEntryPoint is returned for a script directory without init.lua.
	ErrNoEntryPoint = errors.New("script directory has no init.lua")

	// ErrUnknownEvent is returned by events.on for an unknown event name.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrLoadFailed wraps errors raised while running a script's main chunk.
	ErrLoadFailed = errors.New("script failed to load")
)
