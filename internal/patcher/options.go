package patcher

import "go.uber.org/zap"

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLazy selects lazy (true, the default) or eager instrumentation.
func WithLazy(lazy bool) Option {
	return func(c *Coordinator) {
		c.lazy = lazy
	}
}

// WithPatchLogging logs every applied and reverted candidate at debug level.
func WithPatchLogging(enabled bool) Option {
	return func(c *Coordinator) {
		c.logPatching = enabled
	}
}

// WithDetailedLogging logs the rewritten body of the named candidates.
func WithDetailedLogging(names ...string) Option {
	return func(c *Coordinator) {
		c.SetDetailedLogging(names...)
	}
}
