package event

import "go.uber.org/zap"

// SubscribeOption configures a single subscription.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	priority       Priority
	receiver       any
	name           string
	runsWhenDenied bool
	autoManaged    bool
}

func defaultSubscribeConfig() subscribeConfig {
	return subscribeConfig{
		priority:    PriorityDefault,
		autoManaged: true,
	}
}

func newSubscribeConfig(opts []SubscribeOption) subscribeConfig {
	cfg := defaultSubscribeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithPriority sets the handler priority.
func WithPriority(p Priority) SubscribeOption {
	return func(c *subscribeConfig) {
		c.priority = p
	}
}

// WithReceiver sets the instance the handler belongs to. Together with the
// handler's code identity it forms the subscription key. Receivers must be
// comparable.
func WithReceiver(receiver any) SubscribeOption {
	return func(c *subscribeConfig) {
		c.receiver = receiver
	}
}

// WithName replaces the handler's code identity with an explicit name.
// Use it for handlers built through reflection or by a script host, whose
// code pointers are shared.
func WithName(name string) SubscribeOption {
	return func(c *subscribeConfig) {
		c.name = name
	}
}

// RunWhenDenied makes the handler run even after the payload was denied.
func RunWhenDenied() SubscribeOption {
	return func(c *subscribeConfig) {
		c.runsWhenDenied = true
	}
}

// WithAutoManaged records whether the registration facade owns the handler.
func WithAutoManaged(managed bool) SubscribeOption {
	return func(c *subscribeConfig) {
		c.autoManaged = managed
	}
}

// Instrumenter is called once, on a dispatcher's first subscription.
type Instrumenter func()

// DispatcherOption configures a Dispatcher or Signal.
type DispatcherOption func(*dispatcherConfig)

type dispatcherConfig struct {
	logger       *zap.Logger
	logExecution bool
	instrumenter Instrumenter
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *zap.Logger) DispatcherOption {
	return func(c *dispatcherConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithExecutionLogging logs every dispatch at debug level.
func WithExecutionLogging(enabled bool) DispatcherOption {
	return func(c *dispatcherConfig) {
		c.logExecution = enabled
	}
}

// WithInstrumenter sets the lazy instrumentation hook.
func WithInstrumenter(fn Instrumenter) DispatcherOption {
	return func(c *dispatcherConfig) {
		c.instrumenter = fn
	}
}
