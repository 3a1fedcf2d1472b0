// Package app wires the event registry, the host image, the instrumentation
// coordinator, the registration facade and the script host into one
// Application.
//
// All dispatch happens on the goroutine that calls Invoke. Configuration
// reloads are only applied there, between host calls.
package app

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dshills/retrofit/internal/config"
	"github.com/dshills/retrofit/internal/event/events"
	"github.com/dshills/retrofit/internal/host"
	"github.com/dshills/retrofit/internal/logging"
	"github.com/dshills/retrofit/internal/patcher"
	"github.com/dshills/retrofit/internal/plugin"
	"github.com/dshills/retrofit/internal/registration"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the configuration file. Empty uses defaults and the
	// environment only.
	ConfigPath string

	// Config replaces loading entirely when set.
	Config *config.Config

	// Watch reloads ConfigPath when it changes.
	Watch bool

	// ImagePath loads a host image from YAML instead of the embedded game.
	ImagePath string

	// Logger replaces the logger built from configuration.
	Logger *zap.Logger

	// Trace logs every interpreted instruction.
	Trace bool
}

// Application owns every component.
type Application struct {
	opts   Options
	cfg    *config.Config
	log    *logging.Logger
	logger *zap.Logger

	handlers *events.Handlers
	image    *host.Image
	interp   *host.Interpreter
	coord    *patcher.Coordinator
	facade   *registration.Facade
	plugins  *plugin.Host
	watcher  *config.Watcher

	started   patcher.BatchResult
	initOrder []string
	closed    bool
}

// New bootstraps an application. On failure every component already
// initialized is released.
func New(ctx context.Context, opts Options) (*Application, error) {
	a := &Application{opts: opts}
	if err := newBootstrapper(a).bootstrap(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Config returns the active configuration.
func (a *Application) Config() *config.Config { return a.cfg }

// Logger returns the root logger.
func (a *Application) Logger() *zap.Logger { return a.logger }

// Handlers returns the event dispatchers.
func (a *Application) Handlers() *events.Handlers { return a.handlers }

// Image returns the host image.
func (a *Application) Image() *host.Image { return a.image }

// Coordinator returns the instrumentation coordinator.
func (a *Application) Coordinator() *patcher.Coordinator { return a.coord }

// Facade returns the registration facade.
func (a *Application) Facade() *registration.Facade { return a.facade }

// Plugins returns the script host.
func (a *Application) Plugins() *plugin.Host { return a.plugins }

// Started returns the result of the startup batch.
func (a *Application) Started() patcher.BatchResult { return a.started }

// Invoke runs a host method. Pending configuration reloads are applied first.
func (a *Application) Invoke(ctx context.Context, typ, method string, args ...any) (any, error) {
	if a.closed {
		return nil, ErrClosed
	}
	a.Poll()

	m, err := a.image.Method(typ, method)
	if err != nil {
		return nil, err
	}
	return a.interp.Invoke(ctx, m, args...)
}

// NewObject creates a host object with the given fields set.
func (a *Application) NewObject(typ string, fields map[string]any) (*host.Object, error) {
	obj, err := a.image.NewObject(typ)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		obj.SetField(k, v)
	}
	return obj, nil
}

// Poll applies a configuration reload if one is pending. It never blocks.
func (a *Application) Poll() {
	if a.watcher == nil {
		return
	}
	select {
	case next, ok := <-a.watcher.Changes():
		if ok {
			a.ApplyConfig(next)
		}
	case err, ok := <-a.watcher.Errors():
		if ok {
			a.logger.Warn("config reload failed", zap.Error(err))
		}
	default:
	}
}

// ApplyConfig applies the reloadable settings of next. Other changes are
// reported and wait for a restart.
func (a *Application) ApplyConfig(next *config.Config) {
	if !a.cfg.Reloadable(next) {
		a.logger.Warn("config change needs a restart; applying logging settings only")
	}
	a.log.SetDebug(next.Debug)
	a.handlers.Registry.SetExecutionLogging(next.LogEventExecution)
	a.coord.SetPatchLogging(next.LogEventPatching)
	a.coord.SetDetailedLogging(next.DetailedPatchLogging...)

	applied := *a.cfg
	applied.Debug = next.Debug
	applied.LogEventExecution = next.LogEventExecution
	applied.LogEventPatching = next.LogEventPatching
	applied.DetailedPatchLogging = next.DetailedPatchLogging
	a.cfg = &applied
	a.logger.Info("config reloaded",
		zap.Bool("debug", applied.Debug),
		zap.Bool("log_event_execution", applied.LogEventExecution),
		zap.Bool("log_event_patching", applied.LogEventPatching),
	)
}

// Close unloads scripts, restores every patched method and stops the
// watcher.
func (a *Application) Close() error {
	if a.closed {
		return ErrClosed
	}
	a.closed = true

	var errs error
	for i := len(a.initOrder) - 1; i >= 0; i-- {
		if err := a.release(a.initOrder[i]); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	a.initOrder = nil
	return errs
}
