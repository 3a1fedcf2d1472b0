package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/dshills/retrofit/internal/config"
	"github.com/dshills/retrofit/internal/event"
	"github.com/dshills/retrofit/internal/event/events"
	"github.com/dshills/retrofit/internal/host"
	"github.com/dshills/retrofit/internal/logging"
	"github.com/dshills/retrofit/internal/patcher"
	"github.com/dshills/retrofit/internal/patches"
	"github.com/dshills/retrofit/internal/plugin"
	"github.com/dshills/retrofit/internal/registration"
)

// bootstrapper initializes components in dependency order.
type bootstrapper struct {
	app *Application
}

func newBootstrapper(a *Application) *bootstrapper {
	return &bootstrapper{app: a}
}

func (b *bootstrapper) bootstrap(ctx context.Context) error {
	steps := []struct {
		name string
		init func(context.Context) error
	}{
		{"config", b.initConfig},
		{"logging", b.initLogging},
		{"events", b.initEvents},
		{"image", b.initImage},
		{"patcher", b.initPatcher},
		{"registration", b.initRegistration},
		{"plugins", b.initPlugins},
		{"watcher", b.initWatcher},
	}
	for _, step := range steps {
		if err := step.init(ctx); err != nil {
			b.cleanup()
			return &InitError{Component: step.name, Err: err}
		}
		b.app.initOrder = append(b.app.initOrder, step.name)
	}
	return nil
}

func (b *bootstrapper) initConfig(context.Context) error {
	if b.app.opts.Config != nil {
		if err := b.app.opts.Config.Validate(); err != nil {
			return err
		}
		b.app.cfg = b.app.opts.Config
		return nil
	}
	cfg, err := config.Load(b.app.opts.ConfigPath)
	if err != nil {
		return err
	}
	b.app.cfg = cfg
	return nil
}

func (b *bootstrapper) initLogging(context.Context) error {
	if b.app.opts.Logger != nil {
		b.app.log = logging.Wrap(b.app.opts.Logger)
	} else {
		l, err := logging.New(b.app.cfg.Logging())
		if err != nil {
			return err
		}
		b.app.log = l
	}
	b.app.logger = b.app.log.Logger
	return nil
}

func (b *bootstrapper) initEvents(context.Context) error {
	h, err := events.NewRegistry(
		event.WithLogger(b.app.log.Component("events")),
		event.WithExecutionLogging(b.app.cfg.LogEventExecution),
	)
	if err != nil {
		return err
	}
	b.app.handlers = h
	return nil
}

func (b *bootstrapper) initImage(context.Context) error {
	natives := patches.Natives(b.app.log.Component("game"))
	var (
		img *host.Image
		err error
	)
	if b.app.opts.ImagePath != "" {
		img, err = host.LoadImage(b.app.opts.ImagePath, natives)
	} else {
		img, err = patches.LoadGame(natives)
	}
	if err != nil {
		return err
	}
	b.app.image = img
	b.app.interp = host.NewInterpreter(
		host.WithLogger(b.app.log.Component("host")),
		host.WithTrace(b.app.opts.Trace),
	)
	return nil
}

// initPatcher creates the coordinator. When instrumentation is disabled
// nothing is applied and subscriptions never trigger patching.
func (b *bootstrapper) initPatcher(context.Context) error {
	cfg := b.app.cfg
	coord, err := patcher.New(b.app.image, b.app.handlers.Registry,
		patches.Candidates(cfg.IgnoredCandidates...),
		patcher.WithLogger(b.app.log.Component("patcher")),
		patcher.WithLazy(cfg.LazyInstrumentation),
		patcher.WithPatchLogging(cfg.LogEventPatching),
		patcher.WithDetailedLogging(cfg.DetailedPatchLogging...),
	)
	if err != nil {
		return err
	}
	b.app.coord = coord

	for _, name := range cfg.DetailedPatchLogging {
		if _, ok := coord.Candidate(name); !ok {
			b.app.logger.Warn("detailed logging names an unknown candidate", zap.String("candidate", name))
		}
	}

	if !cfg.Enabled {
		b.app.logger.Info("instrumentation disabled")
		return nil
	}
	b.app.handlers.Registry.SetInstrumenter(coord.Instrumenter())
	res := coord.Start()
	for _, fault := range res.Faults {
		b.app.logger.Warn("candidate not applied", zap.Error(fault))
	}
	b.app.started = res
	return nil
}

func (b *bootstrapper) initRegistration(context.Context) error {
	b.app.facade = registration.New(b.app.handlers.Registry,
		registration.WithLogger(b.app.log.Component("registration")))
	return nil
}

func (b *bootstrapper) initPlugins(ctx context.Context) error {
	b.app.plugins = plugin.NewHost(b.app.handlers.Registry,
		plugin.WithLogger(b.app.log.Component("plugin")),
		plugin.WithExecutionTimeout(b.app.cfg.ScriptTimeout.Duration),
	)
	if len(b.app.cfg.Scripts) == 0 {
		return nil
	}
	_, err := b.app.plugins.LoadDir(ctx, b.app.cfg.Scripts...)
	return err
}

func (b *bootstrapper) initWatcher(context.Context) error {
	if !b.app.opts.Watch || b.app.opts.ConfigPath == "" {
		return nil
	}
	w, err := config.NewWatcher(b.app.opts.ConfigPath)
	if err != nil {
		return err
	}
	b.app.watcher = w
	return nil
}

// cleanup releases components in reverse order after a failed bootstrap.
func (b *bootstrapper) cleanup() {
	for i := len(b.app.initOrder) - 1; i >= 0; i-- {
		_ = b.app.release(b.app.initOrder[i])
	}
	b.app.initOrder = nil
}

func (a *Application) release(component string) error {
	switch component {
	case "watcher":
		if a.watcher != nil {
			err := a.watcher.Close()
			a.watcher = nil
			return err
		}
	case "plugins":
		if a.plugins != nil {
			a.plugins.UnloadAll()
		}
	case "registration":
		if a.facade != nil && a.facade.Registered() > 0 {
			a.logger.Debug("registered handlers left at close", zap.Int("handlers", a.facade.Registered()))
		}
	case "patcher":
		if a.coord != nil {
			a.coord.Rollback()
		}
	case "logging":
		if a.log != nil {
			// Sync reports EINVAL for terminals.
			_ = a.log.Sync()
		}
	}
	return nil
}
