package plugin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/retrofit/internal/event"
	plua "github.com/dshills/retrofit/internal/plugin/lua"
)

// Host loads scripts and connects them to the event registry.
// Like the dispatchers it serves, a Host is not safe for concurrent use.
type Host struct {
	registry *event.Registry
	logger   *zap.Logger
	timeout  time.Duration

	scripts map[uuid.UUID]*Script
	order   []uuid.UUID
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger scripts print to and load failures go to.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithExecutionTimeout bounds every main chunk and handler call.
func WithExecutionTimeout(d time.Duration) Option {
	return func(h *Host) {
		h.timeout = d
	}
}

// NewHost creates a script host over registry.
func NewHost(registry *event.Registry, opts ...Option) *Host {
	h := &Host{
		registry: registry,
		logger:   zap.NewNop(),
		timeout:  plua.DefaultExecutionTimeout,
		scripts:  make(map[uuid.UUID]*Script),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// LoadFile loads and runs a script file.
func (h *Host) LoadFile(ctx context.Context, path string) (*Script, error) {
	name := strings.TrimSuffix(filepath.Base(path), ".lua")
	if name == "init" {
		name = filepath.Base(filepath.Dir(path))
	}
	return h.load(ctx, name, path, func(s *plua.State) error {
		return s.DoFile(ctx, path)
	})
}

// LoadString loads and runs a script from source.
func (h *Host) LoadString(ctx context.Context, name, src string) (*Script, error) {
	return h.load(ctx, name, "", func(s *plua.State) error {
		return s.DoString(ctx, src)
	})
}

// LoadDir loads every script discovered in dirs. Scripts that fail to load
// are logged and skipped; the returned slice holds the ones that loaded.
func (h *Host) LoadDir(ctx context.Context, dirs ...string) ([]*Script, error) {
	infos, err := NewLoader(dirs...).Discover()
	if err != nil {
		return nil, err
	}

	var loaded []*Script
	for _, info := range infos {
		if info.Error != nil {
			h.logger.Warn("script skipped", zap.String("script", info.Name), zap.Error(info.Error))
			continue
		}
		s, err := h.LoadFile(ctx, info.Main)
		if err != nil {
			h.logger.Warn("script skipped", zap.String("script", info.Name), zap.Error(err))
			continue
		}
		loaded = append(loaded, s)
	}
	return loaded, nil
}

func (h *Host) load(ctx context.Context, name, path string, run func(*plua.State) error) (*Script, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, "load script %s", name)
		}
	}

	logger := h.logger.With(zap.String("script", name))
	s := &Script{
		ID:   uuid.New(),
		Name: name,
		Path: path,
		lua:  plua.NewState(plua.WithExecutionTimeout(h.timeout), plua.WithLogger(logger)),
		subs: make(map[uuid.UUID]*subscription),
	}
	s.bridge = plua.NewBridge(s.lua.L)
	h.installEvents(s)

	h.scripts[s.ID] = s
	h.order = append(h.order, s.ID)

	if err := run(s.lua); err != nil {
		s.unsubscribeAll()
		s.lua.Close()
		s.state = StateError
		s.err = err
		return nil, errors.Wrapf(errors.Mark(err, ErrLoadFailed), "script %s", name)
	}

	s.state = StateLoaded
	logger.Info("script loaded", zap.Stringer("id", s.ID), zap.Int("handlers", s.Handlers()))
	return s, nil
}

// Unload removes every handler the script subscribed and closes its state.
func (h *Host) Unload(id uuid.UUID) error {
	s, ok := h.scripts[id]
	if !ok {
		return errors.Wrapf(ErrScriptNotFound, "%s", id)
	}
	n := s.unsubscribeAll()
	s.lua.Close()
	s.state = StateUnloaded

	delete(h.scripts, id)
	for i, o := range h.order {
		if o == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	h.logger.Info("script unloaded", zap.String("script", s.Name), zap.Int("handlers", n))
	return nil
}

// UnloadAll unloads every script, most recently loaded first.
func (h *Host) UnloadAll() {
	for len(h.order) > 0 {
		_ = h.Unload(h.order[len(h.order)-1])
	}
}

// Script returns a script by id.
func (h *Host) Script(id uuid.UUID) (*Script, bool) {
	s, ok := h.scripts[id]
	return s, ok
}

// Scripts returns the scripts in load order. A script whose main chunk failed
// stays listed in StateError, with no handlers, until it is unloaded.
func (h *Host) Scripts() []*Script {
	out := make([]*Script, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.scripts[id])
	}
	return out
}
