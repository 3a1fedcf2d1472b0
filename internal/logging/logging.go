// Package logging builds the zap loggers every component receives.
package logging

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger flavor.
type Config struct {
	// Debug lowers the level to debug.
	Debug bool

	// Development switches to the human-readable console encoder.
	Development bool

	// Outputs defaults to stderr.
	Outputs []string
}

// Logger is a zap logger whose level can be changed after construction.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// New builds a logger from cfg.
func New(cfg Config) (*Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(levelFor(cfg.Debug))
	if len(cfg.Outputs) > 0 {
		zc.OutputPaths = cfg.Outputs
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return &Logger{Logger: logger, level: zc.Level}, nil
}

// Wrap adapts an existing logger, usually one built by a test. SetDebug does
// not reach the wrapped core.
func Wrap(logger *zap.Logger) *Logger {
	return &Logger{Logger: logger, level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
}

// SetDebug switches between debug and info level.
func (l *Logger) SetDebug(debug bool) {
	l.level.SetLevel(levelFor(debug))
}

// Level returns the current level.
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// Component returns a named child logger.
func (l *Logger) Component(name string) *zap.Logger {
	return l.Named(name)
}

func levelFor(debug bool) zapcore.Level {
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
