package config

import (
	"bytes"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/retrofit/internal/logging"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "RETROFIT_"

// DefaultFile is the file name looked up when no path is given.
const DefaultFile = "retrofit.toml"

// Config holds every setting.
type Config struct {
	// Enabled turns instrumentation on. When false nothing is patched.
	Enabled bool `toml:"enabled" env:"ENABLED"`

	// Debug lowers the log level to debug.
	Debug bool `toml:"debug" env:"DEBUG"`

	// LazyInstrumentation defers each candidate until its first subscriber.
	LazyInstrumentation bool `toml:"lazy_instrumentation" env:"LAZY_INSTRUMENTATION"`

	// LogEventExecution logs every dispatch.
	LogEventExecution bool `toml:"log_event_execution" env:"LOG_EVENT_EXECUTION"`

	// LogEventPatching logs each applied patch.
	LogEventPatching bool `toml:"log_event_patching" env:"LOG_EVENT_PATCHING"`

	// DetailedPatchLogging lists candidates whose patched bodies are dumped.
	DetailedPatchLogging []string `toml:"detailed_patch_logging" env:"DETAILED_PATCH_LOGGING" envSeparator:","`

	// IgnoredCandidates are never applied.
	IgnoredCandidates []string `toml:"ignored_candidates" env:"IGNORED_CANDIDATES" envSeparator:","`

	// Scripts lists directories searched for Lua scripts.
	Scripts []string `toml:"scripts" env:"SCRIPTS" envSeparator:","`

	// ScriptTimeout bounds every script chunk and handler call.
	ScriptTimeout Duration `toml:"script_timeout" env:"SCRIPT_TIMEOUT"`

	Log Log `toml:"log" envPrefix:"LOG_"`
}

// Log holds logger output settings.
type Log struct {
	Development bool     `toml:"development" env:"DEVELOPMENT"`
	Outputs     []string `toml:"outputs" env:"OUTPUTS" envSeparator:","`
}

// Duration is a time.Duration written as "500ms" or "2s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Enabled:             true,
		LazyInstrumentation: true,
		ScriptTimeout:       Duration{time.Second},
	}
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	environment map[string]string
	skipEnv     bool
}

// WithEnvironment replaces the process environment.
func WithEnvironment(environment map[string]string) Option {
	return func(o *loadOptions) {
		o.environment = environment
	}
}

// WithoutEnvironment ignores environment variables.
func WithoutEnvironment() Option {
	return func(o *loadOptions) {
		o.skipEnv = true
	}
}

// Load reads path over the defaults and applies the environment. A missing
// file is not an error; the defaults and environment still apply.
func Load(path string, opts ...Option) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := Decode(path, data, cfg); err != nil {
				return nil, err
			}
		case os.IsNotExist(err):
		default:
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	if !o.skipEnv {
		if err := env.ParseWithOptions(cfg, env.Options{
			Prefix:      EnvPrefix,
			Environment: o.environment,
		}); err != nil {
			return nil, errors.Wrap(err, "parse environment")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses TOML data into cfg. Unknown keys are rejected.
func Decode(path string, data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		perr := &ParseError{Path: path, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			perr.Message = "unknown key: " + strings.Join(unknownKeys(serr), ", ")
		}
		return perr
	}
	return nil
}

func unknownKeys(serr *toml.StrictMissingError) []string {
	keys := make([]string, 0, len(serr.Errors))
	for i := range serr.Errors {
		keys = append(keys, strings.Join(serr.Errors[i].Key(), "."))
	}
	return keys
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.ScriptTimeout.Duration < 0 {
		return errors.Wrapf(ErrInvalidValue, "script_timeout %s is negative", c.ScriptTimeout)
	}
	for _, list := range []struct {
		key    string
		values []string
	}{
		{"detailed_patch_logging", c.DetailedPatchLogging},
		{"ignored_candidates", c.IgnoredCandidates},
		{"scripts", c.Scripts},
	} {
		if slices.Contains(list.values, "") {
			return errors.Wrapf(ErrInvalidValue, "%s contains an empty entry", list.key)
		}
	}
	return nil
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Debug:       c.Debug,
		Development: c.Log.Development,
		Outputs:     c.Log.Outputs,
	}
}

// Reloadable reports whether every difference between c and next can be
// applied without a restart. Only the logging switches are reloadable.
func (c *Config) Reloadable(next *Config) bool {
	return c.Enabled == next.Enabled &&
		c.LazyInstrumentation == next.LazyInstrumentation &&
		slices.Equal(c.IgnoredCandidates, next.IgnoredCandidates) &&
		slices.Equal(c.Scripts, next.Scripts) &&
		c.ScriptTimeout == next.ScriptTimeout &&
		c.Log.Development == next.Log.Development &&
		slices.Equal(c.Log.Outputs, next.Log.Outputs)
}

// Marshal renders c as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
