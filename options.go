// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.opentelemetry.io/usdt/engine"
	"go.opentelemetry.io/usdt/engine/memengine"
	"go.opentelemetry.io/usdt/engine/stapsdt"
	"go.opentelemetry.io/usdt/internal/pkg/provider"
)

const (
	// envEngineKey is the key for the environment variable value selecting
	// the engine: "stapsdt" or "mem".
	envEngineKey = "USDT_ENGINE"
	// envLibraryPathKey is the key for the environment variable value
	// containing the path of libstapsdt.
	envLibraryPathKey = "USDT_LIBSTAPSDT_PATH"
	// envLogLevelKey is the key for the environment variable value containing
	// the log level.
	envLogLevelKey = "USDT_LOG_LEVEL"
	// envConventionKey is the key for the environment variable value
	// containing the argument convention: "typed" or "word".
	envConventionKey = "USDT_CONVENTION"
)

// Convention is the argument convention probes of a [Provider] are declared
// with.
type Convention = provider.Convention

const (
	// Typed probes accept [StringArg], [FloatArg], [IntegerArg] and raw word
	// arguments. This is the default.
	Typed = provider.Typed
	// Word probes only accept raw word arguments such as [Uint64Arg] and
	// [Int32Arg].
	Word = provider.Word
)

// Option configures a [Provider] via [NewProvider].
type Option interface {
	apply(config) (config, error)
}

type fnOpt func(config) (config, error)

func (o fnOpt) apply(c config) (config, error) { return o(c) }

// WithEngine returns an [Option] that creates the provider on e.
//
// If this option is not used, libstapsdt is loaded from the default library
// search path.
func WithEngine(e engine.Engine) Option {
	return fnOpt(func(c config) (config, error) {
		c.engine = func() (engine.Engine, error) { return e, nil }
		return c, nil
	})
}

// WithLogger returns an [Option] that will configure logger used.
//
// If this option and [WithEnv] are used, USDT_LOG_LEVEL is ignored. This
// passed logger takes precedence and is used as-is.
//
// If this option is not used, an [slog.Logger] backed by an
// [slog.JSONHandler] outputting to STDERR is used.
func WithLogger(l *slog.Logger) Option {
	return fnOpt(func(c config) (config, error) {
		c.logger = l
		return c, nil
	})
}

// WithLogLevel returns an [Option] setting the minimum level of the default
// logger. It has no effect if [WithLogger] is used.
func WithLogLevel(l LogLevel) Option {
	return fnOpt(func(c config) (config, error) {
		if _, err := l.parse(); err != nil {
			return c, err
		}
		c.level = l
		return c, nil
	})
}

// WithConvention returns an [Option] setting the argument convention of the
// provider's probes.
func WithConvention(conv Convention) Option {
	return fnOpt(func(c config) (config, error) {
		c.convention = conv
		return c, nil
	})
}

var lookupEnv = os.LookupEnv

// WithEnv returns an [Option] that will apply configuration using the values
// defined by the following environment variables:
//
//   - USDT_ENGINE: "stapsdt" or "mem", selects the engine
//   - USDT_LIBSTAPSDT_PATH: path of libstapsdt used by the "stapsdt" engine
//   - USDT_LOG_LEVEL: sets the default logger's minimum logging level
//   - USDT_CONVENTION: "typed" or "word"
//
// This option will conflict with [WithEngine], [WithLogLevel] and
// [WithConvention]. The last [Option] provided will be used.
func WithEnv() Option {
	return fnOpt(func(c config) (config, error) {
		var err error

		path, _ := lookupEnv(envLibraryPathKey)
		if val, ok := lookupEnv(envEngineKey); ok {
			e, eErr := engineByName(val, path)
			err = errors.Join(err, eErr)
			if eErr == nil {
				c.engine = e
			}
		} else if path != "" {
			c.engine = stapsdtEngine(path)
		}

		if val, ok := lookupEnv(envLogLevelKey); ok {
			l, e := ParseLogLevel(val)
			if e != nil {
				err = errors.Join(err, fmt.Errorf("parse log level %q: %w", val, e))
			} else {
				c.level = l
			}
		}

		if val, ok := lookupEnv(envConventionKey); ok {
			conv, e := provider.ParseConvention(val)
			if e != nil {
				err = errors.Join(err, e)
			} else {
				c.convention = conv
			}
		}
		return c, err
	})
}

func engineByName(name, path string) (func() (engine.Engine, error), error) {
	switch name {
	case "stapsdt", "":
		return stapsdtEngine(path), nil
	case "mem", "memory":
		return defaultMemEngine, nil
	}
	return nil, fmt.Errorf("unknown engine %q", name)
}

var (
	memOnce sync.Once
	memEng  *memengine.Engine

	stapsdtMu      sync.Mutex
	stapsdtEngines = make(map[string]*stapsdt.Engine)
)

// defaultMemEngine returns the process-wide in-process engine.
func defaultMemEngine() (engine.Engine, error) {
	memOnce.Do(func() { memEng = memengine.New() })
	return memEng, nil
}

// stapsdtEngine returns a loader of the libstapsdt engine at path. Each
// library is only opened once per process.
func stapsdtEngine(path string) func() (engine.Engine, error) {
	return func() (engine.Engine, error) {
		stapsdtMu.Lock()
		defer stapsdtMu.Unlock()

		if e, ok := stapsdtEngines[path]; ok {
			return e, nil
		}
		e, err := stapsdt.Open(path)
		if err != nil {
			return nil, err
		}
		stapsdtEngines[path] = e
		return e, nil
	}
}

// newLogger is used for testing.
var newLogger = newLoggerFunc

func newLoggerFunc(level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	h := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(h)
}

type config struct {
	engine     func() (engine.Engine, error)
	logger     *slog.Logger
	level      LogLevel
	convention Convention
}

func newConfig(options []Option) (config, error) {
	c := config{
		engine:     stapsdtEngine(""),
		level:      LogLevelInfo,
		convention: Typed,
	}

	var err error
	for _, opt := range options {
		var e error
		c, e = opt.apply(c)
		err = errors.Join(err, e)
	}

	if c.logger == nil {
		c.logger = newLogger(c.level.Level())
	}
	return c, err
}
