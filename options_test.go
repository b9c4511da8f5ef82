// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/usdt/engine/memengine"
)

func mockEnv(t *testing.T, env map[string]string) {
	orig := lookupEnv
	t.Cleanup(func() { lookupEnv = orig })

	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func mockLogger(t *testing.T) *slog.Level {
	orig := newLogger
	t.Cleanup(func() { newLogger = orig })

	var got slog.Level
	newLogger = func(l slog.Leveler) *slog.Logger {
		got = l.Level()
		return discard
	}
	return &got
}

func TestNewConfigDefaults(t *testing.T) {
	level := mockLogger(t)

	c, err := newConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, Typed, c.convention)
	assert.Equal(t, LogLevelInfo, c.level)
	assert.Equal(t, slog.LevelInfo, *level)
	assert.NotNil(t, c.engine)
}

func TestWithEnv(t *testing.T) {
	t.Run("Engine", func(t *testing.T) {
		mockEnv(t, map[string]string{envEngineKey: "mem"})
		c, err := newConfig([]Option{WithEnv()})
		require.NoError(t, err)

		e, err := c.engine()
		require.NoError(t, err)
		assert.IsType(t, &memengine.Engine{}, e)

		e2, err := c.engine()
		require.NoError(t, err)
		assert.Same(t, e, e2, "the in-process engine is shared")
	})

	t.Run("UnknownEngine", func(t *testing.T) {
		mockEnv(t, map[string]string{envEngineKey: "dtrace"})
		_, err := newConfig([]Option{WithEnv()})
		assert.ErrorContains(t, err, `unknown engine "dtrace"`)
	})

	t.Run("LogLevel", func(t *testing.T) {
		level := mockLogger(t)
		mockEnv(t, map[string]string{envLogLevelKey: "debug"})
		c, err := newConfig([]Option{WithEnv()})
		require.NoError(t, err)
		assert.Equal(t, LogLevelDebug, c.level)
		assert.Equal(t, slog.LevelDebug, *level)
	})

	t.Run("InvalidLogLevel", func(t *testing.T) {
		mockLogger(t)
		mockEnv(t, map[string]string{envLogLevelKey: "loud"})
		_, err := newConfig([]Option{WithEnv()})
		assert.ErrorIs(t, err, errInvalidLogLevel)
	})

	t.Run("Convention", func(t *testing.T) {
		mockLogger(t)
		mockEnv(t, map[string]string{envConventionKey: "word"})
		c, err := newConfig([]Option{WithEnv()})
		require.NoError(t, err)
		assert.Equal(t, Word, c.convention)
	})

	t.Run("LastOptionWins", func(t *testing.T) {
		mockLogger(t)
		mockEnv(t, map[string]string{envConventionKey: "word"})
		c, err := newConfig([]Option{WithEnv(), WithConvention(Typed)})
		require.NoError(t, err)
		assert.Equal(t, Typed, c.convention)
	})
}

func TestWithLoggerOverridesLevel(t *testing.T) {
	orig := newLogger
	t.Cleanup(func() { newLogger = orig })
	called := false
	newLogger = func(slog.Leveler) *slog.Logger {
		called = true
		return discard
	}

	c, err := newConfig([]Option{WithLogLevel(LogLevelDebug), WithLogger(discard)})
	require.NoError(t, err)
	assert.Same(t, discard, c.logger)
	assert.False(t, called)
}
