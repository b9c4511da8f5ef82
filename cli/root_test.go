// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cilium/ebpf"
	"github.com/hashicorp/go-version"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/usdt"
	"go.opentelemetry.io/usdt/engine/memengine"
	"go.opentelemetry.io/usdt/engine/stapsdt"
	"go.opentelemetry.io/usdt/internal/pkg/kernel"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"run", "list", "check", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"log-level", "engine", "library"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue)
	}
}

func TestInvalidEngine(t *testing.T) {
	_, err := execute(t, "--engine", "dtrace", "version")
	assert.ErrorContains(t, err, `invalid engine "dtrace"`)
}

func TestEngineFromEnv(t *testing.T) {
	t.Setenv(envEngineKey, "dtrace")
	_, err := execute(t, "version")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	out, err := execute(t, "list", "-c", "testdata/probes.yaml")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "list", []byte(out))
}

func TestListInvalid(t *testing.T) {
	_, err := execute(t, "list", "-c", "testdata/missing.yaml")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	out, err := execute(t, "--engine", "mem", "run", "-c", "testdata/probes.yaml", "--interval", "5ms", "--count", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "PID "), lines[0])
	assert.Equal(t, []string{
		`myapp:event(integer, string) 1 "event-1"`,
		`myapp:latency(float) 0.5`,
		`myapp:raw(int32, uint8) 1 1`,
		`myapp:tick()`,
		`myapp:event(integer, string) 2 "event-2"`,
		`myapp:latency(float) 1`,
		`myapp:raw(int32, uint8) 2 2`,
		`myapp:tick()`,
	}, lines[1:])

	_, ok := memEngine.Provider("myapp")
	assert.False(t, ok, "provider is released on exit")
}

func TestRunTraceFailureReleasesProvider(t *testing.T) {
	orig := lookupMemProvider
	t.Cleanup(func() { lookupMemProvider = orig })
	lookupMemProvider = func(name string) (*memengine.Provider, bool) {
		h, ok := memEngine.Provider(name)
		if ok {
			// Occupy a probe so attaching the run tracers fails midway.
			_, err := h.Trace("latency")
			require.NoError(t, err)
		}
		return h, ok
	}

	_, err := execute(t, "--engine", "mem", "run", "-c", "testdata/probes.yaml", "--interval", "5ms", "--count", "1")
	assert.ErrorContains(t, err, "already has a tracer attached")

	_, ok := memEngine.Provider("myapp")
	assert.False(t, ok, "provider is released when tracing fails")
}

func TestRunCanceled(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"--log-level", "error", "--engine", "mem", "run", "-c", "testdata/probes.yaml", "--interval", "1h"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, cmd.ExecuteContext(ctx))
}

func TestCheck(t *testing.T) {
	origVersion, origSupported, origLockdown, origUprobes, origOpen := kernelVersion, kernelSupported, kernelLockdown, haveUprobes, openStapsdt
	t.Cleanup(func() {
		kernelVersion, kernelSupported, kernelLockdown, haveUprobes, openStapsdt = origVersion, origSupported, origLockdown, origUprobes, origOpen
	})
	kernelVersion = func() *version.Version { return version.Must(version.NewVersion("6.5")) }
	kernelSupported = func() error { return nil }
	kernelLockdown = func() kernel.LockdownMode { return kernel.LockdownNone }
	haveUprobes = func() error { return nil }

	out, err := execute(t, "--engine", "mem", "check")
	require.NoError(t, err)
	assert.Equal(t, "kernel: 6.5.0\nlockdown: none\nuprobes: supported\nengine: mem\n", out)

	haveUprobes = func() error { return ebpf.ErrNotSupported }
	out, err = execute(t, "--engine", "mem", "check")
	require.NoError(t, err, "uprobe support is informational")
	assert.Contains(t, out, "uprobes: unavailable (not supported)\n")

	errOpen := errors.New("no such file")
	openStapsdt = func(string) (*stapsdt.Engine, error) { return nil, errOpen }
	out, err = execute(t, "check")
	assert.ErrorIs(t, err, errOpen)
	assert.Contains(t, out, "engine: stapsdt (libstapsdt.so.0)\n  error: no such file\n")

	kernelSupported = func() error { return kernel.ErrUnknownVersion }
	kernelVersion = func() *version.Version { return nil }
	out, err = execute(t, "--engine", "mem", "check")
	assert.ErrorIs(t, err, kernel.ErrUnknownVersion)
	assert.Contains(t, out, "kernel: unknown\n")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "usdt "+usdt.Version()+" (revision "), out)

	out, err = execute(t, "version", "--json")
	require.NoError(t, err)
	var v versionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, usdt.Version(), v.Release)
	assert.NotEmpty(t, v.Build.Revision)
}

func TestSampleValue(t *testing.T) {
	assert.Equal(t, "p-3", sampleValue(usdt.StringArg, "p", 3))
	assert.Equal(t, 1.5, sampleValue(usdt.FloatArg, "p", 3))
	assert.Equal(t, uint64(3), sampleValue(usdt.IntegerArg, "p", 3))
	assert.Equal(t, uint64(44), sampleValue(usdt.Uint8Arg, "p", 300))
	assert.Equal(t, int64(44), sampleValue(usdt.Int8Arg, "p", 300))
	assert.Equal(t, uint64(300), sampleValue(usdt.Uint64Arg, "p", 300))
}

func TestNewLogger(t *testing.T) {
	t.Setenv(envLogLevelKey, "debug")
	l := newLogger("")
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug))

	l = newLogger("error")
	assert.False(t, l.Enabled(context.Background(), slog.LevelWarn))
}
