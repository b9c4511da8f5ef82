// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/usdt"
	"go.opentelemetry.io/usdt/engine/memengine"
)

func TestLoad(t *testing.T) {
	s, err := Load("testdata/probes.yaml")
	require.NoError(t, err)

	assert.Equal(t, "myapp", s.Provider)
	assert.Equal(t, usdt.Typed, s.Convention)
	require.Len(t, s.Probes, 5)
	assert.Equal(t, Probe{Name: "event", Args: []usdt.ArgType{usdt.IntegerArg, usdt.StringArg}}, s.Probes[0])
	assert.Equal(t, []usdt.ArgType{usdt.Int32Arg, usdt.Uint8Arg}, s.Probes[2].Args)
	assert.Empty(t, s.Probes[3].Args)
	assert.True(t, s.Probes[4].Disabled)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"Empty":         "",
		"NoProvider":    "probes: [{name: a}]",
		"UnknownField":  "provider: p\nprobs: []",
		"UnknownType":   "provider: p\nprobes: [{name: a, args: [pointer]}]",
		"BadConvention": "provider: p\nconvention: ruby",
		"NoProbeName":   "provider: p\nprobes: [{args: [int]}]",
		"Duplicate":     "provider: p\nprobes: [{name: a}, {name: a}]",
		"TooManyArgs":   "provider: p\nprobes: [{name: a, args: [int, int, int, int, int, int, int]}]",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestWordConvention(t *testing.T) {
	s, err := Parse([]byte("provider: p\nconvention: word\nprobes: [{name: a, args: [uint64]}]"))
	require.NoError(t, err)
	assert.Equal(t, usdt.Word, s.Convention)
}

func TestMarshalRoundTrip(t *testing.T) {
	s, err := Load("testdata/probes.yaml")
	require.NoError(t, err)

	data, err := s.Marshal()
	require.NoError(t, err)
	got, err := Parse(data)
	require.NoError(t, err)
	assert.True(t, s.Equal(got))
}

func TestBuild(t *testing.T) {
	s, err := Load("testdata/probes.yaml")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := s.Build(usdt.WithEngine(memengine.New()), usdt.WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	assert.Equal(t, []string{"event", "latency", "raw", "tick"}, p.Manifest().Names())
	assert.False(t, p.Loaded())
}

func TestBuildFailureReleasesProvider(t *testing.T) {
	s, err := Parse([]byte("provider: p\nconvention: word\nprobes: [{name: a, args: [string]}]"))
	require.NoError(t, err)

	mem := memengine.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err = s.Build(usdt.WithEngine(mem), usdt.WithLogger(logger))
	assert.ErrorIs(t, err, usdt.ErrArgument)
	_, ok := mem.Provider("p")
	assert.False(t, ok)
}
