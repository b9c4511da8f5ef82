// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/usdt/engine/memengine"
)

func loadedProbe(t *testing.T, types ...ArgType) (*Probe, *memengine.Provider) {
	t.Helper()
	p, h := newTestProvider(t, "myapp")
	pr, err := p.AddProbe("event", types...)
	require.NoError(t, err)
	require.NoError(t, p.Load())
	return pr, h
}

func TestProbeSignature(t *testing.T) {
	pr, _ := loadedProbe(t, IntegerArg, StringArg)
	assert.Equal(t, "event", pr.Name())

	sig := pr.Signature()
	assert.Equal(t, []ArgType{IntegerArg, StringArg}, sig)
	sig[0] = FloatArg
	assert.Equal(t, IntegerArg, pr.Signature()[0], "signature is immutable")
}

func TestFireArity(t *testing.T) {
	types := []ArgType{IntegerArg, IntegerArg, IntegerArg, IntegerArg, IntegerArg, IntegerArg}
	for k := 0; k <= len(types); k++ {
		pr, _ := loadedProbe(t, types[:k]...)
		assert.Equal(t, k, pr.Arity())

		vals := make([]any, k+1)
		for i := range vals {
			vals[i] = i
		}
		_, err := pr.Fire(vals[:k]...)
		assert.NoError(t, err, "arity %d", k)

		_, err = pr.Fire(vals...)
		assert.ErrorIs(t, err, ErrArgument, "arity %d", k)
		if k > 0 {
			_, err = pr.Fire(vals[:k-1]...)
			assert.ErrorIs(t, err, ErrArgument, "arity %d", k)
		}
	}
}

func TestFireDeferred(t *testing.T) {
	pr, h := loadedProbe(t, IntegerArg, FloatArg)

	calls := 0
	producer := func() []any { calls++; return []any{1, 0.5} }

	enabled, err := pr.Fire(producer)
	require.NoError(t, err)
	assert.False(t, enabled)
	enabled, err = pr.FireFunc(producer)
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.Zero(t, calls, "producer is not called while disabled")

	tr, err := h.Trace("event")
	require.NoError(t, err)
	assert.True(t, pr.Enabled())

	enabled, err = pr.Fire(Producer(producer))
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, 1, calls)

	events := tr.Events()
	require.Len(t, events, 1)
	assert.Equal(t, math.Float64bits(0.5), events[0].Words[1])
}

func TestFireDualSource(t *testing.T) {
	pr, h := loadedProbe(t, IntegerArg)
	_, err := h.Trace("event")
	require.NoError(t, err)

	calls := 0
	producer := func() []any { calls++; return []any{1} }

	_, err = pr.Fire(1, producer)
	assert.ErrorIs(t, err, ErrArgument)
	_, err = pr.Fire(producer, producer)
	assert.ErrorIs(t, err, ErrArgument)
	assert.Zero(t, calls)

	_, err = pr.FireFunc(nil)
	assert.ErrorIs(t, err, ErrArgument)
}

func TestFireEncodingErrors(t *testing.T) {
	pr, h := loadedProbe(t, IntegerArg, StringArg, FloatArg)
	tr, err := h.Trace("event")
	require.NoError(t, err)

	_, err = pr.Fire(3.5, "s", 1.0)
	assert.ErrorIs(t, err, ErrRange)
	_, err = pr.Fire(1, 2, 1.0)
	assert.ErrorIs(t, err, ErrType)
	_, err = pr.Fire(1, "a\x00b", 1.0)
	assert.ErrorIs(t, err, ErrRange)
	assert.Zero(t, tr.Len(), "nothing is sent on encoding errors")

	// Floats are passed as bits, never truncated.
	_, err = pr.Fire(1, "s", 3.14)
	require.NoError(t, err)
	events := tr.Events()
	require.Len(t, events, 1)
	assert.Equal(t, math.Float64bits(3.14), events[0].Words[2])
}

func BenchmarkFireDisabled(b *testing.B) {
	p, err := NewProvider("bench", WithEngine(memengine.New()), WithLogger(discard))
	require.NoError(b, err)
	pr, err := p.AddProbe("event", IntegerArg, StringArg)
	require.NoError(b, err)
	require.NoError(b, p.Load())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = pr.Fire(i, "value")
	}
}
