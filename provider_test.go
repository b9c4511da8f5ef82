// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"errors"
	"io"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/usdt/engine"
	"go.opentelemetry.io/usdt/engine/memengine"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestProvider(t *testing.T, name string, opts ...Option) (*Provider, *memengine.Provider) {
	t.Helper()
	e := memengine.New()
	opts = append([]Option{WithEngine(e), WithLogger(discard)}, opts...)
	p, err := NewProvider(name, opts...)
	require.NoError(t, err)
	h, ok := e.Provider(name)
	require.True(t, ok)
	return p, h
}

func TestNewProvider(t *testing.T) {
	p, _ := newTestProvider(t, "myapp")
	assert.Equal(t, "myapp", p.Name())
	assert.False(t, p.Loaded())
	assert.Equal(t, Typed, p.Convention())

	_, err := NewProvider("", WithEngine(memengine.New()), WithLogger(discard))
	assert.ErrorIs(t, err, ErrCreation)

	_, err = NewProvider("myapp", WithEngine(memengine.New()), WithLogLevel("loud"))
	assert.ErrorIs(t, err, ErrCreation)
}

func TestNewProviderDuplicateName(t *testing.T) {
	e := memengine.New()
	_, err := NewProvider("myapp", WithEngine(e), WithLogger(discard))
	require.NoError(t, err)

	_, err = NewProvider("myapp", WithEngine(e), WithLogger(discard))
	assert.ErrorIs(t, err, ErrCreation)
	var ue *Error
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, KindCreation, ue.Kind)
}

func TestUnloadWithoutLoad(t *testing.T) {
	p, h := newTestProvider(t, "myapp")

	require.NoError(t, p.Unload())
	assert.False(t, p.Loaded())

	// Still fully usable.
	_, err := p.AddProbe("event")
	require.NoError(t, err)
	require.NoError(t, p.Load())
	assert.True(t, p.Loaded())
	assert.True(t, h.IsLoaded())
}

func TestScenario(t *testing.T) {
	p, h := newTestProvider(t, "myapp")

	event, err := p.AddProbe("event", IntegerArg, StringArg)
	require.NoError(t, err)
	require.NoError(t, p.Load())

	enabled, err := event.Fire(42, "hello")
	require.NoError(t, err)
	assert.False(t, enabled, "no tracer attached")

	tr, err := h.Trace("event", memengine.WithStrings(1))
	require.NoError(t, err)

	enabled, err = event.Fire(42, "hello")
	require.NoError(t, err)
	assert.True(t, enabled)

	events := tr.Events()
	require.Len(t, events, 1)
	assert.Equal(t, uint64(42), events[0].Words[0])
	assert.Equal(t, "hello", events[0].Strings[1])

	require.NoError(t, p.Unload())
	enabled, err = event.Fire(42, "hello")
	require.NoError(t, err)
	assert.False(t, enabled)

	_, err = event.Fire(42)
	assert.ErrorIs(t, err, ErrArgument)
	assert.EqualError(t, err, "usdt: fire: expected 2 argument(s), got 1")
}

func TestConcurrentFireTraced(t *testing.T) {
	p, h := newTestProvider(t, "myapp")

	event, err := p.AddProbe("event", IntegerArg, StringArg)
	require.NoError(t, err)
	require.NoError(t, p.Load())

	tr, err := h.Trace("event", memengine.WithStrings(1), memengine.WithCapacity(1024))
	require.NoError(t, err)

	const workers, fires = 8, 400
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			name := fmt.Sprintf("worker-%d", w)
			for i := 0; i < fires; i++ {
				enabled, err := event.Fire(i, name)
				assert.NoError(t, err)
				assert.True(t, enabled)
			}
		}(w)
	}
	wg.Wait()

	events := tr.Events()
	assert.Len(t, events, 1024)
	assert.Equal(t, uint64(workers*fires-1024), tr.Lost())
	for _, ev := range events {
		assert.True(t, strings.HasPrefix(ev.Strings[1], "worker-"), ev.Strings[1])
	}
}

func TestAddProbeErrors(t *testing.T) {
	p, _ := newTestProvider(t, "myapp")

	_, err := p.AddProbe("seven", IntegerArg, IntegerArg, IntegerArg, IntegerArg, IntegerArg, IntegerArg, IntegerArg)
	assert.ErrorIs(t, err, ErrArgument)
	_, ok := p.Probe("seven")
	assert.False(t, ok)
	assert.Empty(t, p.Probes())

	_, err = p.AddProbe("bad", RawWordArg(3))
	assert.ErrorIs(t, err, ErrArgument)

	_, err = p.AddProbe("six", IntegerArg, IntegerArg, IntegerArg, IntegerArg, IntegerArg, IntegerArg)
	require.NoError(t, err)

	require.NoError(t, p.Load())
	_, err = p.AddProbe("late")
	assert.ErrorIs(t, err, ErrState)
}

func TestWordConvention(t *testing.T) {
	p, h := newTestProvider(t, "myapp", WithConvention(Word))

	_, err := p.AddProbe("typed", IntegerArg)
	assert.ErrorIs(t, err, ErrArgument)

	pr, err := p.AddProbe("words", Int8Arg, Uint32Arg)
	require.NoError(t, err)
	require.NoError(t, p.Load())

	tr, err := h.Trace("words")
	require.NoError(t, err)

	_, err = pr.Fire(-1, 7)
	require.NoError(t, err)
	events := tr.Events()
	require.Len(t, events, 1)
	assert.Equal(t, []any{int64(-1), uint64(7)}, events[0].Values)

	_, err = pr.Fire(128, 0)
	assert.ErrorIs(t, err, ErrRange)
}

func TestLoadErrors(t *testing.T) {
	p, h := newTestProvider(t, "myapp")

	h.FailNextLoad(engine.TmpCreation, "could not create temporary file")
	err := p.Load()
	assert.ErrorIs(t, err, ErrLoad)
	var ue *Error
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "could not create temporary file", ue.Msg)
	assert.Equal(t, engine.TmpCreation, ue.Engine.Code)
	assert.False(t, p.Loaded())

	h.FailNextLoad(engine.NoError, "")
	err = p.Load()
	assert.ErrorIs(t, err, ErrLoad)
	assert.EqualError(t, err, "usdt: load: load failed: engine reported no error")

	require.NoError(t, p.Load())
	assert.ErrorIs(t, p.Load(), ErrLoad, "libstapsdt rejects double load")

	h.FailNextUnload(engine.SharedLibraryClose, "dlclose failed")
	assert.ErrorIs(t, p.Unload(), ErrUnload)
	assert.True(t, p.Loaded())
}

func TestClose(t *testing.T) {
	p, h := newTestProvider(t, "myapp")
	event, err := p.AddProbe("event", IntegerArg)
	require.NoError(t, err)
	require.NoError(t, p.Load())

	require.NoError(t, p.Close())
	assert.True(t, h.IsDestroyed())
	assert.False(t, p.Loaded())

	assert.ErrorIs(t, p.Close(), ErrState)
	assert.ErrorIs(t, p.Load(), ErrState)
	assert.ErrorIs(t, p.Unload(), ErrState)
	_, err = p.AddProbe("other")
	assert.ErrorIs(t, err, ErrState)

	enabled, err := event.Fire(1)
	require.NoError(t, err)
	assert.False(t, enabled)
	_, err = event.Fire("x")
	assert.ErrorIs(t, err, ErrType)

	mp, _ := h.Probe("event")
	assert.Zero(t, mp.Fires(), "closed probes never reach the engine")
}

func TestProbesAndManifest(t *testing.T) {
	p, _ := newTestProvider(t, "myapp")
	b, err := p.AddProbe("b", FloatArg)
	require.NoError(t, err)
	a, err := p.AddProbe("a")
	require.NoError(t, err)

	assert.Equal(t, []*Probe{b, a}, p.Probes())
	got, ok := p.Probe("a")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Same(t, p, a.Provider())

	m := p.Manifest()
	assert.Equal(t, "myapp", m.Provider)
	assert.Equal(t, []string{"a", "b"}, m.Names())
	assert.Equal(t, "myapp:b(float)", b.String())
}
