// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package memengine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"go.opentelemetry.io/usdt/engine"
	"go.opentelemetry.io/usdt/internal/pkg/codec"
)

// DefaultCapacity is the default number of events a Tracer buffers.
const DefaultCapacity = 1024

var (
	errNotLoaded = errors.New("provider is not loaded")
	errTraced    = errors.New("probe already has a tracer attached")
)

// Event is one observed firing of a probe.
type Event struct {
	// Probe is the name of the fired probe.
	Probe string
	// Words are the raw argument words.
	Words []uint64
	// Values are the words interpreted per slot kind: int64 for signed
	// slots, uint64 for unsigned ones.
	Values []any
	// Strings holds the strings read at the positions requested with
	// WithStrings.
	Strings map[int]string
}

// TraceOption configures a Tracer.
type TraceOption interface {
	apply(*Tracer)
}

type fnOpt func(*Tracer)

func (o fnOpt) apply(t *Tracer) { o(t) }

// WithCapacity sets the number of events buffered before new events are
// dropped.
func WithCapacity(n int) TraceOption {
	return fnOpt(func(t *Tracer) {
		if n > 0 {
			t.capacity = n
		}
	})
}

// WithStrings reads the arguments at positions as NUL-terminated strings
// while the probe is firing, the way a tracer dereferences a string pointer
// argument.
//
// Every position must hold a string argument. The engine only sees slot
// kinds, so [Provider.Trace] rejects positions that are not uint64 slots, but
// an integer argument in a uint64 slot is dereferenced as an address.
func WithStrings(positions ...int) TraceOption {
	return fnOpt(func(t *Tracer) {
		for _, p := range positions {
			t.strings[p] = struct{}{}
		}
	})
}

// Tracer is attached to a single probe and buffers its events.
type Tracer struct {
	probe    *Probe
	capacity int
	strings  map[int]struct{}

	mu       sync.Mutex
	events   *queue.Queue
	lost     uint64
	detached atomic.Bool
}

// Trace attaches a new Tracer to the probe named name. The provider must be
// loaded, and the probe is enabled until the Tracer is detached or the
// provider is unloaded.
func (p *Provider) Trace(name string, opts ...TraceOption) (*Tracer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		return nil, fmt.Errorf("trace %s:%s: %w", p.name, name, errNotLoaded)
	}
	pr, ok := p.probes[name]
	if !ok {
		return nil, fmt.Errorf("trace %s:%s: unknown probe", p.name, name)
	}

	t := &Tracer{
		probe:    pr,
		capacity: DefaultCapacity,
		strings:  make(map[int]struct{}),
		events:   queue.New(),
	}
	for _, o := range opts {
		o.apply(t)
	}
	for pos := range t.strings {
		if pos < 0 || pos >= len(pr.kinds) {
			return nil, fmt.Errorf("trace %s:%s: no argument at position %d", p.name, name, pos)
		}
		if k := pr.kinds[pos]; k != engine.Uint64 {
			return nil, fmt.Errorf("trace %s:%s: argument %d is a %s slot, not a string", p.name, name, pos, k)
		}
	}
	if !pr.tracer.CompareAndSwap(nil, t) {
		return nil, fmt.Errorf("trace %s:%s: %w", p.name, name, errTraced)
	}
	return t, nil
}

func (t *Tracer) record(args *engine.Args) {
	ev := Event{
		Probe:  t.probe.name,
		Words:  append([]uint64(nil), args.Slice()...),
		Values: make([]any, args.N),
	}
	for i, w := range ev.Words {
		if i < len(t.probe.kinds) {
			ev.Values[i] = codec.Decode(w, codec.RawWord(int(t.probe.kinds[i])))
		}
		if _, ok := t.strings[i]; ok {
			if ev.Strings == nil {
				ev.Strings = make(map[int]string, len(t.strings))
			}
			ev.Strings[i] = codec.StringAt(w)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.events.Length() >= t.capacity {
		t.lost++
		return
	}
	t.events.Add(ev)
}

// Events removes and returns the buffered events in firing order.
func (t *Tracer) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Event, 0, t.events.Length())
	for t.events.Length() > 0 {
		out = append(out, t.events.Remove().(Event))
	}
	return out
}

// Len returns the number of buffered events.
func (t *Tracer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events.Length()
}

// Lost returns the number of events dropped because the buffer was full.
func (t *Tracer) Lost() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lost
}

// Attached reports whether the Tracer is still attached to its probe.
func (t *Tracer) Attached() bool { return !t.detached.Load() }

// Detach detaches the Tracer, disabling the probe. Buffered events remain
// available.
func (t *Tracer) Detach() {
	if t.probe.tracer.CompareAndSwap(t, nil) {
		t.detached.Store(true)
	}
}
