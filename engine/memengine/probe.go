// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package memengine

import (
	"sync/atomic"

	"go.opentelemetry.io/usdt/engine"
)

// Probe is an in-process probe.
type Probe struct {
	provider *Provider
	name     string
	kinds    []engine.ArgKind

	tracer atomic.Pointer[Tracer]
	fires  atomic.Uint64
}

var _ engine.Probe = (*Probe)(nil)

// Name returns the probe name.
func (p *Probe) Name() string { return p.name }

// Kinds returns the slot kinds the probe was created with.
func (p *Probe) Kinds() []engine.ArgKind {
	return append([]engine.ArgKind(nil), p.kinds...)
}

// Fires returns the number of Fire calls the probe received, traced or not.
func (p *Probe) Fires() uint64 { return p.fires.Load() }

// Fire implements [engine.Probe].
func (p *Probe) Fire(args *engine.Args) {
	p.fires.Add(1)
	if t := p.tracer.Load(); t != nil {
		t.record(args)
	}
}

// IsEnabled implements [engine.Probe].
func (p *Probe) IsEnabled() bool {
	return p.tracer.Load() != nil
}

func (p *Probe) detach() {
	if t := p.tracer.Swap(nil); t != nil {
		t.detached.Store(true)
	}
}
