// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"go.opentelemetry.io/usdt/internal/pkg/dispatch"
	"go.opentelemetry.io/usdt/internal/pkg/fault"
	"go.opentelemetry.io/usdt/internal/pkg/probe"
)

// Producer returns the arguments of a probe firing. It is only called when a
// tracer is attached to the probe. Returning nil skips the firing.
type Producer = dispatch.Producer

// Probe is a tracepoint of a [Provider].
type Probe struct {
	provider   *Provider
	desc       *probe.Descriptor
	dispatcher *dispatch.Dispatcher
}

// Name returns the probe name.
func (p *Probe) Name() string { return p.desc.Name() }

// Provider returns the provider p belongs to.
func (p *Probe) Provider() *Provider { return p.provider }

// Signature returns the declared argument types.
func (p *Probe) Signature() []ArgType {
	return append([]ArgType(nil), p.desc.Signature()...)
}

// Arity returns the number of declared arguments.
func (p *Probe) Arity() int { return p.desc.Arity() }

func (p *Probe) String() string { return p.desc.String() }

// Enabled reports whether a tracer is attached to the probe.
func (p *Probe) Enabled() bool { return p.dispatcher.Enabled() }

// Fire fires the probe with values, one per declared argument, and reports
// whether a tracer is attached.
//
// Fire can also be called with a single [Producer] (or func() []any) in
// place of the values. The producer is then only called when a tracer is
// attached, which avoids computing expensive arguments otherwise.
//
// Nothing reaches the engine when an error is returned.
func (p *Probe) Fire(values ...any) (bool, error) {
	var req dispatch.Request
	switch {
	case len(values) == 1 && asProducer(values[0]) != nil:
		req.Producer = asProducer(values[0])
	default:
		for _, v := range values {
			if asProducer(v) != nil {
				return false, fault.New(fault.Argument, "fire", "cannot provide arguments and a producer at the same time")
			}
		}
		req.Values = values
	}
	return p.dispatcher.Fire(req)
}

// FireFunc fires the probe with the values returned by fn, calling it only if
// a tracer is attached. It reports whether a tracer is attached.
func (p *Probe) FireFunc(fn Producer) (bool, error) {
	if fn == nil {
		return false, fault.New(fault.Argument, "fire", "nil producer")
	}
	return p.dispatcher.Fire(dispatch.Request{Producer: fn})
}

func asProducer(v any) Producer {
	switch f := v.(type) {
	case Producer:
		return f
	case func() []any:
		return f
	}
	return nil
}
