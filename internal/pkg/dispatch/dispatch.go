// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch validates, encodes and forwards probe fire requests to the
// native engine.
package dispatch

import (
	"fmt"

	"go.opentelemetry.io/usdt/engine"
	"go.opentelemetry.io/usdt/internal/pkg/codec"
	"go.opentelemetry.io/usdt/internal/pkg/fault"
)

const opFire = "fire"

// Producer returns the arguments of a deferred fire. It is only called when
// the probe is enabled. Returning nil declines to fire.
type Producer func() []any

// Request is a single fire request. Exactly one argument source may be set:
// Values for a positional fire, Producer for a deferred one. A Request with
// neither set fires with zero arguments.
type Request struct {
	Values   []any
	Producer Producer
}

// Dispatcher fires one probe.
type Dispatcher struct {
	probe engine.Probe
	sig   []codec.Type
	live  func() bool
}

// New returns a Dispatcher firing p with signature sig. live reports whether
// the native probe can currently be called; when it returns false requests
// are still validated but never reach p.
func New(p engine.Probe, sig []codec.Type, live func() bool) *Dispatcher {
	if len(sig) > engine.MaxArgs {
		panic(fmt.Sprintf("dispatch: signature of %d arguments exceeds %d", len(sig), engine.MaxArgs))
	}
	if live == nil {
		live = func() bool { return true }
	}
	return &Dispatcher{probe: p, sig: sig, live: live}
}

// Enabled reports whether a tracer is attached to the probe.
func (d *Dispatcher) Enabled() bool {
	return d.live() && d.probe.IsEnabled()
}

// Fire fires the probe for req and returns whether the probe is enabled after
// firing.
//
// Every argument is encoded before the engine is called, so a request that
// fails validation never reaches the engine.
func (d *Dispatcher) Fire(req Request) (bool, error) {
	values := req.Values
	if req.Producer != nil {
		if req.Values != nil {
			return false, fault.New(fault.Argument, opFire, "cannot provide arguments and a producer at the same time")
		}
		// Only pay for building arguments if someone is listening.
		if !d.Enabled() {
			return false, nil
		}
		values = req.Producer()
		if values == nil {
			return d.Enabled(), nil
		}
	}

	if len(values) != len(d.sig) {
		return false, fault.New(fault.Argument, opFire, "expected %d argument(s), got %d", len(d.sig), len(values))
	}

	var (
		args  engine.Args
		frame codec.Frame
	)
	defer frame.Release()

	for i, v := range values {
		w, err := codec.Encode(&frame, v, d.sig[i])
		if err != nil {
			return false, argumentError(i, d.sig[i], err)
		}
		args.Words[i] = w
	}
	args.N = len(values)

	if !d.live() {
		return false, nil
	}
	d.probe.Fire(&args)
	return d.probe.IsEnabled(), nil
}

func argumentError(pos int, t codec.Type, err error) error {
	kind := fault.Argument
	msg := err.Error()
	if fe, ok := err.(*fault.Error); ok {
		kind = fe.Kind
		msg = fe.Msg
	}
	return fault.Wrap(kind, opFire, err, "argument %d (%s): %s", pos, t, msg)
}
