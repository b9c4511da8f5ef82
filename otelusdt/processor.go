// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package otelusdt exposes OpenTelemetry spans to USDT tracers.
//
// A [SpanProcessor] registered with an OpenTelemetry SDK TracerProvider fires
// a span_start probe when a span starts and a span_end probe when it ends:
//
//	span_start(trace_id string, span_id string, name string)
//	span_end(trace_id string, span_id string, name string, duration_ns integer, status_code integer)
//
// Probe arguments are only computed while a tracer is attached.
package otelusdt

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	sdk "go.opentelemetry.io/otel/sdk/trace"

	"go.opentelemetry.io/usdt"
)

const (
	// DefaultProviderName is the provider name used when none is configured.
	DefaultProviderName = "otel"

	probeSpanStart = "span_start"
	probeSpanEnd   = "span_end"
)

// Option configures a [SpanProcessor].
type Option interface {
	apply(config) config
}

type fnOpt func(config) config

func (o fnOpt) apply(c config) config { return o(c) }

// WithProviderName returns an [Option] setting the USDT provider name.
func WithProviderName(name string) Option {
	return fnOpt(func(c config) config {
		c.name = name
		return c
	})
}

// WithProviderOptions returns an [Option] passing opts to
// [usdt.NewProvider].
func WithProviderOptions(opts ...usdt.Option) Option {
	return fnOpt(func(c config) config {
		c.opts = append(c.opts, opts...)
		return c
	})
}

type config struct {
	name string
	opts []usdt.Option
}

// SpanProcessor fires USDT probes for span starts and ends.
type SpanProcessor struct {
	provider *usdt.Provider
	start    *usdt.Probe
	end      *usdt.Probe

	shutdownOnce sync.Once
}

var _ sdk.SpanProcessor = (*SpanProcessor)(nil)

// NewSpanProcessor returns a SpanProcessor with its provider loaded.
func NewSpanProcessor(opts ...Option) (*SpanProcessor, error) {
	c := config{name: DefaultProviderName}
	for _, o := range opts {
		c = o.apply(c)
	}

	p, err := usdt.NewProvider(c.name, c.opts...)
	if err != nil {
		return nil, err
	}
	sp := &SpanProcessor{provider: p}
	if sp.start, err = p.AddProbe(probeSpanStart, usdt.StringArg, usdt.StringArg, usdt.StringArg); err != nil {
		return nil, closeOnErr(p, err)
	}
	if sp.end, err = p.AddProbe(probeSpanEnd, usdt.StringArg, usdt.StringArg, usdt.StringArg, usdt.IntegerArg, usdt.IntegerArg); err != nil {
		return nil, closeOnErr(p, err)
	}
	if err := p.Load(); err != nil {
		return nil, closeOnErr(p, err)
	}
	return sp, nil
}

func closeOnErr(p *usdt.Provider, err error) error {
	if cErr := p.Close(); cErr != nil {
		otel.Handle(cErr)
	}
	return err
}

// Provider returns the USDT provider of sp.
func (sp *SpanProcessor) Provider() *usdt.Provider { return sp.provider }

// OnStart fires span_start.
func (sp *SpanProcessor) OnStart(_ context.Context, s sdk.ReadWriteSpan) {
	_, err := sp.start.FireFunc(func() []any {
		sc := s.SpanContext()
		return []any{sc.TraceID().String(), sc.SpanID().String(), s.Name()}
	})
	if err != nil {
		otel.Handle(err)
	}
}

// OnEnd fires span_end.
func (sp *SpanProcessor) OnEnd(s sdk.ReadOnlySpan) {
	_, err := sp.end.FireFunc(func() []any {
		sc := s.SpanContext()
		return []any{
			sc.TraceID().String(),
			sc.SpanID().String(),
			s.Name(),
			s.EndTime().Sub(s.StartTime()).Nanoseconds(),
			uint32(s.Status().Code),
		}
	})
	if err != nil {
		otel.Handle(err)
	}
}

// Shutdown unloads and releases the provider.
func (sp *SpanProcessor) Shutdown(context.Context) error {
	var err error
	sp.shutdownOnce.Do(func() {
		err = sp.provider.Close()
	})
	return err
}

// ForceFlush does nothing, probes are fired synchronously.
func (sp *SpanProcessor) ForceFlush(context.Context) error { return nil }
