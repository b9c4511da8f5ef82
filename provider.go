// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"log/slog"
	"sync"

	"go.opentelemetry.io/usdt/internal/pkg/dispatch"
	"go.opentelemetry.io/usdt/internal/pkg/fault"
	"go.opentelemetry.io/usdt/internal/pkg/probe"
	"go.opentelemetry.io/usdt/internal/pkg/provider"
)

// Manifest describes a provider and its probes.
type Manifest = probe.Manifest

// Provider is a named group of probes loaded into and unloaded from the
// process as a unit.
//
// Probes are added while the provider is unloaded, then the provider is
// loaded to make them visible to tracers. Lifecycle methods (AddProbe, Load,
// Unload and Close) must not be called concurrently. Probes may be fired
// from any goroutine at any time.
type Provider struct {
	state      *provider.State
	convention Convention
	logger     *slog.Logger

	mu     sync.RWMutex
	probes map[string]*Probe
}

// NewProvider returns a new unloaded [Provider] named name.
func NewProvider(name string, opts ...Option) (*Provider, error) {
	c, err := newConfig(opts)
	if err != nil {
		return nil, fault.Wrap(fault.Creation, "create provider", err, "invalid option: %s", err)
	}

	e, err := c.engine()
	if err != nil {
		c.logger.Error("engine unavailable", "error", err)
		return nil, fault.Wrap(fault.Creation, "create provider", err, "engine unavailable: %s", err)
	}

	s, err := provider.New(e, name, c.logger)
	if err != nil {
		return nil, err
	}
	return &Provider{
		state:      s,
		convention: c.convention,
		logger:     c.logger,
		probes:     make(map[string]*Probe),
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.state.Name() }

// Loaded reports whether the provider is loaded.
func (p *Provider) Loaded() bool { return p.state.Loaded() }

// Convention returns the argument convention of the provider's probes.
func (p *Provider) Convention() Convention { return p.convention }

// AddProbe adds a probe named name declaring one argument per type. At most
// six arguments can be declared. The provider must not be loaded.
func (p *Provider) AddProbe(name string, types ...ArgType) (*Probe, error) {
	d, err := p.state.AddProbe(name, types, p.convention)
	if err != nil {
		return nil, err
	}

	pr := &Probe{
		provider:   p,
		desc:       d,
		dispatcher: dispatch.New(d.Handle(), d.Signature(), p.state.Loaded),
	}
	p.mu.Lock()
	p.probes[name] = pr
	p.mu.Unlock()
	return pr, nil
}

// Probe returns the probe named name.
func (p *Provider) Probe(name string) (*Probe, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pr, ok := p.probes[name]
	return pr, ok
}

// Probes returns the provider's probes in the order they were added.
func (p *Provider) Probes() []*Probe {
	p.mu.RLock()
	defer p.mu.RUnlock()

	descs := p.state.Probes()
	out := make([]*Probe, 0, len(descs))
	for _, d := range descs {
		if pr, ok := p.probes[d.Name()]; ok {
			out = append(out, pr)
		}
	}
	return out
}

// Manifest returns a description of the provider and its probes.
func (p *Provider) Manifest() Manifest { return p.state.Manifest() }

// Load makes the provider's probes visible to tracers.
//
// The engine decides whether loading an already loaded provider is an error;
// libstapsdt reports one. A failed Load leaves the provider's state
// unchanged.
func (p *Provider) Load() error { return p.state.Load() }

// Unload removes the provider's probes from the process. Probes fired while
// unloaded return false and never reach a tracer.
func (p *Provider) Unload() error { return p.state.Unload() }

// Close unloads the provider if needed and releases it with all its probes.
// Every subsequent operation on the provider fails with [ErrState]. Firing
// its probes validates the arguments and returns false.
func (p *Provider) Close() error { return p.state.Destroy() }
