// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package memengine provides an in-process engine.
//
// Nothing is mapped into the process image, so external tracers cannot see
// its probes. Instead, tracers are attached in-process with
// [Provider.Trace] and receive every event fired while attached. The engine
// follows libstapsdt's observable behavior: loading twice fails, unloading a
// provider that is not loaded succeeds, and a probe is only enabled while a
// tracer is attached.
package memengine

import (
	"sync"

	"go.opentelemetry.io/usdt/engine"
)

// Engine is an in-process engine. The zero value is not usable, use New.
type Engine struct {
	mu        sync.Mutex
	providers map[string]*Provider
}

var _ engine.Engine = (*Engine)(nil)

// New returns a new Engine.
func New() *Engine {
	return &Engine{providers: make(map[string]*Provider)}
}

// CreateProvider returns a new provider, or nil if a provider with the same
// name exists and has not been destroyed.
func (e *Engine) CreateProvider(name string) engine.Provider {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.providers[name]; exists {
		return nil
	}
	p := &Provider{
		engine:  e,
		name:    name,
		probes:  make(map[string]*Probe),
		lastErr: engine.ErrorState{Code: engine.NoError},
	}
	e.providers[name] = p
	return p
}

// Provider returns the live provider named name.
func (e *Engine) Provider(name string) (*Provider, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.providers[name]
	return p, ok
}

// Providers returns the names of all live providers.
func (e *Engine) Providers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.providers))
	for name := range e.providers {
		names = append(names, name)
	}
	return names
}

func (e *Engine) remove(p *Provider) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.providers[p.name] == p {
		delete(e.providers, p.name)
	}
}

// Provider is an in-process provider.
type Provider struct {
	engine *Engine
	name   string

	mu         sync.Mutex
	loaded     bool
	destroyed  bool
	probes     map[string]*Probe
	order      []*Probe
	lastErr    engine.ErrorState
	failLoad   *engine.ErrorState
	failUnload *engine.ErrorState
	loads      int
	unloads    int
}

var _ engine.Provider = (*Provider)(nil)

// Name returns the provider name.
func (p *Provider) Name() string { return p.name }

// IsLoaded reports whether the provider is loaded.
func (p *Provider) IsLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// IsDestroyed reports whether the provider was destroyed.
func (p *Provider) IsDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

// Calls returns the number of Load and Unload calls received.
func (p *Provider) Calls() (loads, unloads int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads, p.unloads
}

// FailNextLoad makes the next Load call fail with code and msg. A code of
// [engine.NoError] makes the call fail without reporting an error.
func (p *Provider) FailNextLoad(code engine.Errno, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failLoad = &engine.ErrorState{Code: code, Message: msg}
}

// FailNextUnload makes the next Unload call fail with code and msg.
func (p *Provider) FailNextUnload(code engine.Errno, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failUnload = &engine.ErrorState{Code: code, Message: msg}
}

// Load implements [engine.Provider].
func (p *Provider) Load() engine.Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.loads++
	if f := p.failLoad; f != nil {
		p.failLoad = nil
		p.lastErr = *f
		return engine.StatusFailed
	}
	if p.loaded {
		p.lastErr = engine.ErrorState{
			Code:    engine.SharedLibraryOpen,
			Message: "provider " + p.name + " is already loaded",
		}
		return engine.StatusFailed
	}
	p.loaded = true
	return engine.StatusOK
}

// Unload implements [engine.Provider]. Unloading a provider that is not
// loaded is a no-op. Attached tracers are detached.
func (p *Provider) Unload() engine.Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.unloads++
	if f := p.failUnload; f != nil {
		p.failUnload = nil
		p.lastErr = *f
		return engine.StatusFailed
	}
	if !p.loaded {
		return engine.StatusOK
	}
	p.loaded = false
	for _, pr := range p.order {
		pr.detach()
	}
	return engine.StatusOK
}

// LastError implements [engine.Provider].
func (p *Provider) LastError() engine.ErrorState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Destroy implements [engine.Provider].
func (p *Provider) Destroy() {
	p.mu.Lock()
	p.destroyed = true
	p.loaded = false
	for _, pr := range p.order {
		pr.detach()
	}
	p.mu.Unlock()

	p.engine.remove(p)
}

// AddProbe implements [engine.Provider]. It returns nil for more than
// [engine.MaxArgs] arguments, an invalid kind, a duplicate name, or when the
// provider is loaded or destroyed.
func (p *Provider) AddProbe(name string, kinds ...engine.ArgKind) engine.Probe {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded || p.destroyed || len(kinds) > engine.MaxArgs {
		return nil
	}
	for _, k := range kinds {
		if !k.Valid() {
			return nil
		}
	}
	if _, exists := p.probes[name]; exists {
		return nil
	}

	pr := &Probe{
		provider: p,
		name:     name,
		kinds:    append([]engine.ArgKind(nil), kinds...),
	}
	p.probes[name] = pr
	p.order = append(p.order, pr)
	return pr
}

// Probe returns the probe named name.
func (p *Provider) Probe(name string) (*Probe, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pr, ok := p.probes[name]
	return pr, ok
}
