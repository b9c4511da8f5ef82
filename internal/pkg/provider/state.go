// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package provider manages the lifecycle of a native provider and the probes
// registered on it.
package provider

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/usdt/engine"
	"go.opentelemetry.io/usdt/internal/pkg/codec"
	"go.opentelemetry.io/usdt/internal/pkg/fault"
	"go.opentelemetry.io/usdt/internal/pkg/probe"
)

// Status is the lifecycle status of a provider.
type Status int32

const (
	// Unloaded providers accept new probes. Firing never reaches the engine.
	Unloaded Status = iota
	// Loaded providers have their probes mapped into the process image.
	Loaded
	// Destroyed providers have released their native handle. Every
	// operation fails.
	Destroyed
)

func (s Status) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

const (
	opCreate   = "create provider"
	opAddProbe = "add probe"
	opLoad     = "load"
	opUnload   = "unload"
	opDestroy  = "destroy"
)

// State is a provider and its probes.
//
// Lifecycle methods must be serialized by the caller. Status may be read
// concurrently with them, which is what makes firing safe while a lifecycle
// call is in progress.
type State struct {
	logger *slog.Logger
	name   string
	handle engine.Provider

	status atomic.Int32

	probeMu sync.RWMutex
	probes  map[string]*probe.Descriptor
	order   []*probe.Descriptor
}

// New creates a provider named name on e.
func New(e engine.Engine, name string, logger *slog.Logger) (*State, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if name == "" {
		return nil, fault.New(fault.Creation, opCreate, "provider name must not be empty")
	}
	if strings.IndexByte(name, 0) >= 0 {
		return nil, fault.New(fault.Creation, opCreate, "provider name %q contains a null byte", name)
	}
	if e == nil {
		return nil, fault.New(fault.Creation, opCreate, "no engine")
	}

	h := e.CreateProvider(name)
	if h == nil {
		logger.Error("engine refused provider", "provider", name)
		return nil, fault.New(fault.Creation, opCreate, "could not create provider with name %s", name)
	}
	logger.Debug("provider created", "provider", name)

	return &State{
		logger: logger,
		name:   name,
		handle: h,
		probes: make(map[string]*probe.Descriptor),
	}, nil
}

// Name returns the provider name.
func (s *State) Name() string { return s.name }

// Status returns the current lifecycle status.
func (s *State) Status() Status { return Status(s.status.Load()) }

// Loaded reports whether the provider is loaded.
func (s *State) Loaded() bool { return s.Status() == Loaded }

// AddProbe registers a probe named name with signature sig declared under
// conv. Nothing is registered if an error is returned.
func (s *State) AddProbe(name string, sig []codec.Type, conv Convention) (*probe.Descriptor, error) {
	switch s.Status() {
	case Loaded:
		return nil, fault.New(fault.State, opAddProbe, "cannot add probe %q to loaded provider %s", name, s.name)
	case Destroyed:
		return nil, s.destroyedError(opAddProbe)
	}

	if err := validateProbe(name, sig, conv); err != nil {
		return nil, err
	}

	s.probeMu.Lock()
	defer s.probeMu.Unlock()

	if _, exists := s.probes[name]; exists {
		return nil, fault.New(fault.Argument, opAddProbe, "probe %q already registered on provider %s", name, s.name)
	}

	kinds := probe.NativeKinds(sig)
	h := s.handle.AddProbe(name, kinds...)
	if h == nil {
		s.logger.Error("engine refused probe", "provider", s.name, "probe", name, "kinds", kinds)
		return nil, fault.New(fault.Creation, opAddProbe, "failed to create probe %q", name)
	}

	d := probe.NewDescriptor(probe.ID{Provider: s.name, Name: name}, sig, h)
	s.probes[name] = d
	s.order = append(s.order, d)
	s.logger.Debug("probe added", "probe", d.ID(), "signature", d.String())
	return d, nil
}

func validateProbe(name string, sig []codec.Type, conv Convention) error {
	if len(sig) > engine.MaxArgs {
		return fault.New(fault.Argument, opAddProbe, "libstapsdt only supports up to %d arguments, got %d", engine.MaxArgs, len(sig))
	}
	if name == "" {
		return fault.New(fault.Argument, opAddProbe, "probe name must not be empty")
	}
	if strings.IndexByte(name, 0) >= 0 {
		return fault.New(fault.Argument, opAddProbe, "probe name %q contains a null byte", name)
	}
	for i, t := range sig {
		if !t.Valid() {
			return fault.New(fault.Argument, opAddProbe, "argument %d: invalid type %s", i, t)
		}
		if conv == Word && t.Kind() != codec.KindRawWord {
			return fault.New(fault.Argument, opAddProbe, "argument %d: %s is not a word type", i, t)
		}
	}
	return nil
}

// Probe returns the probe named name.
func (s *State) Probe(name string) (*probe.Descriptor, bool) {
	s.probeMu.RLock()
	defer s.probeMu.RUnlock()
	d, ok := s.probes[name]
	return d, ok
}

// Probes returns the registered probes in registration order.
func (s *State) Probes() []*probe.Descriptor {
	s.probeMu.RLock()
	defer s.probeMu.RUnlock()
	return append([]*probe.Descriptor(nil), s.order...)
}

// Manifest returns a snapshot of the provider and its probes.
func (s *State) Manifest() probe.Manifest {
	return probe.NewManifest(s.name, s.Loaded(), s.Probes())
}

// Load maps the provider into the process image. The call is always
// delegated to the engine, which decides whether loading twice is an error.
func (s *State) Load() error {
	if s.Status() == Destroyed {
		return s.destroyedError(opLoad)
	}
	if st := s.handle.Load(); st != engine.StatusOK {
		return s.engineError(fault.Load, opLoad)
	}
	s.status.Store(int32(Loaded))
	s.logger.Debug("provider loaded", "provider", s.name, "probes", len(s.Probes()))
	return nil
}

// Unload removes the provider from the process image. The call is always
// delegated to the engine, including when the provider was never loaded.
func (s *State) Unload() error {
	if s.Status() == Destroyed {
		return s.destroyedError(opUnload)
	}
	// Stop firing before the probe code goes away.
	prev := Status(s.status.Swap(int32(Unloaded)))
	if st := s.handle.Unload(); st != engine.StatusOK {
		s.status.Store(int32(prev))
		return s.engineError(fault.Unload, opUnload)
	}
	s.logger.Debug("provider unloaded", "provider", s.name)
	return nil
}

// Destroy unloads the provider if needed and releases the native handle
// along with every probe. Probes fired afterwards never reach the engine.
func (s *State) Destroy() error {
	prev := Status(s.status.Swap(int32(Destroyed)))
	if prev == Destroyed {
		return s.destroyedError(opDestroy)
	}

	var err error
	if prev == Loaded {
		if st := s.handle.Unload(); st != engine.StatusOK {
			err = s.engineError(fault.Unload, opDestroy)
		}
	}
	s.handle.Destroy()
	s.logger.Debug("provider destroyed", "provider", s.name)
	return err
}

func (s *State) destroyedError(op string) error {
	return fault.New(fault.State, op, "provider %s is destroyed", s.name)
}

// engineError translates the engine's error state after a failed lifecycle
// call.
func (s *State) engineError(k fault.Kind, op string) error {
	es := s.handle.LastError()
	e := &fault.Error{Kind: k, Op: op, Engine: &es}
	switch {
	case es.Code == engine.NoError:
		e.Msg = op + " failed: engine reported no error"
	case es.Message == "":
		e.Msg = fmt.Sprintf("%s failed: %s", op, es.Code)
	default:
		e.Msg = es.Message
	}
	s.logger.Error("engine failure", "provider", s.name, "op", op, "code", es.Code, "error", e.Msg)
	return e
}
