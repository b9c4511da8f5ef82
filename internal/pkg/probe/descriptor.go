// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package probe provides the immutable description of a registered probe.
package probe

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/usdt/engine"
	"go.opentelemetry.io/usdt/internal/pkg/codec"
)

// ID is a unique identifier for a probe within a process.
type ID struct {
	// Provider is the name of the provider the probe belongs to.
	Provider string
	// Name is the probe name.
	Name string
}

func (id ID) String() string {
	return fmt.Sprintf("%s:%s", id.Provider, id.Name)
}

// Descriptor is the metadata of one probe: its identity, its argument
// signature, and the native handle owned by its provider. A Descriptor never
// changes after creation.
type Descriptor struct {
	id     ID
	sig    []codec.Type
	handle engine.Probe
}

// NewDescriptor returns a Descriptor for the probe id with signature sig
// backed by handle. sig is copied.
func NewDescriptor(id ID, sig []codec.Type, handle engine.Probe) *Descriptor {
	return &Descriptor{
		id:     id,
		sig:    append([]codec.Type(nil), sig...),
		handle: handle,
	}
}

// ID returns the probe identifier.
func (d *Descriptor) ID() ID { return d.id }

// Name returns the probe name.
func (d *Descriptor) Name() string { return d.id.Name }

// Signature returns the declared argument types. The returned slice is shared
// and must not be modified.
func (d *Descriptor) Signature() []codec.Type { return d.sig }

// Arity returns the number of declared arguments.
func (d *Descriptor) Arity() int { return len(d.sig) }

// Handle returns the native probe handle.
func (d *Descriptor) Handle() engine.Probe { return d.handle }

// NativeKinds returns the engine slot kinds the probe was created with.
func (d *Descriptor) NativeKinds() []engine.ArgKind {
	return NativeKinds(d.sig)
}

func (d *Descriptor) String() string {
	return d.id.String() + signatureString(d.sig)
}

// NativeKinds returns the engine slot kind of each type in sig.
func NativeKinds(sig []codec.Type) []engine.ArgKind {
	kinds := make([]engine.ArgKind, len(sig))
	for i, t := range sig {
		kinds[i] = t.Native()
	}
	return kinds
}

func signatureString(sig []codec.Type) string {
	parts := make([]string, len(sig))
	for i, t := range sig {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
