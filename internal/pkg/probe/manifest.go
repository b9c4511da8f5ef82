// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"sort"

	"go.opentelemetry.io/usdt/engine"
	"go.opentelemetry.io/usdt/internal/pkg/codec"
)

// Entry describes one probe in a Manifest.
type Entry struct {
	ID        ID
	Signature []codec.Type
	Native    []engine.ArgKind
}

// Manifest contains information about the probes of a provider.
type Manifest struct {
	// Provider is the provider name.
	Provider string
	// Loaded reports whether the provider was loaded when the Manifest was
	// taken.
	Loaded bool
	// Probes are sorted by name.
	Probes []Entry
}

// NewManifest returns a new Manifest for the provider named provider
// containing descriptors.
func NewManifest(provider string, loaded bool, descriptors []*Descriptor) Manifest {
	entries := make([]Entry, 0, len(descriptors))
	for _, d := range descriptors {
		entries = append(entries, Entry{
			ID:        d.ID(),
			Signature: append([]codec.Type(nil), d.Signature()...),
			Native:    d.NativeKinds(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID.Name < entries[j].ID.Name
	})

	return Manifest{
		Provider: provider,
		Loaded:   loaded,
		Probes:   entries,
	}
}

// Names returns the probe names in m.
func (m Manifest) Names() []string {
	names := make([]string, len(m.Probes))
	for i, e := range m.Probes {
		names[i] = e.ID.Name
	}
	return names
}

// String returns the probe signature as "provider:name(type, ...)".
func (e Entry) String() string {
	return e.ID.String() + signatureString(e.Signature)
}
