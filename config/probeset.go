// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides declarative probe sets and the providers that
// deliver them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"

	"go.opentelemetry.io/usdt"
	"go.opentelemetry.io/usdt/engine"
)

// ProbeSet declares a provider and its probes.
//
//	provider: myapp
//	convention: typed
//	probes:
//	  - name: event
//	    args: [integer, string]
//	  - name: tick
type ProbeSet struct {
	// Provider is the provider name.
	Provider string `yaml:"provider"`
	// Convention is the argument convention, "typed" (default) or "word".
	Convention usdt.Convention `yaml:"convention,omitempty"`
	// Probes are the probes of the provider.
	Probes []Probe `yaml:"probes"`
}

// Probe declares one probe.
type Probe struct {
	// Name is the probe name.
	Name string `yaml:"name"`
	// Args are the argument types, by name (e.g. "string", "int32").
	Args []usdt.ArgType `yaml:"args,omitempty,flow"`
	// Disabled probes are not added to the provider.
	Disabled bool `yaml:"disabled,omitempty"`
}

var errNoProvider = errors.New("provider name is required")

// Parse decodes and validates a YAML probe set.
func Parse(data []byte) (ProbeSet, error) {
	var s ProbeSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return ProbeSet{}, fmt.Errorf("decode probe set: %w", err)
	}
	return s, s.Validate()
}

// Load reads and parses the probe set file at path.
func Load(path string) (ProbeSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ProbeSet{}, err
	}
	s, err := Parse(data)
	if err != nil {
		return ProbeSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate reports every problem of s.
func (s ProbeSet) Validate() error {
	var err error
	if s.Provider == "" {
		err = errors.Join(err, errNoProvider)
	}
	seen := make(map[string]struct{}, len(s.Probes))
	for i, p := range s.Probes {
		if p.Name == "" {
			err = errors.Join(err, fmt.Errorf("probe %d: name is required", i))
			continue
		}
		if _, dup := seen[p.Name]; dup {
			err = errors.Join(err, fmt.Errorf("probe %s: declared twice", p.Name))
		}
		seen[p.Name] = struct{}{}
		if len(p.Args) > engine.MaxArgs {
			err = errors.Join(err, fmt.Errorf("probe %s: %d arguments, at most %d are supported", p.Name, len(p.Args), engine.MaxArgs))
		}
	}
	return err
}

// Equal reports whether s and o declare the same probes.
func (s ProbeSet) Equal(o ProbeSet) bool {
	return reflect.DeepEqual(s, o)
}

// Build creates the provider declared by s with its enabled probes. The
// provider is not loaded.
func (s ProbeSet) Build(opts ...usdt.Option) (*usdt.Provider, error) {
	opts = append(opts, usdt.WithConvention(s.Convention))
	p, err := usdt.NewProvider(s.Provider, opts...)
	if err != nil {
		return nil, err
	}
	for _, pr := range s.Probes {
		if pr.Disabled {
			continue
		}
		if _, err := p.AddProbe(pr.Name, pr.Args...); err != nil {
			return nil, errors.Join(err, p.Close())
		}
	}
	return p, nil
}

// Marshal encodes s as YAML.
func (s ProbeSet) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
