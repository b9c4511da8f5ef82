// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"fmt"
	"strings"
)

// Convention is the argument convention probes of a provider are declared
// with.
type Convention int

const (
	// Typed probes declare string, float and integer arguments that are
	// converted to words when fired. Raw word arguments are also accepted.
	Typed Convention = iota
	// Word probes only declare raw word arguments. Every value is passed as
	// a plain integer of the declared width.
	Word
)

func (c Convention) String() string {
	switch c {
	case Typed:
		return "typed"
	case Word:
		return "word"
	default:
		return fmt.Sprintf("Convention(%d)", int(c))
	}
}

// MarshalText encodes c as its name.
func (c Convention) MarshalText() ([]byte, error) {
	switch c {
	case Typed, Word:
		return []byte(c.String()), nil
	}
	return nil, fmt.Errorf("invalid convention: %d", int(c))
}

// UnmarshalText decodes a convention name.
func (c *Convention) UnmarshalText(text []byte) error {
	v, err := ParseConvention(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseConvention parses "typed" or "word".
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "typed", "":
		return Typed, nil
	case "word", "raw":
		return Word, nil
	}
	return 0, fmt.Errorf("unknown convention %q", s)
}
