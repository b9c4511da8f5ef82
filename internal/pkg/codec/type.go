// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec converts Go values to and from the 64-bit words a probe is
// fired with.
//
// A probe argument is declared with a [Type]. The engine only understands
// fixed-width integer slots, so string, float and integer arguments are all
// declared to it as unsigned 64-bit slots and the richer meaning is kept
// here: the Type decides how each value is reinterpreted as a word.
package codec

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/usdt/engine"
)

// Kind is the semantic kind of an argument Type.
type Kind uint8

const (
	// KindInvalid is the zero Kind.
	KindInvalid Kind = iota
	// KindString arguments are passed as the address of a NUL-terminated
	// string.
	KindString
	// KindFloat arguments are passed as the IEEE-754 bit pattern of a
	// float64.
	KindFloat
	// KindInteger arguments are passed as the two's-complement 64-bit
	// pattern of an integer.
	KindInteger
	// KindRawWord arguments are passed as-is in a slot of a declared width.
	KindRawWord
)

// Type is the declared type of one probe argument. The zero Type is invalid.
type Type struct {
	kind  Kind
	width int8
}

var (
	// String is the Type of string arguments.
	String = Type{kind: KindString}
	// Float is the Type of floating point arguments.
	Float = Type{kind: KindFloat}
	// Integer is the Type of 64-bit integer arguments.
	Integer = Type{kind: KindInteger}
)

// RawWord returns the Type of an argument passed unconverted in a slot of
// width bytes. A negative width declares a signed slot. Widths other than
// ±1, ±2, ±4 and ±8 return an invalid Type.
func RawWord(width int) Type {
	if width < -8 || width > 8 || !engine.ArgKind(width).Valid() {
		return Type{}
	}
	return Type{kind: KindRawWord, width: int8(width)}
}

// Kind returns the semantic kind of t.
func (t Type) Kind() Kind { return t.kind }

// Width returns the declared slot width of a raw word Type, negative when
// signed. It is 8 for every other valid Type.
func (t Type) Width() int {
	if t.kind == KindRawWord {
		return int(t.width)
	}
	if t.kind == KindInvalid {
		return 0
	}
	return 8
}

// Valid reports whether t is a usable argument Type.
func (t Type) Valid() bool {
	switch t.kind {
	case KindString, KindFloat, KindInteger:
		return true
	case KindRawWord:
		return engine.ArgKind(t.width).Valid()
	}
	return false
}

// Native returns the engine slot kind t is declared as. String, float and
// integer arguments all normalize to an unsigned 64-bit slot.
func (t Type) Native() engine.ArgKind {
	switch t.kind {
	case KindString, KindFloat, KindInteger:
		return engine.Uint64
	case KindRawWord:
		return engine.ArgKind(t.width)
	}
	return engine.NoArg
}

func (t Type) String() string {
	switch t.kind {
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindInteger:
		return "integer"
	case KindRawWord:
		if t.Valid() {
			return engine.ArgKind(t.width).String()
		}
	}
	return fmt.Sprintf("Type(%d,%d)", t.kind, t.width)
}

// MarshalText encodes t as its name.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid argument type: %s", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a Type name as accepted by [ParseType].
func (t *Type) UnmarshalText(text []byte) error {
	v, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseType parses a Type name: "string", "float", "integer" (or "int"), or
// one of the raw slot names "uint8" through "int64".
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "str":
		return String, nil
	case "float", "double", "float64":
		return Float, nil
	case "integer", "int":
		return Integer, nil
	case "uint8":
		return RawWord(int(engine.Uint8)), nil
	case "int8":
		return RawWord(int(engine.Int8)), nil
	case "uint16":
		return RawWord(int(engine.Uint16)), nil
	case "int16":
		return RawWord(int(engine.Int16)), nil
	case "uint32":
		return RawWord(int(engine.Uint32)), nil
	case "int32":
		return RawWord(int(engine.Int32)), nil
	case "uint64":
		return RawWord(int(engine.Uint64)), nil
	case "int64":
		return RawWord(int(engine.Int64)), nil
	}
	return Type{}, fmt.Errorf("unknown argument type %q", name)
}
