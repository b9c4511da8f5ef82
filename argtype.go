// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"go.opentelemetry.io/usdt/engine"
	"go.opentelemetry.io/usdt/internal/pkg/codec"
)

// ArgType is the declared type of a probe argument.
type ArgType = codec.Type

// Typed convention argument types. Each is passed to tracers as an unsigned
// 64-bit value.
var (
	// StringArg arguments accept string and []byte values and are passed as
	// the address of a NUL-terminated copy.
	StringArg = codec.String
	// FloatArg arguments accept floating point values, and integers exactly
	// representable as a float64, and are passed as IEEE-754 bits.
	FloatArg = codec.Float
	// IntegerArg arguments accept any integer that fits 64 bits and are
	// passed as its two's complement bits.
	IntegerArg = codec.Integer
)

// Raw word argument types, usable with both conventions.
var (
	Uint8Arg  = codec.RawWord(int(engine.Uint8))
	Int8Arg   = codec.RawWord(int(engine.Int8))
	Uint16Arg = codec.RawWord(int(engine.Uint16))
	Int16Arg  = codec.RawWord(int(engine.Int16))
	Uint32Arg = codec.RawWord(int(engine.Uint32))
	Int32Arg  = codec.RawWord(int(engine.Int32))
	Uint64Arg = codec.RawWord(int(engine.Uint64))
	Int64Arg  = codec.RawWord(int(engine.Int64))
)

// RawWordArg returns the type of an integer argument passed unconverted in a
// slot of width bytes, negative for signed slots. Widths other than ±1, ±2,
// ±4 and ±8 return an invalid type that [Provider.AddProbe] rejects.
func RawWordArg(width int) ArgType { return codec.RawWord(width) }

// ParseArgType parses an argument type name such as "string", "integer" or
// "int32".
func ParseArgType(name string) (ArgType, error) { return codec.ParseType(name) }
