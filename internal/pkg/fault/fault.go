// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package fault provides the error type shared by the usdt packages.
package fault

import (
	"fmt"

	"go.opentelemetry.io/usdt/engine"
)

// Kind identifies which contract an [Error] reports as violated.
type Kind int

const (
	// Creation means the engine could not create a provider or probe.
	Creation Kind = iota + 1
	// Argument means the caller broke an argument contract: arity, dual
	// argument sources, or an invalid probe definition.
	Argument
	// Range means a value cannot be reinterpreted losslessly as its declared
	// argument type.
	Range
	// Type means a value is not of a kind its declared argument type
	// accepts.
	Type
	// Load means the engine failed to load a provider.
	Load
	// Unload means the engine failed to unload a provider.
	Unload
	// State means the operation is not allowed in the provider's current
	// state.
	State
)

func (k Kind) String() string {
	switch k {
	case Creation:
		return "creation error"
	case Argument:
		return "argument error"
	case Range:
		return "range error"
	case Type:
		return "type error"
	case Load:
		return "load error"
	case Unload:
		return "unload error"
	case State:
		return "state error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a typed failure returned by every usdt operation.
type Error struct {
	Kind Kind
	// Op is the operation that failed (e.g. "load", "fire").
	Op string
	// Msg is a human readable description. For Load and Unload errors it is
	// the engine's diagnostic text verbatim when the engine provided one.
	Msg string
	// Engine is the error state reported by the engine, if any.
	Engine *engine.ErrorState
	// Err is the underlying error, if any.
	Err error
}

// New returns a new Error of kind k for op.
func New(k Kind, op, format string, args ...any) *Error {
	return &Error{Kind: k, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns a new Error of kind k for op wrapping err.
func Wrap(k Kind, op string, err error, format string, args ...any) *Error {
	e := New(k, op, format, args...)
	e.Err = err
	return e
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Msg == "":
		return "usdt: " + e.Kind.String()
	case e.Op == "":
		return "usdt: " + e.Msg
	case e.Msg == "":
		return fmt.Sprintf("usdt: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("usdt: %s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Msg != "" {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels, one per Kind, for use with errors.Is.
var (
	ErrCreation = &Error{Kind: Creation}
	ErrArgument = &Error{Kind: Argument}
	ErrRange    = &Error{Kind: Range}
	ErrType     = &Error{Kind: Type}
	ErrLoad     = &Error{Kind: Load}
	ErrUnload   = &Error{Kind: Unload}
	ErrState    = &Error{Kind: State}
)
