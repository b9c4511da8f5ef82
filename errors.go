// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import "go.opentelemetry.io/usdt/internal/pkg/fault"

// Error is the error returned by every operation of this package. Use
// [errors.Is] with the Err sentinels to test its kind, or [errors.As] to read
// the failed operation and the engine's error state.
type Error = fault.Error

// ErrorKind identifies the contract an [Error] reports as violated.
type ErrorKind = fault.Kind

// Error kinds.
const (
	KindCreation = fault.Creation
	KindArgument = fault.Argument
	KindRange    = fault.Range
	KindType     = fault.Type
	KindLoad     = fault.Load
	KindUnload   = fault.Unload
	KindState    = fault.State
)

var (
	// ErrCreation is matched by errors creating a provider or a probe.
	ErrCreation = fault.ErrCreation
	// ErrArgument is matched by errors caused by a wrong number of
	// arguments, conflicting argument sources, or an invalid probe
	// definition.
	ErrArgument = fault.ErrArgument
	// ErrRange is matched by errors caused by a value that does not fit its
	// declared argument type.
	ErrRange = fault.ErrRange
	// ErrType is matched by errors caused by a value of a kind its declared
	// argument type does not accept.
	ErrType = fault.ErrType
	// ErrLoad is matched by errors loading a provider.
	ErrLoad = fault.ErrLoad
	// ErrUnload is matched by errors unloading a provider.
	ErrUnload = fault.ErrUnload
	// ErrState is matched by operations not allowed in the provider's
	// current state.
	ErrState = fault.ErrState
)
