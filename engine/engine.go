// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine defines the boundary between the usdt package and a native
// tracing engine.
//
// An engine owns everything that happens inside the process image: building
// the ELF note section that describes each probe, mapping the probe code into
// memory, and reporting whether a tracer has patched a probe site. The usdt
// package only ever talks to an engine through the interfaces declared here.
//
// The shape mirrors libstapsdt: providers are created by name, probes are
// added to a provider with a fixed list of argument kinds, a provider is
// loaded and unloaded as a unit, and a failing lifecycle call returns
// [StatusFailed] with details available from [Provider.LastError].
package engine

import "fmt"

// MaxArgs is the maximum number of arguments a probe can declare. It is the
// highest call-site arity the native ABI provides.
const MaxArgs = 6

// ArgKind is the native argument slot type of a probe argument. Its value is
// the slot width in bytes, negated for signed slots.
type ArgKind int8

const (
	// NoArg is the zero value and is not a valid probe argument.
	NoArg ArgKind = 0
	// Uint8 is an unsigned 8-bit slot.
	Uint8 ArgKind = 1
	// Int8 is a signed 8-bit slot.
	Int8 ArgKind = -1
	// Uint16 is an unsigned 16-bit slot.
	Uint16 ArgKind = 2
	// Int16 is a signed 16-bit slot.
	Int16 ArgKind = -2
	// Uint32 is an unsigned 32-bit slot.
	Uint32 ArgKind = 4
	// Int32 is a signed 32-bit slot.
	Int32 ArgKind = -4
	// Uint64 is an unsigned 64-bit slot.
	Uint64 ArgKind = 8
	// Int64 is a signed 64-bit slot.
	Int64 ArgKind = -8
)

// Valid reports whether k is one of the defined slot kinds.
func (k ArgKind) Valid() bool {
	switch k {
	case Uint8, Int8, Uint16, Int16, Uint32, Int32, Uint64, Int64:
		return true
	}
	return false
}

// Signed reports whether k is a signed slot.
func (k ArgKind) Signed() bool { return k < 0 }

// Size returns the slot width in bytes.
func (k ArgKind) Size() int {
	if k < 0 {
		return int(-k)
	}
	return int(k)
}

func (k ArgKind) String() string {
	switch k {
	case NoArg:
		return "noarg"
	case Uint8:
		return "uint8"
	case Int8:
		return "int8"
	case Uint16:
		return "uint16"
	case Int16:
		return "int16"
	case Uint32:
		return "uint32"
	case Int32:
		return "int32"
	case Uint64:
		return "uint64"
	case Int64:
		return "int64"
	default:
		return fmt.Sprintf("ArgKind(%d)", int8(k))
	}
}

// Status is the return code of a lifecycle call.
type Status int

const (
	// StatusOK reports success.
	StatusOK Status = 0
	// StatusFailed reports failure. Details are read with
	// [Provider.LastError].
	StatusFailed Status = -1
)

// Errno is the error code an engine records on a provider after a failing
// lifecycle call.
type Errno int

const (
	// NoError means the engine recorded no error. An engine may still return
	// [StatusFailed] while reporting NoError.
	NoError Errno = -1
	// ElfCreation means the in-memory ELF image could not be built.
	ElfCreation Errno = 0
	// TmpCreation means the backing file could not be created.
	TmpCreation Errno = 1
	// SharedLibraryOpen means the generated image could not be mapped.
	SharedLibraryOpen Errno = 2
	// SymbolLoading means a probe symbol could not be resolved.
	SymbolLoading Errno = 3
	// SharedLibraryClose means the generated image could not be unmapped.
	SharedLibraryClose Errno = 4
)

func (e Errno) String() string {
	switch e {
	case NoError:
		return "noError"
	case ElfCreation:
		return "elfCreationError"
	case TmpCreation:
		return "tmpCreationError"
	case SharedLibraryOpen:
		return "sharedLibraryOpenError"
	case SymbolLoading:
		return "symbolLoadingError"
	case SharedLibraryClose:
		return "sharedLibraryCloseError"
	default:
		return fmt.Sprintf("Errno(%d)", int(e))
	}
}

// ErrorState is the error recorded on a provider by its engine.
type ErrorState struct {
	Code    Errno
	Message string
}

// Args is a length-tagged array of argument words handed to [Probe.Fire].
// Only the first N words are meaningful.
type Args struct {
	N     int
	Words [MaxArgs]uint64
}

// Slice returns the meaningful words of a.
func (a *Args) Slice() []uint64 { return a.Words[:a.N] }

// Engine creates providers.
type Engine interface {
	// CreateProvider returns a new provider named name, or nil if the engine
	// refuses the name. No error detail is available for this call.
	CreateProvider(name string) Provider
}

// Provider is a native provider handle. It is exclusively owned by a single
// usdt.Provider and is not safe for concurrent lifecycle calls.
type Provider interface {
	// Load maps the provider's probes into the process image.
	Load() Status
	// Unload removes the provider's probes from the process image.
	Unload() Status
	// LastError returns the error recorded by the last failing Load or
	// Unload.
	LastError() ErrorState
	// Destroy releases the provider and every probe added to it. It is
	// called exactly once.
	Destroy()
	// AddProbe adds a probe named name with one slot per kind. It returns nil
	// if the probe cannot be created.
	AddProbe(name string, kinds ...ArgKind) Probe
}

// Probe is a native probe handle owned by its Provider.
type Probe interface {
	// Fire triggers the probe with args. It is a no-op unless a tracer is
	// attached.
	Fire(args *Args)
	// IsEnabled reports whether a tracer is attached to the probe.
	IsEnabled() bool
}
