// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux && (amd64 || arm64)

package stapsdt

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/unix"

	"go.opentelemetry.io/usdt/engine"
	"go.opentelemetry.io/usdt/internal/pkg/kernel"
)

// Offsets of the error fields in SDTProvider_t on LP64 targets.
const (
	offErrno = 16
	offError = 24
)

// Engine creates libstapsdt providers.
type Engine struct {
	lib *library
}

var _ engine.Engine = (*Engine)(nil)

// Open loads libstapsdt from path, or from [DefaultLibrary] if path is empty.
func Open(path string) (*Engine, error) {
	if err := kernel.Supported(); err != nil {
		return nil, fmt.Errorf("stapsdt: %w", err)
	}
	if path == "" {
		path = DefaultLibrary
	}
	lib, err := openLibrary(path)
	if err != nil {
		return nil, err
	}
	return &Engine{lib: lib}, nil
}

// Close unloads the library. Every provider created by e must have been
// destroyed.
func (e *Engine) Close() error {
	return e.lib.close()
}

// CreateProvider implements [engine.Engine].
func (e *Engine) CreateProvider(name string) engine.Provider {
	cname, err := unix.BytePtrFromString(name)
	if err != nil {
		return nil
	}
	p := &provider{lib: e.lib, names: []*byte{cname}}
	p.pinner.Pin(cname)
	p.ptr = e.lib.providerInit(unsafe.Pointer(cname))
	if p.ptr == nil {
		p.pinner.Unpin()
		return nil
	}
	return p
}

type provider struct {
	lib *library
	ptr unsafe.Pointer

	// Names handed to the library stay pinned for the provider's lifetime.
	pinner runtime.Pinner
	names  []*byte
	probes []*probe
}

func (p *provider) Load() engine.Status {
	return engine.Status(p.lib.providerLoad(p.ptr))
}

func (p *provider) Unload() engine.Status {
	return engine.Status(p.lib.providerUnload(p.ptr))
}

func (p *provider) LastError() engine.ErrorState {
	es := engine.ErrorState{
		Code: engine.Errno(*(*int32)(unsafe.Add(p.ptr, offErrno))),
	}
	if msg := *(*unsafe.Pointer)(unsafe.Add(p.ptr, offError)); msg != nil {
		es.Message = unix.BytePtrToString((*byte)(msg))
	}
	return es
}

func (p *provider) Destroy() {
	p.lib.providerDestroy(p.ptr)
	p.ptr = nil
	for _, pr := range p.probes {
		pr.ptr = nil
	}
	p.pinner.Unpin()
	p.names = nil
}

func (p *provider) AddProbe(name string, kinds ...engine.ArgKind) engine.Probe {
	if len(kinds) > engine.MaxArgs {
		return nil
	}
	cname, err := unix.BytePtrFromString(name)
	if err != nil {
		return nil
	}
	p.pinner.Pin(cname)
	p.names = append(p.names, cname)

	var k [engine.MaxArgs]int32
	for i, kind := range kinds {
		k[i] = int32(kind)
	}
	ptr := p.lib.addProbe(p.ptr, unsafe.Pointer(cname), len(kinds), k)
	if ptr == nil {
		return nil
	}
	pr := &probe{lib: p.lib, ptr: ptr}
	p.probes = append(p.probes, pr)
	return pr
}

type probe struct {
	lib *library
	ptr unsafe.Pointer
}

func (p *probe) Fire(args *engine.Args) {
	if p.ptr == nil {
		return
	}
	p.lib.fire(p.ptr, args)
}

func (p *probe) IsEnabled() bool {
	return p.ptr != nil && p.lib.probeIsEnabled(p.ptr) == 1
}

// library holds the libstapsdt entry points.
//
// providerAddProbe and probeFire are variadic in C. They are registered once
// per arity so every call passes arguments in integer registers, which is
// how the System V and AAPCS64 ABIs pass variadic integer arguments.
type library struct {
	handle uintptr
	once   sync.Once

	providerInit    func(name unsafe.Pointer) unsafe.Pointer
	providerLoad    func(p unsafe.Pointer) int32
	providerUnload  func(p unsafe.Pointer) int32
	providerDestroy func(p unsafe.Pointer)
	probeIsEnabled  func(p unsafe.Pointer) int32

	addProbe0 func(p, name unsafe.Pointer, n int32) unsafe.Pointer
	addProbe1 func(p, name unsafe.Pointer, n, a1 int32) unsafe.Pointer
	addProbe2 func(p, name unsafe.Pointer, n, a1, a2 int32) unsafe.Pointer
	addProbe3 func(p, name unsafe.Pointer, n, a1, a2, a3 int32) unsafe.Pointer
	addProbe4 func(p, name unsafe.Pointer, n, a1, a2, a3, a4 int32) unsafe.Pointer
	addProbe5 func(p, name unsafe.Pointer, n, a1, a2, a3, a4, a5 int32) unsafe.Pointer
	addProbe6 func(p, name unsafe.Pointer, n, a1, a2, a3, a4, a5, a6 int32) unsafe.Pointer

	fire0 func(p unsafe.Pointer)
	fire1 func(p unsafe.Pointer, a1 uint64)
	fire2 func(p unsafe.Pointer, a1, a2 uint64)
	fire3 func(p unsafe.Pointer, a1, a2, a3 uint64)
	fire4 func(p unsafe.Pointer, a1, a2, a3, a4 uint64)
	fire5 func(p unsafe.Pointer, a1, a2, a3, a4, a5 uint64)
	fire6 func(p unsafe.Pointer, a1, a2, a3, a4, a5, a6 uint64)
}

func openLibrary(path string) (lib *library, err error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("stapsdt: open %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = purego.Dlclose(h)
		}
	}()

	// RegisterLibFunc panics on a missing symbol, check them first.
	for _, sym := range []string{
		"providerInit", "providerAddProbe", "providerLoad", "providerUnload",
		"providerDestroy", "probeFire", "probeIsEnabled",
	} {
		if _, err := purego.Dlsym(h, sym); err != nil {
			return nil, fmt.Errorf("stapsdt: %s: %w", path, err)
		}
	}

	lib = &library{handle: h}
	purego.RegisterLibFunc(&lib.providerInit, h, "providerInit")
	purego.RegisterLibFunc(&lib.providerLoad, h, "providerLoad")
	purego.RegisterLibFunc(&lib.providerUnload, h, "providerUnload")
	purego.RegisterLibFunc(&lib.providerDestroy, h, "providerDestroy")
	purego.RegisterLibFunc(&lib.probeIsEnabled, h, "probeIsEnabled")

	purego.RegisterLibFunc(&lib.addProbe0, h, "providerAddProbe")
	purego.RegisterLibFunc(&lib.addProbe1, h, "providerAddProbe")
	purego.RegisterLibFunc(&lib.addProbe2, h, "providerAddProbe")
	purego.RegisterLibFunc(&lib.addProbe3, h, "providerAddProbe")
	purego.RegisterLibFunc(&lib.addProbe4, h, "providerAddProbe")
	purego.RegisterLibFunc(&lib.addProbe5, h, "providerAddProbe")
	purego.RegisterLibFunc(&lib.addProbe6, h, "providerAddProbe")

	purego.RegisterLibFunc(&lib.fire0, h, "probeFire")
	purego.RegisterLibFunc(&lib.fire1, h, "probeFire")
	purego.RegisterLibFunc(&lib.fire2, h, "probeFire")
	purego.RegisterLibFunc(&lib.fire3, h, "probeFire")
	purego.RegisterLibFunc(&lib.fire4, h, "probeFire")
	purego.RegisterLibFunc(&lib.fire5, h, "probeFire")
	purego.RegisterLibFunc(&lib.fire6, h, "probeFire")
	return lib, nil
}

var errClosed = errors.New("stapsdt: library already closed")

func (l *library) close() error {
	err := errClosed
	l.once.Do(func() { err = purego.Dlclose(l.handle) })
	return err
}

func (l *library) addProbe(p, name unsafe.Pointer, n int, k [engine.MaxArgs]int32) unsafe.Pointer {
	switch n {
	case 0:
		return l.addProbe0(p, name, 0)
	case 1:
		return l.addProbe1(p, name, 1, k[0])
	case 2:
		return l.addProbe2(p, name, 2, k[0], k[1])
	case 3:
		return l.addProbe3(p, name, 3, k[0], k[1], k[2])
	case 4:
		return l.addProbe4(p, name, 4, k[0], k[1], k[2], k[3])
	case 5:
		return l.addProbe5(p, name, 5, k[0], k[1], k[2], k[3], k[4])
	case 6:
		return l.addProbe6(p, name, 6, k[0], k[1], k[2], k[3], k[4], k[5])
	}
	return nil
}

func (l *library) fire(p unsafe.Pointer, args *engine.Args) {
	w := &args.Words
	switch args.N {
	case 0:
		l.fire0(p)
	case 1:
		l.fire1(p, w[0])
	case 2:
		l.fire2(p, w[0], w[1])
	case 3:
		l.fire3(p, w[0], w[1], w[2])
	case 4:
		l.fire4(p, w[0], w[1], w[2], w[3])
	case 5:
		l.fire5(p, w[0], w[1], w[2], w[3], w[4])
	case 6:
		l.fire6(p, w[0], w[1], w[2], w[3], w[4], w[5])
	}
}
