// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"runtime"
	"unsafe"
)

// Frame holds the memory that encoded words point to for the duration of one
// native call. Every address produced by [Encode] stays valid and unmoved
// until Release is called.
//
// A Frame must not be copied after first use.
type Frame struct {
	pinner runtime.Pinner
	n      int
}

// cstring returns a pointer to a NUL-terminated copy of s.
func (f *Frame) cstring(s string) *byte {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return &buf[0]
}

func (f *Frame) pin(p *byte) {
	f.pinner.Pin(p)
	f.n++
}

// Pinned returns the number of values pinned in f.
func (f *Frame) Pinned() int { return f.n }

// Release unpins everything pinned in f. Words encoded into f must not be
// dereferenced afterwards.
func (f *Frame) Release() {
	if f.n == 0 {
		return
	}
	f.pinner.Unpin()
	f.n = 0
}

// StringAt returns the NUL-terminated string at the address held in w. It
// reads process memory and is only valid while the Frame that produced w is
// live, which is exactly what a tracer does when a probe fires.
//
// The address is pinned by the live Frame, so the pointer checks the race
// detector enables cannot follow it.
//
//go:nocheckptr
func StringAt(w uint64) string {
	if w == 0 {
		return ""
	}
	p := unsafe.Pointer(uintptr(w)) //nolint:govet // w is a pinned address.
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}
