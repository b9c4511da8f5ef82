// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package stapsdt provides an engine backed by libstapsdt.
//
// libstapsdt builds a small shared object in memory for each provider, with
// one function and one SystemTap SDT note per probe, and maps it into the
// process. Tracers such as bpftrace, bcc or perf then see regular USDT probes
// in the process. The library is loaded at run time so no cgo toolchain is
// needed to build programs using this package.
package stapsdt

import "errors"

// DefaultLibrary is the library name resolved by the dynamic loader when no
// path is given.
const DefaultLibrary = "libstapsdt.so.0"

// ErrUnsupported is returned on platforms libstapsdt does not run on.
var ErrUnsupported = errors.New("stapsdt: unsupported platform")
