// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package kernel reports the properties of the running kernel that native
// probes depend on.
package kernel

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-version"
)

// MinVersion is the oldest kernel with memfd_create, which native engines use
// to back the generated probe image.
var MinVersion = version.Must(version.NewVersion("3.17"))

// ErrUnknownVersion is returned when the kernel version cannot be determined.
var ErrUnknownVersion = errors.New("unable to determine kernel version")

// Version returns the major and minor version of the running kernel, or nil
// if it cannot be determined.
func Version() *version.Version { return kernelVersion() }

// Supported returns an error if the running kernel cannot host native
// probes.
func Supported() error {
	v := Version()
	if v == nil {
		return ErrUnknownVersion
	}
	if v.LessThan(MinVersion) {
		return fmt.Errorf("kernel %s is older than %s", v, MinVersion)
	}
	return nil
}

// LockdownMode is the security lockdown mode of the kernel.
type LockdownMode uint8

const (
	// LockdownNone means no lockdown restrictions apply.
	LockdownNone LockdownMode = iota + 1
	// LockdownIntegrity prevents modification of the running kernel.
	LockdownIntegrity
	// LockdownConfidentiality additionally prevents tracers from reading
	// kernel memory.
	LockdownConfidentiality
	// LockdownOther is an unrecognized mode.
	LockdownOther
)

func (m LockdownMode) String() string {
	switch m {
	case LockdownNone:
		return "none"
	case LockdownIntegrity:
		return "integrity"
	case LockdownConfidentiality:
		return "confidentiality"
	default:
		return "unknown"
	}
}

// Lockdown returns the current lockdown mode.
func Lockdown() LockdownMode { return lockdown() }
