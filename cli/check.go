// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/features"
	"github.com/spf13/cobra"

	"go.opentelemetry.io/usdt/engine/stapsdt"
	"go.opentelemetry.io/usdt/internal/pkg/kernel"
)

func newCheckCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that native probes can be created",
		Long: `Check the running kernel and, unless the in-process engine is selected,
that libstapsdt can be loaded.

Whether a tracer can attach uprobe programs to the probes is reported too. It
does not fail the check: probes work without a tracer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return check(cmd.OutOrStdout(), rootOpts)
		},
	}
}

// Used for testing.
var (
	kernelVersion   = kernel.Version
	kernelSupported = kernel.Supported
	kernelLockdown  = kernel.Lockdown
	haveUprobes     = func() error { return features.HaveProgramType(ebpf.Kprobe) }
)

func check(w io.Writer, opts *rootOptions) error {
	var err error

	if v := kernelVersion(); v != nil {
		fmt.Fprintf(w, "kernel: %s\n", v)
	} else {
		fmt.Fprintln(w, "kernel: unknown")
	}
	if e := kernelSupported(); e != nil {
		fmt.Fprintf(w, "  error: %v\n", e)
		err = errors.Join(err, e)
	}
	fmt.Fprintf(w, "lockdown: %s\n", kernelLockdown())
	if e := haveUprobes(); e != nil {
		fmt.Fprintf(w, "uprobes: unavailable (%v)\n", e)
	} else {
		fmt.Fprintln(w, "uprobes: supported")
	}

	if opts.Engine == engineMem {
		fmt.Fprintln(w, "engine: mem")
		return err
	}

	lib := opts.Library
	if lib == "" {
		lib = stapsdt.DefaultLibrary
	}
	e, oErr := openStapsdt(opts.Library)
	if oErr != nil {
		fmt.Fprintf(w, "engine: stapsdt (%s)\n  error: %v\n", lib, oErr)
		return errors.Join(err, oErr)
	}
	fmt.Fprintf(w, "engine: stapsdt (%s)\n", lib)
	return errors.Join(err, e.Close())
}
