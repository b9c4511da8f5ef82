// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go.opentelemetry.io/usdt"
	"go.opentelemetry.io/usdt/config"
	"go.opentelemetry.io/usdt/engine/memengine"
)

func newListCommand(rootOpts *rootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the probes of a probe set",
		Long: `Validate the probe set file and list the probes it defines with their
argument types and the native slot types tracers see.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := config.Load(path)
			if err != nil {
				return err
			}
			// Probes are created in-process only, nothing is loaded.
			p, err := set.Build(usdt.WithEngine(memengine.New()), usdt.WithLogger(rootOpts.logger))
			if err != nil {
				return err
			}
			defer p.Close()
			return writeManifest(cmd.OutOrStdout(), p.Convention(), p.Manifest())
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "probes.yaml", "probe set file")

	return cmd
}

func writeManifest(w io.Writer, conv usdt.Convention, m usdt.Manifest) error {
	fmt.Fprintf(w, "provider: %s (%s)\n", m.Provider, conv)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROBE\tARGS\tNATIVE")
	for _, e := range m.Probes {
		args := make([]string, len(e.Signature))
		for i, t := range e.Signature {
			args[i] = t.String()
		}
		native := make([]string, len(e.Native))
		for i, k := range e.Native {
			native[i] = k.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID.Name, dashIfEmpty(args), dashIfEmpty(native))
	}
	return tw.Flush()
}

func dashIfEmpty(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}
