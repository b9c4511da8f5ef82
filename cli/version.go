// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/spf13/cobra"

	"go.opentelemetry.io/usdt"
)

const unknown = "unknown"

// buildInfo is the VCS stamp of the running binary.
type buildInfo struct {
	Revision string `json:"revision"`
	Time     string `json:"time,omitempty"`
	Dirty    bool   `json:"dirty,omitempty"`
}

var readBuildInfo = debug.ReadBuildInfo

var getBuildInfo = sync.OnceValue(func() buildInfo {
	b := buildInfo{Revision: unknown}
	info, ok := readBuildInfo()
	if !ok {
		return b
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			b.Revision = s.Value
		case "vcs.time":
			b.Time = s.Value
		case "vcs.modified":
			b.Dirty = s.Value == "true"
		}
	}
	return b
})

type versionInfo struct {
	Release string    `json:"release"`
	Build   buildInfo `json:"build"`
	Go      string    `json:"go"`
	Target  string    `json:"target"`
}

func newVersionInfo() versionInfo {
	return versionInfo{
		Release: usdt.Version(),
		Build:   getBuildInfo(),
		Go:      runtime.Version(),
		Target:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (v versionInfo) String() string {
	rev := v.Build.Revision
	if v.Build.Dirty {
		rev += "-dirty"
	}
	return fmt.Sprintf("usdt %s (revision %s, %s %s)", v.Release, rev, v.Go, v.Target)
}

func newVersionCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := newVersionInfo()
			if !asJSON {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), v)
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
