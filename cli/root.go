// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go.opentelemetry.io/usdt"
	"go.opentelemetry.io/usdt/engine/memengine"
	"go.opentelemetry.io/usdt/engine/stapsdt"
)

const (
	envEngineKey      = "USDT_ENGINE"
	envLibraryPathKey = "USDT_LIBSTAPSDT_PATH"

	engineStapsdt = "stapsdt"
	engineMem     = "mem"
)

// rootOptions holds the global flags of every command.
type rootOptions struct {
	LogLevel string
	Engine   string
	Library  string

	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "usdt",
		Short: "Define and fire USDT probes at run time",
		Long: `usdt defines user-space statically defined tracing probes from a probe set
file and fires them, so tracers such as bpftrace, bcc or perf can be tried
against them.

Environment variable configuration:

	- USDT_LOG_LEVEL: log level (flag takes precedence)
	- USDT_ENGINE: engine (flag takes precedence)
	- USDT_LIBSTAPSDT_PATH: path of libstapsdt (flag takes precedence)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if opts.Engine == "" {
				opts.Engine = os.Getenv(envEngineKey)
			}
			if opts.Library == "" {
				opts.Library = os.Getenv(envLibraryPathKey)
			}
			switch opts.Engine {
			case "", engineStapsdt, engineMem:
			default:
				return fmt.Errorf("invalid engine %q: must be %q or %q", opts.Engine, engineStapsdt, engineMem)
			}
			opts.logger = newLogger(opts.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", `logging level ("debug", "info", "warn", "error")`)
	cmd.PersistentFlags().StringVar(&opts.Engine, "engine", "", `engine ("stapsdt", "mem")`)
	cmd.PersistentFlags().StringVar(&opts.Library, "library", "", "path of libstapsdt")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// providerOptions returns the options providers are built with. Flags take
// precedence over the environment.
func (o *rootOptions) providerOptions() ([]usdt.Option, error) {
	opts := []usdt.Option{usdt.WithEnv(), usdt.WithLogger(o.logger)}
	switch {
	case o.Engine == engineMem:
		opts = append(opts, usdt.WithEngine(memEngine))
	case o.Engine == engineStapsdt || o.Library != "":
		e, err := openStapsdt(o.Library)
		if err != nil {
			return nil, err
		}
		opts = append(opts, usdt.WithEngine(e))
	}
	return opts, nil
}

// memEngine is shared by every provider the command builds, so the run
// command can attach tracers to them.
var memEngine = memengine.New()

// Used for testing.
var openStapsdt = stapsdt.Open
