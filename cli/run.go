// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"go.opentelemetry.io/usdt"
	"go.opentelemetry.io/usdt/config"
	"go.opentelemetry.io/usdt/engine/memengine"
)

type runOptions struct {
	Config   string
	Interval time.Duration
	Count    int
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load a probe set and fire its probes periodically",
		Long: `Load the probe set file, print the process ID, and fire every probe once per
interval with generated arguments until interrupted.

The probe set is reloaded when the file changes. With the in-process engine
("--engine mem") a tracer is attached to every probe and fired events are
printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pOpts, err := rootOpts.providerOptions()
			if err != nil {
				return err
			}
			cp, err := config.NewFileProvider(opts.Config, rootOpts.logger)
			if err != nil {
				return err
			}
			r := &runner{
				logger:   rootOpts.logger,
				out:      cmd.OutOrStdout(),
				opts:     pOpts,
				trace:    rootOpts.Engine == engineMem,
				interval: opts.Interval,
				count:    opts.Count,
			}
			err = r.run(cmd.Context(), cp)
			return errors.Join(err, cp.Shutdown(context.Background()))
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "probes.yaml", "probe set file")
	cmd.Flags().DurationVar(&opts.Interval, "interval", time.Second, "time between firings")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "number of firings, 0 fires until interrupted")

	return cmd
}

type runner struct {
	logger   *slog.Logger
	out      io.Writer
	opts     []usdt.Option
	trace    bool
	interval time.Duration
	count    int

	provider *usdt.Provider
	tracers  map[string]*memengine.Tracer
	round    uint64
}

func (r *runner) run(ctx context.Context, cp config.Provider) error {
	if err := r.start(cp.InitialConfig(ctx)); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "PID %d\n", os.Getpid())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	updates := cp.Watch()
	for r.count <= 0 || r.round < uint64(r.count) {
		select {
		case <-ctx.Done():
			return r.stop()
		case set, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			r.logger.Info("probe set changed, reloading", "provider", set.Provider)
			if err := r.stop(); err != nil {
				r.logger.Error("failed to stop provider", "error", err)
			}
			if err := r.start(set); err != nil {
				return err
			}
		case <-ticker.C:
			r.fire()
		}
	}
	return r.stop()
}

func (r *runner) start(set config.ProbeSet) error {
	p, err := set.Build(r.opts...)
	if err != nil {
		return err
	}
	if err := p.Load(); err != nil {
		return errors.Join(err, p.Close())
	}

	var tracers map[string]*memengine.Tracer
	if r.trace {
		if tracers, err = attachTracers(p); err != nil {
			return errors.Join(err, p.Close())
		}
	}

	r.provider, r.tracers = p, tracers
	r.logger.Info("provider loaded", "provider", p.Name(), "probes", len(p.Probes()))
	return nil
}

// Used for testing.
var lookupMemProvider = memEngine.Provider

// attachTracers attaches a tracer to every probe of p, which must live in the
// in-process engine.
func attachTracers(p *usdt.Provider) (map[string]*memengine.Tracer, error) {
	h, ok := lookupMemProvider(p.Name())
	if !ok {
		return nil, fmt.Errorf("provider %s not found in the in-process engine", p.Name())
	}
	tracers := make(map[string]*memengine.Tracer)
	for _, pr := range p.Probes() {
		t, err := h.Trace(pr.Name(), memengine.WithStrings(stringPositions(pr.Signature())...))
		if err != nil {
			for _, t := range tracers {
				t.Detach()
			}
			return nil, err
		}
		tracers[pr.Name()] = t
	}
	return tracers, nil
}

func (r *runner) stop() error {
	if r.provider == nil {
		return nil
	}
	err := r.provider.Close()
	r.provider = nil
	r.tracers = nil
	return err
}

func (r *runner) fire() {
	r.round++
	for _, pr := range r.provider.Probes() {
		sig := pr.Signature()
		args := make([]any, pr.Arity())
		for i, t := range sig {
			args[i] = sampleValue(t, pr.Name(), r.round)
		}
		enabled, err := pr.Fire(args...)
		if err != nil {
			r.logger.Error("failed to fire probe", "probe", pr.Name(), "error", err)
			continue
		}
		r.logger.Debug("fired probe", "probe", pr.Name(), "enabled", enabled)

		if t, ok := r.tracers[pr.Name()]; ok {
			for _, ev := range t.Events() {
				printEvent(r.out, pr, ev)
			}
		}
	}
}

// printEvent prints ev the way a tracer aware of the probe signature would.
func printEvent(w io.Writer, pr *usdt.Probe, ev memengine.Event) {
	fmt.Fprint(w, pr.String())
	sig := pr.Signature()
	for i, v := range ev.Values {
		switch {
		case sig[i] == usdt.StringArg:
			fmt.Fprintf(w, " %q", ev.Strings[i])
		case sig[i] == usdt.FloatArg:
			fmt.Fprintf(w, " %g", math.Float64frombits(ev.Words[i]))
		case sig[i] == usdt.IntegerArg:
			fmt.Fprintf(w, " %d", int64(ev.Words[i]))
		default:
			fmt.Fprintf(w, " %v", v)
		}
	}
	fmt.Fprintln(w)
}

func stringPositions(sig []usdt.ArgType) []int {
	var pos []int
	for i, t := range sig {
		if t == usdt.StringArg {
			pos = append(pos, i)
		}
	}
	return pos
}

// sampleValue returns the n-th generated value for an argument of type t.
func sampleValue(t usdt.ArgType, probe string, n uint64) any {
	switch t {
	case usdt.StringArg:
		return fmt.Sprintf("%s-%d", probe, n)
	case usdt.FloatArg:
		return float64(n) / 2
	case usdt.IntegerArg:
		return n
	}
	// Raw words wrap within their width.
	w := t.Width()
	if w < 0 {
		limit := uint64(1) << (8*-w - 1)
		return int64(n % limit)
	}
	if w >= 8 {
		return n
	}
	return n % (uint64(1) << (8 * w))
}
