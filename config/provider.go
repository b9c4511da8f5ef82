// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Provider provides the initial probe set and updates to it.
type Provider interface {
	// InitialConfig returns the initial probe set.
	InitialConfig(ctx context.Context) ProbeSet
	// Watch returns a channel that receives updates to the probe set.
	Watch() <-chan ProbeSet
	// Shutdown releases any resources held by the provider.
	Shutdown(ctx context.Context) error
}

type staticProvider struct {
	set ProbeSet
}

// NewStaticProvider returns a provider that provides set as the initial probe
// set and never updates it.
func NewStaticProvider(set ProbeSet) Provider {
	return &staticProvider{set: set}
}

func (p *staticProvider) InitialConfig(_ context.Context) ProbeSet {
	return p.set
}

func (p *staticProvider) Watch() <-chan ProbeSet {
	c := make(chan ProbeSet)
	close(c)
	return c
}

func (p *staticProvider) Shutdown(_ context.Context) error {
	return nil
}

// FileProvider provides the probe set of a YAML file and sends a new probe
// set every time the file changes to a valid, different one.
type FileProvider struct {
	path    string
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	initial ProbeSet
	updates chan ProbeSet
	done    chan struct{}

	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ Provider = (*FileProvider)(nil)

// NewFileProvider returns a FileProvider for the file at path. The file must
// contain a valid probe set.
func NewFileProvider(path string, logger *slog.Logger) (*FileProvider, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	initial, err := Load(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, editors replace files rather than write them.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return nil, errors.Join(err, w.Close())
	}

	p := &FileProvider{
		path:    path,
		logger:  logger,
		watcher: w,
		initial: initial,
		updates: make(chan ProbeSet, 1),
		done:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p, nil
}

// InitialConfig returns the probe set read when p was created.
func (p *FileProvider) InitialConfig(_ context.Context) ProbeSet {
	return p.initial
}

// Watch returns the channel of probe set updates. It is closed by Shutdown.
func (p *FileProvider) Watch() <-chan ProbeSet {
	return p.updates
}

// Shutdown stops watching the file.
func (p *FileProvider) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		close(p.done)
		err = p.watcher.Close()
	})

	stopped := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
		return err
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
}

func (p *FileProvider) run() {
	defer p.wg.Done()
	defer close(p.updates)

	current := p.initial
	for {
		select {
		case <-p.done:
			return
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("watch probe set", "path", p.path, "error", err)
		case ev, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != p.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			set, err := Load(p.path)
			if err != nil {
				p.logger.Error("reload probe set", "path", p.path, "error", err)
				continue
			}
			if set.Equal(current) {
				continue
			}
			current = set
			p.logger.Debug("probe set changed", "path", p.path, "probes", len(set.Probes))
			select {
			case p.updates <- set:
			case <-p.done:
				return
			}
		}
	}
}
