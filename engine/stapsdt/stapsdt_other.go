// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux || !(amd64 || arm64)

package stapsdt

import "go.opentelemetry.io/usdt/engine"

// Engine is unavailable on this platform.
type Engine struct{}

var _ engine.Engine = (*Engine)(nil)

// Open returns [ErrUnsupported].
func Open(string) (*Engine, error) { return nil, ErrUnsupported }

// Close is a no-op.
func (*Engine) Close() error { return nil }

// CreateProvider always returns nil.
func (*Engine) CreateProvider(string) engine.Provider { return nil }
