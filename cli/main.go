// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package main provides the usdt command, which defines USDT probes from a
// probe set file and fires them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/usdt"
)

// envLogLevelKey is the key for the environment variable value containing the
// log level.
const envLogLevelKey = "USDT_LOG_LEVEL"

// newLogger returns a logger writing JSON to stderr at the level named by
// lvlStr, or by USDT_LOG_LEVEL when lvlStr is empty. A malformed level is
// reported on the returned logger, which then logs at info.
func newLogger(lvlStr string) *slog.Logger {
	if lvlStr == "" {
		lvlStr = os.Getenv(envLogLevelKey)
	}

	var (
		level usdt.LogLevel
		err   error
	)
	if lvlStr != "" {
		level, err = usdt.ParseLogLevel(lvlStr)
	}

	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     level.Level(),
	})
	logger := slog.New(h)
	if err != nil {
		logger.Error("failed to parse log level", "error", err, "log-level", lvlStr)
	}
	return logger
}

func main() {
	// Trap Ctrl+C and SIGTERM and cancel the context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
