// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// LogLevel is the minimum severity written by the default logger.
//
// Its text form is any name [slog.Level] accepts, case-insensitively,
// including offsets such as "info+2" or "error-1".
type LogLevel string

const (
	// LogLevelDebug writes every message.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo writes informational messages and above.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn writes warnings and errors.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError writes only errors.
	LogLevelError LogLevel = "error"
)

var errInvalidLogLevel = errors.New("invalid LogLevel")

func (l LogLevel) String() string { return string(l) }

// Level returns the [slog.Level] l names. An empty or malformed LogLevel is
// [slog.LevelInfo].
func (l LogLevel) Level() slog.Level {
	lvl, err := l.parse()
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func (l LogLevel) parse() (slog.Level, error) {
	var lvl slog.Level
	if l == "" {
		return lvl, fmt.Errorf("%w: empty", errInvalidLogLevel)
	}
	if err := lvl.UnmarshalText([]byte(l)); err != nil {
		return lvl, fmt.Errorf("%w: %q", errInvalidLogLevel, string(l))
	}
	return lvl, nil
}

// MarshalText returns l in lower case.
func (l LogLevel) MarshalText() ([]byte, error) {
	if _, err := l.parse(); err != nil {
		return nil, err
	}
	return []byte(strings.ToLower(string(l))), nil
}

// UnmarshalText sets l from text, returning an error wrapping
// errInvalidLogLevel if slog does not recognize it.
func (l *LogLevel) UnmarshalText(text []byte) error {
	v := LogLevel(strings.ToLower(strings.TrimSpace(string(text))))
	if _, err := v.parse(); err != nil {
		return err
	}
	*l = v
	return nil
}

// ParseLogLevel parses text as a LogLevel.
func ParseLogLevel(text string) (LogLevel, error) {
	var l LogLevel
	err := l.UnmarshalText([]byte(text))
	return l, err
}
