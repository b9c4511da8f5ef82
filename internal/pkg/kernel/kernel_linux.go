// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package kernel

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/hashicorp/go-version"
	"golang.org/x/sys/unix"
)

// Injectable for tests.
var (
	unameFn      = unix.Uname
	lockdownPath = "/sys/kernel/security/lockdown"
)

func kernelVersion() *version.Version {
	var uname unix.Utsname
	if err := unameFn(&uname); err != nil {
		return nil
	}
	return parseRelease(unix.ByteSliceToString(uname.Release[:]))
}

// parseRelease parses the leading "major.minor" of a kernel release string
// such as "6.5.0-9-generic".
func parseRelease(release string) *version.Version {
	var (
		values    [2]int
		value, vi int
		digits    bool
	)
	for _, c := range release + "\x00" {
		if '0' <= c && c <= '9' {
			value = value*10 + int(c-'0')
			digits = true
			continue
		}
		if !digits {
			return nil
		}
		values[vi] = value
		vi++
		if vi == len(values) || c != '.' {
			break
		}
		value, digits = 0, false
	}
	if vi == 0 {
		return nil
	}
	return version.Must(version.NewVersion(fmt.Sprintf("%d.%d", values[0], values[1])))
}

func lockdown() LockdownMode {
	data, err := os.ReadFile(lockdownPath)
	if errors.Is(err, fs.ErrNotExist) {
		return LockdownNone
	}
	if err != nil {
		return LockdownIntegrity
	}
	return parseLockdown(string(data))
}

func parseLockdown(content string) LockdownMode {
	line, _, _ := strings.Cut(content, "\n")
	switch {
	case line == "":
		return LockdownIntegrity
	case strings.Contains(line, "[none]"):
		return LockdownNone
	case strings.Contains(line, "[integrity]"):
		return LockdownIntegrity
	case strings.Contains(line, "[confidentiality]"):
		return LockdownConfidentiality
	}
	return LockdownOther
}
