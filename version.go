// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

// Version is the current release version of the usdt module in use.
func Version() string {
	return "v0.3.0"
}
