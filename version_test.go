// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package usdt

import (
	"testing"

	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionSemver(t *testing.T) {
	v, err := version.NewSemver(Version())
	require.NoError(t, err, "version is not semver: %s", Version())
	assert.Equal(t, Version(), "v"+v.String())
}
