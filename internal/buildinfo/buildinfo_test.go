// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	Version, Commit, BuildDate = "v1.2.0", "abc123", "2026-10-01"
	t.Cleanup(func() { Version, Commit, BuildDate = "dev", "none", "unknown" })
	assert.Equal(t, "version v1.2.0, commit abc123, built 2026-10-01", String())
}
