package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeCommand(t *testing.T) {
	bin := writeStubBench(t)

	out, err := executeCommand(t, "probe", "--bin", bin)
	require.NoError(t, err)

	assert.Contains(t, out, "treebench probe")
	assert.Contains(t, out, "matryoshka")
	assert.Contains(t, out, "available")
	assert.Contains(t, out, "perf:")
}

func TestProbeCommandMissingBinary(t *testing.T) {
	out, err := executeCommand(t, "probe", "--bin", filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Contains(t, out, "missing at")
}
