package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with the given args and captures
// its combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

// writeStubBench installs a bench_compare stand-in that advertises two
// libraries in its usage text and answers every cell with a fixed result.
func writeStubBench(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench_compare")
	script := `#!/bin/sh
if [ "$1" = "--help" ]; then
  echo "usage: bench_compare --library {matryoshka,std_set} --workload W --size N"
  exit 0
fi
lib=$2
wl=$4
n=$6
echo "{\"library\":\"$lib\",\"workload\":\"$wl\",\"n\":$n,\"mops\":12.50,\"ns_per_op\":80.0}"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}
