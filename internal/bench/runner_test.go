package bench

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutput(t *testing.T) {
	output := []byte(`bench_compare v1.4 warming up
populating 1048576 keys
{"library":"matryoshka","workload":"rand_insert","n":1048576,"mops":12.34,"ns_per_op":81.0,"rss_bytes":123456}
trailing noise
`)
	res, ok := ParseOutput(output)

	require.True(t, ok)
	assert.Equal(t, "matryoshka", res.Library)
	assert.Equal(t, "rand_insert", res.Workload)
	assert.Equal(t, 1048576, res.N)
	assert.Equal(t, 12.34, res.Mops)
	assert.Equal(t, 81.0, res.NsPerOp)
}

func TestParseOutput_NoResult(t *testing.T) {
	cases := map[string]string{
		"no json line":    "all text\nno records here\n",
		"empty output":    "",
		"malformed json":  "{\"library\": truncated\n",
		"invalid record":  `{"library":"x","workload":"w","n":0,"mops":1.0,"ns_per_op":1.0}`,
		"negative fields": `{"library":"x","workload":"w","n":10,"mops":-2.0,"ns_per_op":1.0}`,
	}
	for name, output := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := ParseOutput([]byte(output))
			assert.False(t, ok)
		})
	}
}

func TestParseOutput_FirstStructuredLineWins(t *testing.T) {
	// Only the first '{' line is decoded; a later well-formed record does
	// not rescue a malformed first one.
	output := []byte(`{"library": broken
{"library":"x","workload":"w","n":10,"mops":1.0,"ns_per_op":1.0}
`)
	_, ok := ParseOutput(output)
	assert.False(t, ok)
}

// writeStubBench writes a shell script standing in for bench_compare.
func writeStubBench(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench_compare")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func TestRunGrid_CollectsAndSurvivesFailures(t *testing.T) {
	// The stub fails for std_set and answers every other cell.
	bin := writeStubBench(t, `
lib=$2; wl=$4; n=$6
if [ "$lib" = "std_set" ]; then
  echo "allocation failure" >&2
  exit 1
fi
echo "warmup"
echo "{\"library\":\"$lib\",\"workload\":\"$wl\",\"n\":$n,\"mops\":4.00,\"ns_per_op\":250.0}"
`)

	r := NewGridRunner(bin)
	r.Timeout = 10 * time.Second

	set := r.RunGrid(context.Background(),
		[]string{"matryoshka", "std_set"},
		[]string{"seq_insert", "rand_insert"},
		[]int{1024, 4096})

	// 8 cells, 4 failed, no abort.
	assert.Equal(t, 4, set.Len())
	_, ok := set.Get("matryoshka", "rand_insert", 4096)
	assert.True(t, ok)
	_, ok = set.Get("std_set", "seq_insert", 1024)
	assert.False(t, ok)

	for _, res := range set.Results() {
		assert.GreaterOrEqual(t, res.Mops, 0.0)
	}
}

func TestRunCell_Timeout(t *testing.T) {
	bin := writeStubBench(t, "sleep 30\n")

	r := NewGridRunner(bin)
	r.Timeout = 100 * time.Millisecond

	_, ok := r.RunCell(context.Background(), "matryoshka", "mixed", 1024)
	assert.False(t, ok)
}

func TestRunCell_MissingBinary(t *testing.T) {
	r := NewGridRunner("/nonexistent/bench_compare")
	r.Timeout = time.Second

	_, ok := r.RunCell(context.Background(), "matryoshka", "mixed", 1024)
	assert.False(t, ok)
}
