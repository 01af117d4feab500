package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treebench/internal/bench"
	"treebench/internal/config"
	"treebench/internal/perf"
)

func resultSet(results ...bench.Result) *bench.Set {
	s := bench.NewSet()
	for _, r := range results {
		s.Add(r)
	}
	return s
}

func pair(name string, wl string, n int, mops float64) bench.Result {
	return bench.Result{Library: name, Workload: wl, N: n, Mops: mops, NsPerOp: 1000 / (mops + 1)}
}

// twoLibCatalog is a minimal catalog for focused scenarios.
func twoLibCatalog() config.Catalog {
	return config.Catalog{
		Primary: "A",
		Libraries: []config.Library{
			{Name: "A", Short: "a", Label: "Library A"},
			{Name: "B", Short: "b", Label: "Library B"},
		},
		Workloads:       []config.Workload{{Name: "seq_insert", Label: "Sequential Insert"}},
		GapPair:         [2]string{"A", "B"},
		HotSymbols:      []string{"hot_path"},
		RefSize:         1048576,
		CounterWorkload: "seq_insert",
	}
}

func TestBuild_EndToEndRatio(t *testing.T) {
	cat := twoLibCatalog()
	in := Input{
		Results: resultSet(
			pair("A", "seq_insert", 1024, 4.00),
			pair("B", "seq_insert", 1024, 2.00),
		),
		Libraries: []string{"A", "B"},
		Sizes:     []int{1024},
	}

	ctx := Build(in, cat)
	assert.Equal(t, "2.00", ctx["ratio_mat_b_seq_insert"])
	assert.Equal(t, "4.00", ctx["a_seq_insert_mops"])
	assert.Equal(t, "2.00", ctx["b_seq_insert_mops"])
}

func TestBuild_FailedCompetitorCellDegradesToNA(t *testing.T) {
	cat := twoLibCatalog()
	in := Input{
		Results:   resultSet(pair("A", "seq_insert", 1024, 4.00)),
		Libraries: []string{"A", "B"},
		Sizes:     []int{1024},
	}

	ctx := Build(in, cat)
	assert.Equal(t, NA, ctx["ratio_mat_b_seq_insert"])
	assert.Equal(t, "4.00", ctx["a_seq_insert_mops"])
	assert.Equal(t, NA, ctx["b_seq_insert_mops"])
}

func TestBuild_RatioGuards(t *testing.T) {
	cat := twoLibCatalog()
	in := Input{
		Results: resultSet(
			pair("A", "seq_insert", 1048576, 10.0),
			pair("B", "seq_insert", 1048576, 0.0),
		),
	}

	ctx := Build(in, cat)
	// Zero competitor throughput is a division hazard, not a measurement.
	assert.Equal(t, NA, ctx["ratio_mat_b_seq_insert"])
}

func TestBuild_ScalingDegradation(t *testing.T) {
	cat := twoLibCatalog()
	in := Input{
		Results: resultSet(
			pair("A", "seq_insert", 1024, 50.0),
			pair("A", "seq_insert", 1048576, 10.0),
		),
	}

	ctx := Build(in, cat)
	assert.Equal(t, "5.0", ctx["scale_a_seq_insert"])
	assert.Equal(t, NA, ctx["scale_b_seq_insert"])
}

func TestBuild_ReferenceSizeSelection(t *testing.T) {
	cat := config.DefaultCatalog()

	t.Run("mid-range size preferred when collected", func(t *testing.T) {
		in := Input{Results: resultSet(
			pair("matryoshka", "rand_insert", 65536, 30.0),
			pair("matryoshka", "rand_insert", 1048576, 20.0),
			pair("matryoshka", "rand_insert", 16777216, 8.0),
		)}
		ctx := Build(in, cat)
		assert.Equal(t, "20.00", ctx["mat_rand_insert_mops"])
		assert.Equal(t, "8.00", ctx["mat_rand_insert_mops_large"])
		assert.Equal(t, "30.00", ctx["mat_rand_insert_mops_small"])
	})

	t.Run("falls back to maximum collected size", func(t *testing.T) {
		in := Input{Results: resultSet(
			pair("matryoshka", "rand_insert", 65536, 30.0),
			pair("matryoshka", "rand_insert", 16777216, 8.0),
		)}
		ctx := Build(in, cat)
		assert.Equal(t, "8.00", ctx["mat_rand_insert_mops"])
		assert.Equal(t, "16777216", ctx["largest_n"])
		assert.Equal(t, "65536", ctx["smallest_n"])
	})

	t.Run("nothing collected resolves everything to NA", func(t *testing.T) {
		ctx := Build(Input{Results: bench.NewSet()}, cat)
		assert.Equal(t, NA, ctx["mat_rand_insert_mops"])
		assert.Equal(t, NA, ctx["mat_rand_insert_mops_large"])
		assert.Equal(t, NA, ctx["insert_slowdown_factor"])
		assert.Equal(t, NA, ctx["best_competitor_rand_insert_mops"])
		assert.Equal(t, NA, ctx["largest_n"])
		assert.Equal(t, NA, ctx["smallest_n"])
	})
}

func TestBuild_SlowdownFactors(t *testing.T) {
	cat := config.DefaultCatalog()
	in := Input{
		Results: resultSet(
			pair("matryoshka", "rand_insert", 16777216, 5.0),
			pair("std_set", "rand_insert", 16777216, 6.0),
			pair("tlx_btree", "rand_insert", 16777216, 15.0),
		),
		Libraries: []string{"matryoshka", "std_set", "tlx_btree"},
	}

	ctx := Build(in, cat)
	assert.Equal(t, "3.0", ctx["insert_slowdown_factor"])
	// No rand_delete results at all.
	assert.Equal(t, NA, ctx["delete_slowdown_factor"])
	// Reference falls back to the only collected size.
	assert.Equal(t, "15.00", ctx["best_competitor_rand_insert_mops"])
}

func TestBuild_GapThreeWayOutcome(t *testing.T) {
	cat := config.DefaultCatalog()

	t.Run("both present", func(t *testing.T) {
		in := Input{Results: resultSet(
			pair("tlx_btree", "rand_insert", 4194304, 12.0),
			pair("abseil_btree", "rand_insert", 4194304, 9.0),
		)}
		ctx := Build(in, cat)
		assert.Equal(t, "25", ctx["btree_insert_gap_pct"])
	})

	t.Run("first of pair only", func(t *testing.T) {
		in := Input{Results: resultSet(
			pair("tlx_btree", "rand_insert", 4194304, 12.0),
		)}
		ctx := Build(in, cat)
		assert.Equal(t, "N/A (only TLX btree_set available)", ctx["btree_insert_gap_pct"])
	})

	t.Run("second of pair only", func(t *testing.T) {
		in := Input{Results: resultSet(
			pair("abseil_btree", "rand_insert", 4194304, 9.0),
		)}
		ctx := Build(in, cat)
		assert.Equal(t, NA, ctx["btree_insert_gap_pct"])
	})

	t.Run("neither present", func(t *testing.T) {
		ctx := Build(Input{Results: bench.NewSet()}, cat)
		assert.Equal(t, NA, ctx["btree_insert_gap_pct"])
	})
}

func counterSet(values map[string]int64, uncounted ...string) perf.CounterSet {
	set := perf.CounterSet{}
	for k, v := range values {
		v := v
		set[k] = &v
	}
	for _, k := range uncounted {
		set[k] = nil
	}
	return set
}

func TestBuild_CounterRows(t *testing.T) {
	cat := config.DefaultCatalog()
	in := Input{
		Results: bench.NewSet(),
		Counters: map[string]perf.CounterSet{
			"matryoshka": counterSet(map[string]int64{
				"cache-misses":     58,
				"cache-references": 1000,
				"dTLB-load-misses": 3,
				"dTLB-loads":       2000,
				"instructions":     4000,
				"cycles":           2000,
			}, "LLC-loads", "LLC-load-misses"),
		},
	}

	ctx := Build(in, cat)
	assert.Equal(t, "5.8", ctx["hw_mat_cache_miss_pct"])
	assert.Equal(t, "1.5", ctx["hw_mat_dtlb_miss_per_1k"])
	assert.Equal(t, "2.00", ctx["hw_mat_ipc"])
	assert.Equal(t, "2.00", ctx["mat_ipc"])
	// Uncounted events guard to NA, never zero.
	assert.Equal(t, NA, ctx["hw_mat_llc_miss_pct"])
	assert.Equal(t, NA, ctx["mat_llc_miss_per_1k"])
	// Libraries without counter data still have stable keys.
	assert.Equal(t, NA, ctx["hw_stdset_cache_miss_pct"])
	assert.Equal(t, NA, ctx["stdset_dtlb_miss_per_1k"])
}

func TestBuild_CounterZeroReferenceGuard(t *testing.T) {
	cat := config.DefaultCatalog()
	in := Input{
		Results: bench.NewSet(),
		Counters: map[string]perf.CounterSet{
			"matryoshka": counterSet(map[string]int64{
				"branch-misses": 10,
				"branches":      0,
			}),
		},
	}

	ctx := Build(in, cat)
	assert.Equal(t, NA, ctx["hw_mat_branch_miss_pct"])
}

func TestBuild_ProfileAttribution(t *testing.T) {
	cat := config.DefaultCatalog()

	t.Run("first matching symbol wins", func(t *testing.T) {
		in := Input{
			Results: bench.NewSet(),
			Profile: []perf.Entry{
				{Overhead: 50.0, Symbol: "memcpy"},
				{Overhead: 41.6, Symbol: "mt_page_insert"},
				{Overhead: 12.0, Symbol: "mt_page_delete"},
			},
		}
		ctx := Build(in, cat)
		assert.Equal(t, "42", ctx["pct_leaf_build"])
	})

	t.Run("no match yields NA", func(t *testing.T) {
		in := Input{
			Results: bench.NewSet(),
			Profile: []perf.Entry{{Overhead: 50.0, Symbol: "memcpy"}},
		}
		ctx := Build(in, cat)
		assert.Equal(t, NA, ctx["pct_leaf_build"])
	})

	t.Run("empty profile yields NA", func(t *testing.T) {
		ctx := Build(Input{Results: bench.NewSet()}, cat)
		assert.Equal(t, NA, ctx["pct_leaf_build"])
	})
}

func TestBuild_ConfiguredGridFiltersStraySizes(t *testing.T) {
	cat := twoLibCatalog()
	in := Input{
		Results: resultSet(
			pair("A", "seq_insert", 1024, 4.0),
			pair("A", "seq_insert", 999, 40.0), // outside the configured grid
		),
		Sizes: []int{1024},
	}

	ctx := Build(in, cat)
	assert.Equal(t, "4.00", ctx["a_seq_insert_mops"])
	assert.Equal(t, "1024", ctx["largest_n"])
}

func TestBuild_Deterministic(t *testing.T) {
	cat := config.DefaultCatalog()
	in := Input{
		Results: resultSet(
			pair("matryoshka", "rand_insert", 1048576, 12.0),
			pair("std_set", "rand_insert", 1048576, 3.0),
		),
		Libraries: []string{"matryoshka", "std_set"},
	}

	first := Build(in, cat)
	second := Build(in, cat)
	require.Equal(t, first, second)

	// The key namespace covers every catalog library/workload combination.
	for _, lib := range cat.Libraries {
		for _, wl := range cat.Workloads {
			assert.Contains(t, first, lib.Short+"_"+wl.Name+"_mops")
			assert.Contains(t, first, "scale_"+lib.Short+"_"+wl.Name)
		}
	}
}
