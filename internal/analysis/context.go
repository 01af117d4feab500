// Package analysis derives the presentation-ready metric context from raw
// benchmark results, hardware counters, and profile rankings. It invokes
// nothing external and is deterministic in its inputs: the same results
// always produce the same context.
package analysis

import (
	"math"
	"strconv"
	"strings"

	"treebench/internal/bench"
	"treebench/internal/config"
	"treebench/internal/perf"
)

// NA is the sentinel for any metric whose inputs are missing or whose
// denominator is zero. A missing measurement must never render as a
// number, least of all zero.
const NA = "N/A"

// Input carries everything the engine consumes. Counters and Profile are
// optional; missing collections degrade the dependent keys to NA.
type Input struct {
	Results *bench.Set
	// Counters maps library name to the counters collected for it.
	Counters map[string]perf.CounterSet
	// Profile is the ranked cycle-sampling symbol list.
	Profile []perf.Entry
	// Libraries restricts which libraries were part of this run; keys are
	// still emitted for the full catalog so the context stays complete.
	Libraries []string
	// Sizes is the configured grid; collected cells outside it are ignored.
	Sizes []int
}

// Build computes the flat analysis context. Every key in the documented
// namespace is always present; values are fixed-precision formatted
// numbers or NA.
func Build(in Input, cat config.Catalog) map[string]string {
	ctx := make(map[string]string)

	collected := collectedSizes(in)
	ref, largest, smallest, have := referenceSizes(collected, cat.RefSize)

	mops := func(lib, wl string, n int) (float64, bool) {
		if !have {
			return 0, false
		}
		r, ok := in.Results.Get(lib, wl, n)
		if !ok {
			return 0, false
		}
		return r.Mops, true
	}

	// Per-(library, workload) throughput at reference, largest, and
	// smallest sizes.
	for _, lib := range cat.Libraries {
		for _, wl := range cat.Workloads {
			base := lib.Short + "_" + wl.Name + "_mops"
			ctx[base] = fmtMops(mops(lib.Name, wl.Name, ref))
			ctx[base+"_large"] = fmtMops(mops(lib.Name, wl.Name, largest))
			ctx[base+"_small"] = fmtMops(mops(lib.Name, wl.Name, smallest))
		}
	}

	// Competitor pool for best/slowdown metrics is the run's library list;
	// key namespaces below still cover the whole catalog.
	pool := competitorPool(in, cat)

	// Best non-primary throughput for rand_insert at the reference size.
	ctx["best_competitor_rand_insert_mops"] = NA
	if best, ok := bestCompetitor(pool, "rand_insert", ref, mops); ok {
		ctx["best_competitor_rand_insert_mops"] = fmt2(best)
	}

	// Slowdown factors: best competitor over primary at the largest size.
	ctx["insert_slowdown_factor"] = slowdownFactor(pool, cat, "rand_insert", largest, mops)
	ctx["delete_slowdown_factor"] = slowdownFactor(pool, cat, "rand_delete", largest, mops)

	// Primary-to-competitor ratios per workload at the largest size.
	for _, wl := range cat.Workloads {
		prim, primOK := mops(cat.Primary, wl.Name, largest)
		for _, comp := range cat.Competitors() {
			key := "ratio_mat_" + cat.ShortName(comp) + "_" + wl.Name
			other, otherOK := mops(comp, wl.Name, largest)
			if primOK && otherOK && prim > 0 && other > 0 {
				ctx[key] = fmt2(prim / other)
			} else {
				ctx[key] = NA
			}
		}
	}

	// Scaling degradation: smallest-size over largest-size throughput.
	// Values near 1 scale cleanly; large values degrade with N.
	for _, lib := range cat.Libraries {
		for _, wl := range cat.Workloads {
			key := "scale_" + lib.Short + "_" + wl.Name
			vs, sOK := mops(lib.Name, wl.Name, smallest)
			vl, lOK := mops(lib.Name, wl.Name, largest)
			if sOK && lOK && vs > 0 && vl > 0 {
				ctx[key] = fmt1(vs / vl)
			} else {
				ctx[key] = NA
			}
		}
	}

	ctx["btree_insert_gap_pct"] = gapPct(cat, largest, mops)

	if have {
		ctx["largest_n"] = strconv.Itoa(largest)
		ctx["smallest_n"] = strconv.Itoa(smallest)
	} else {
		ctx["largest_n"] = NA
		ctx["smallest_n"] = NA
	}

	counterKeys(ctx, in.Counters, cat)

	// Profile attribution: overhead of the first ranked symbol matching a
	// designated hot-symbol substring.
	ctx["pct_leaf_build"] = NA
	for _, e := range in.Profile {
		if matchesAny(e.Symbol, cat.HotSymbols) {
			ctx["pct_leaf_build"] = fmt0(e.Overhead)
			break
		}
	}

	return ctx
}

// collectedSizes returns the distinct sizes present in the result set,
// ascending, restricted to the configured grid when one is given.
func collectedSizes(in Input) []int {
	if in.Results == nil {
		return nil
	}
	sizes := in.Results.Sizes()
	if len(in.Sizes) == 0 {
		return sizes
	}
	allowed := make(map[int]bool, len(in.Sizes))
	for _, s := range in.Sizes {
		allowed[s] = true
	}
	var out []int
	for _, s := range sizes {
		if allowed[s] {
			out = append(out, s)
		}
	}
	return out
}

// referenceSizes selects the reference point: the canonical mid-range size
// when collected, else the maximum collected size, else the minimum. With
// nothing collected there is no reference and every size-dependent metric
// degrades to NA.
func referenceSizes(collected []int, refSize int) (ref, largest, smallest int, have bool) {
	if len(collected) == 0 {
		return 0, 0, 0, false
	}
	smallest = collected[0]
	largest = collected[len(collected)-1]
	ref = largest
	for _, s := range collected {
		if s == refSize {
			ref = refSize
			break
		}
	}
	return ref, largest, smallest, true
}

// competitorPool returns the non-primary libraries of this run, falling
// back to the full catalog when the run's list is unknown.
func competitorPool(in Input, cat config.Catalog) []string {
	libs := in.Libraries
	if len(libs) == 0 {
		libs = cat.LibraryNames()
	}
	var out []string
	for _, l := range libs {
		if l != cat.Primary {
			out = append(out, l)
		}
	}
	return out
}

func bestCompetitor(pool []string, workload string, n int, mops func(string, string, int) (float64, bool)) (float64, bool) {
	best, found := 0.0, false
	for _, comp := range pool {
		if v, ok := mops(comp, workload, n); ok {
			found = true
			if v > best {
				best = v
			}
		}
	}
	return best, found
}

func slowdownFactor(pool []string, cat config.Catalog, workload string, largest int, mops func(string, string, int) (float64, bool)) string {
	prim, ok := mops(cat.Primary, workload, largest)
	if !ok || prim <= 0 {
		return NA
	}
	best, found := bestCompetitor(pool, workload, largest, mops)
	if !found {
		return NA
	}
	return fmt1(best / prim)
}

// gapPct preserves the three-way outcome: both pair members measured, only
// the first, or neither.
func gapPct(cat config.Catalog, largest int, mops func(string, string, int) (float64, bool)) string {
	first, second := cat.GapPair[0], cat.GapPair[1]
	va, aOK := mops(first, "rand_insert", largest)
	vb, bOK := mops(second, "rand_insert", largest)

	switch {
	case aOK && va > 0 && bOK && vb > 0:
		gap := math.Abs(va-vb) / math.Max(va, vb) * 100
		return fmt0(gap)
	case aOK && va > 0:
		return NA + " (only " + cat.LibraryLabel(first) + " available)"
	default:
		return NA
	}
}

// counterKeys derives the per-library hardware counter rows. Keys exist
// for the whole catalog; libraries without counters get NA values.
func counterKeys(ctx map[string]string, counters map[string]perf.CounterSet, cat config.Catalog) {
	for _, lib := range cat.Libraries {
		c := counters[lib.Name]
		prefix := "hw_" + lib.Short + "_"
		ctx[prefix+"cache_miss_pct"] = ratePct(c, "cache-misses", "cache-references")
		ctx[prefix+"l1d_miss_pct"] = ratePct(c, "L1-dcache-load-misses", "L1-dcache-loads")
		ctx[prefix+"llc_miss_pct"] = ratePct(c, "LLC-load-misses", "LLC-loads")
		ctx[prefix+"dtlb_miss_per_1k"] = ratePerThousand(c, "dTLB-load-misses", "dTLB-loads")
		ctx[prefix+"branch_miss_pct"] = ratePct(c, "branch-misses", "branches")
		ctx[prefix+"ipc"] = ipc(c)
	}

	// Scalar aliases kept for the renderer's prose sections.
	ctx["mat_ipc"] = ctx["hw_mat_ipc"]
	ctx["mat_dtlb_miss_per_1k"] = ctx["hw_mat_dtlb_miss_per_1k"]
	ctx["stdset_dtlb_miss_per_1k"] = ctx["hw_stdset_dtlb_miss_per_1k"]
	ctx["mat_llc_miss_per_1k"] = ratePerThousand(counters[cat.Primary], "LLC-load-misses", "LLC-loads")
	ctx["stdset_llc_miss_per_1k"] = ratePerThousand(counters["std_set"], "LLC-load-misses", "LLC-loads")
}

// ratePct formats 100 * miss / ref; both counters must be counted and the
// reference must be positive.
func ratePct(c perf.CounterSet, missEvent, refEvent string) string {
	m, mOK := c.Value(missEvent)
	r, rOK := c.Value(refEvent)
	if !mOK || !rOK || r <= 0 {
		return NA
	}
	return fmt1(100.0 * float64(m) / float64(r))
}

// ratePerThousand formats 1000 * miss / ref under the same guards.
func ratePerThousand(c perf.CounterSet, missEvent, refEvent string) string {
	m, mOK := c.Value(missEvent)
	r, rOK := c.Value(refEvent)
	if !mOK || !rOK || r <= 0 {
		return NA
	}
	return fmt1(1000.0 * float64(m) / float64(r))
}

func ipc(c perf.CounterSet) string {
	ins, iOK := c.Value("instructions")
	cyc, cOK := c.Value("cycles")
	if !iOK || !cOK || cyc <= 0 {
		return NA
	}
	return fmt2(float64(ins) / float64(cyc))
}

func matchesAny(symbol string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(symbol, sub) {
			return true
		}
	}
	return false
}

func fmtMops(v float64, ok bool) string {
	if !ok {
		return NA
	}
	return fmt2(v)
}

func fmt0(v float64) string { return strconv.FormatFloat(v, 'f', 0, 64) }
func fmt1(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }
func fmt2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
