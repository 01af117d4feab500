// Package bench drives the external bench_compare executable across the
// (library, workload, size) grid and collects its structured results.
package bench

import "fmt"

// Result is a single successful benchmark measurement, decoded from the
// JSON line bench_compare prints on stdout. Extra fields in the line are
// ignored.
type Result struct {
	Library  string  `json:"library"`
	Workload string  `json:"workload"`
	N        int     `json:"n"`
	Mops     float64 `json:"mops"`
	NsPerOp  float64 `json:"ns_per_op"`
}

// Key identifies the grid cell a result belongs to.
type Key struct {
	Library  string
	Workload string
	N        int
}

// Key returns the grid cell key for the result.
func (r Result) Key() Key {
	return Key{Library: r.Library, Workload: r.Workload, N: r.N}
}

// Valid reports whether the decoded record satisfies the data model:
// identifiers present, n >= 1, throughput and latency non-negative.
func (r Result) Valid() bool {
	return r.Library != "" && r.Workload != "" && r.N >= 1 && r.Mops >= 0 && r.NsPerOp >= 0
}

// Set holds at most one result per grid cell, in insertion order.
type Set struct {
	order []Key
	byKey map[Key]Result
}

// NewSet returns an empty result set.
func NewSet() *Set {
	return &Set{byKey: make(map[Key]Result)}
}

// Add inserts a result. The first result for a cell wins; a duplicate key
// is rejected and Add returns false.
func (s *Set) Add(r Result) bool {
	k := r.Key()
	if _, ok := s.byKey[k]; ok {
		return false
	}
	s.byKey[k] = r
	s.order = append(s.order, k)
	return true
}

// Get looks up the result for a cell.
func (s *Set) Get(library, workload string, n int) (Result, bool) {
	r, ok := s.byKey[Key{Library: library, Workload: workload, N: n}]
	return r, ok
}

// Len returns the number of collected results.
func (s *Set) Len() int {
	return len(s.order)
}

// Results returns all results in insertion order.
func (s *Set) Results() []Result {
	out := make([]Result, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k])
	}
	return out
}

// Sizes returns the distinct sizes actually collected, ascending.
func (s *Set) Sizes() []int {
	seen := make(map[int]bool)
	var sizes []int
	for _, k := range s.order {
		if !seen[k.N] {
			seen[k.N] = true
			sizes = append(sizes, k.N)
		}
	}
	for i := 1; i < len(sizes); i++ {
		for j := i; j > 0 && sizes[j] < sizes[j-1]; j-- {
			sizes[j], sizes[j-1] = sizes[j-1], sizes[j]
		}
	}
	return sizes
}

// FormatSize renders a size as a compact label (64K, 1M, 4.2M).
func FormatSize(n int) string {
	switch {
	case n >= 1000000 && n%1000000 == 0:
		return fmt.Sprintf("%dM", n/1000000)
	case n >= 1000000:
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	case n >= 1000 && n%1000 == 0:
		return fmt.Sprintf("%dK", n/1000)
	case n >= 1000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}
