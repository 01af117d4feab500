package config

// Library describes one benchmarked tree implementation as presented in
// reports: the identifier passed to bench_compare, a short key used in the
// analysis context namespace, and display metadata for the renderer.
type Library struct {
	Name        string
	Short       string
	Label       string
	Color       string
	Description string
}

// Workload describes one benchmark workload.
type Workload struct {
	Name  string
	Label string
}

// Catalog is the immutable lookup configuration injected into the grid
// runner, perf collectors, and analysis engine. Components never reach for
// package-level state; they receive a Catalog.
type Catalog struct {
	Primary   string
	Libraries []Library
	Workloads []Workload

	// Hardware events requested from perf stat, in request order.
	Events []string

	// Symbol substrings attributed to leaf page maintenance in the
	// profile ranking; first ranked match wins.
	HotSymbols []string

	// GapPair names the two competitor libraries compared by
	// btree_insert_gap_pct, in precedence order.
	GapPair [2]string

	// RefSize is the canonical mid-range size preferred as the analysis
	// reference point when it was actually collected.
	RefSize int

	// CounterWorkload is the workload counters and profiles are scoped to.
	CounterWorkload string
}

// DefaultCatalog returns the catalog for the Matryoshka bench_compare suite.
func DefaultCatalog() Catalog {
	return Catalog{
		Primary: "matryoshka",
		Libraries: []Library{
			{Name: "matryoshka", Short: "mat", Label: "Matryoshka B+ tree", Color: "#2980b9",
				Description: "B+ tree with nested CL sub-tree leaves, SIMD search, hugepage arena"},
			{Name: "std_set", Short: "stdset", Label: "std::set (RB tree)", Color: "#e74c3c",
				Description: "Red-black tree (libstdc++), pointer-chasing, 40-48 B/node"},
			{Name: "tlx_btree", Short: "tlx", Label: "TLX btree_set", Color: "#8e44ad",
				Description: "Cache-conscious B+ tree, sorted-array leaves (B~128)"},
			{Name: "libart", Short: "art", Label: "libart (ART)", Color: "#f39c12",
				Description: "Adaptive Radix Tree, 4-byte keys, no predecessor search"},
			{Name: "abseil_btree", Short: "abseil", Label: "Abseil btree_set", Color: "#27ae60",
				Description: "Google B-tree, sorted-array leaves (B~256)"},
		},
		Workloads: []Workload{
			{Name: "seq_insert", Label: "Sequential Insert"},
			{Name: "rand_insert", Label: "Random Insert"},
			{Name: "rand_delete", Label: "Random Delete"},
			{Name: "mixed", Label: "Mixed Insert/Delete"},
			{Name: "ycsb_a", Label: "YCSB-A (95% write)"},
			{Name: "ycsb_b", Label: "YCSB-B (50% delete)"},
			{Name: "search_after_churn", Label: "Search After Churn"},
		},
		Events: []string{
			"cache-misses",
			"cache-references",
			"L1-dcache-load-misses",
			"L1-dcache-loads",
			"LLC-load-misses",
			"LLC-loads",
			"dTLB-load-misses",
			"dTLB-loads",
			"branch-misses",
			"branches",
			"instructions",
			"cycles",
		},
		HotSymbols:      []string{"mt_page_insert", "mt_page_delete"},
		GapPair:         [2]string{"tlx_btree", "abseil_btree"},
		RefSize:         1048576,
		CounterWorkload: "rand_insert",
	}
}

// LibraryNames returns the library identifiers in catalog order.
func (c Catalog) LibraryNames() []string {
	names := make([]string, len(c.Libraries))
	for i, l := range c.Libraries {
		names[i] = l.Name
	}
	return names
}

// WorkloadNames returns the workload identifiers in catalog order.
func (c Catalog) WorkloadNames() []string {
	names := make([]string, len(c.Workloads))
	for i, w := range c.Workloads {
		names[i] = w.Name
	}
	return names
}

// ShortName maps a library identifier to its context-namespace short key.
// Unknown libraries map to themselves so derived keys stay well-formed.
func (c Catalog) ShortName(library string) string {
	for _, l := range c.Libraries {
		if l.Name == library {
			return l.Short
		}
	}
	return library
}

// LibraryLabel returns the display label for a library identifier.
func (c Catalog) LibraryLabel(library string) string {
	for _, l := range c.Libraries {
		if l.Name == library {
			return l.Label
		}
	}
	return library
}

// Competitors returns every library except the primary, in catalog order.
func (c Catalog) Competitors() []string {
	var out []string
	for _, l := range c.Libraries {
		if l.Name != c.Primary {
			out = append(out, l.Name)
		}
	}
	return out
}
