package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"treebench/internal/analysis"
	"treebench/internal/bench"
	"treebench/internal/config"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// headlineKeys are the derived metrics surfaced in the terminal summary.
// The full namespace lives in the artifact.
var headlineKeys = []string{
	"insert_slowdown_factor",
	"delete_slowdown_factor",
	"best_competitor_rand_insert_mops",
	"btree_insert_gap_pct",
	"mat_ipc",
	"hw_mat_cache_miss_pct",
	"pct_leaf_build",
}

// printSummary renders the throughput table at the largest collected size
// plus the headline derived metrics.
func printSummary(w io.Writer, results *bench.Set, derived map[string]string, libs []string, cat config.Catalog) {
	fmt.Fprintln(w, titleStyle.Render("treebench results"))

	collected := results.Sizes()
	if len(collected) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no cells completed"))
		return
	}
	largest := collected[len(collected)-1]

	fmt.Fprintln(w, sectionStyle.Render(
		fmt.Sprintf("Throughput at N=%s (Mops/s)", bench.FormatSize(largest))))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := "workload"
	for _, lib := range libs {
		header += "\t" + cat.ShortName(lib)
	}
	fmt.Fprintln(tw, header)
	for _, wl := range cat.Workloads {
		row := wl.Name
		for _, lib := range libs {
			if r, ok := results.Get(lib, wl.Name, largest); ok {
				row += fmt.Sprintf("\t%.2f", r.Mops)
			} else {
				row += "\t" + analysis.NA
			}
		}
		fmt.Fprintln(tw, row)
	}
	tw.Flush()

	fmt.Fprintln(w, sectionStyle.Render("Headline metrics"))
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, key := range headlineKeys {
		fmt.Fprintf(tw, "%s\t%s\n", key, derived[key])
	}
	tw.Flush()
}
