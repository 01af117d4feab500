package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"treebench/internal/bench"
	"treebench/internal/config"
	"treebench/internal/perf"
	"treebench/internal/sysinfo"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check the benchmark environment without running the grid",
	Long: `Probe inspects the host, verifies the bench_compare binary, reports
which libraries it was built with, and checks whether perf is usable.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().String("bin", "", "Path to the bench_compare binary (overrides config)")
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	cat := config.DefaultCatalog()

	info := sysinfo.Collect(ctx)
	fmt.Fprintln(w, titleStyle.Render("treebench probe"))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "host\t%s\n", info.Hostname)
	fmt.Fprintf(tw, "cpu\t%s\n", info.CPU)
	fmt.Fprintf(tw, "kernel\t%s (%s)\n", info.Kernel, info.Arch)
	fmt.Fprintf(tw, "caches\tL1d %s, L2 %s, L3 %s\n",
		sysinfo.FormatBytes(info.L1d), sysinfo.FormatBytes(info.L2), sysinfo.FormatBytes(info.L3))
	fmt.Fprintf(tw, "page size\t%s\n", sysinfo.FormatBytes(info.PageSize))
	tw.Flush()

	bin, _ := cmd.Flags().GetString("bin")
	if bin == "" {
		bin = viper.GetString("bench.binary")
	}

	if _, err := os.Stat(bin); err != nil {
		fmt.Fprintf(w, "bench_compare\t%s\n", warnStyle.Render("missing at "+bin))
	} else {
		runner := bench.NewGridRunner(bin)
		runner.ProbeTimeout = time.Duration(viper.GetInt("probe.timeout")) * time.Second

		libs := runner.DetectLibraries(ctx, cat.LibraryNames())
		if len(libs) == 0 {
			libs = runner.ProbeLibraries(ctx, cat.LibraryNames())
		}
		available := make(map[string]bool, len(libs))
		for _, lib := range libs {
			available[lib] = true
		}

		fmt.Fprintln(w, sectionStyle.Render("Libraries in "+bin))
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, lib := range cat.Libraries {
			status := warnStyle.Render("not available")
			if available[lib.Name] {
				status = okStyle.Render("available")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", lib.Name, status, dimStyle.Render(lib.Description))
		}
		tw.Flush()
	}

	if perf.Available(ctx) {
		fmt.Fprintln(w, "perf: "+okStyle.Render("available"))
	} else {
		fmt.Fprintln(w, "perf: "+warnStyle.Render("not available, counters and profiles will be skipped"))
	}
	return nil
}
