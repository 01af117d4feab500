package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"treebench/internal/analysis"
	"treebench/internal/bench"
	"treebench/internal/config"
	"treebench/internal/perf"
	"treebench/internal/sysinfo"
	"treebench/internal/telemetry"
)

// preferredProfileSize is the tree size used for profile sampling when it is
// part of the grid: large enough to spill the caches, small enough to keep
// the record runs short.
const preferredProfileSize = 4194304

// artifact is the JSON document written after a full pipeline run.
type artifact struct {
	Sysinfo   sysinfo.Info               `json:"sysinfo"`
	Libraries []string                   `json:"libraries"`
	Results   []bench.Result             `json:"results"`
	Counters  map[string]perf.CounterSet `json:"counters,omitempty"`
	Profile   []perf.Entry               `json:"profile,omitempty"`
	CacheMiss []perf.Entry               `json:"cache_miss_profile,omitempty"`
	Context   map[string]string          `json:"context"`
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the full benchmark grid and derive the comparison metrics",
	Long: `Report executes every (library, workload, size) cell sequentially,
collects hardware counters and profiles for the cells that completed,
derives the comparison metrics, and writes a JSON artifact.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().String("bin", "", "Path to the bench_compare binary (overrides config)")
	reportCmd.Flags().IntSlice("sizes", nil, "Tree sizes to benchmark (overrides config)")
	reportCmd.Flags().Bool("no-perf", false, "Skip hardware counter and profile collection")
	reportCmd.Flags().StringP("out", "o", "treebench_report.json", "Artifact output path")
	reportCmd.Flags().Bool("save", false, "Archive this run in the history database")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()
	metrics := telemetry.NewMetrics()

	if addr := viper.GetString("metrics_addr"); addr != "" {
		go func() {
			if err := telemetry.StartMetricsServer(addr); err != nil {
				logger.Error("metrics server stopped", "addr", addr, "error", err)
			}
		}()
	}

	bin, _ := cmd.Flags().GetString("bin")
	if bin == "" {
		bin = viper.GetString("bench.binary")
	}
	// A missing binary is the one unrecoverable precondition.
	if _, err := os.Stat(bin); err != nil {
		return fmt.Errorf("bench_compare not found at %s, build the benchmark suite first: %w", bin, err)
	}

	sizes, _ := cmd.Flags().GetIntSlice("sizes")
	if len(sizes) == 0 {
		sizes = viper.GetIntSlice("bench.sizes")
	}
	if len(sizes) == 0 {
		return fmt.Errorf("no benchmark sizes configured")
	}

	cat := config.DefaultCatalog()
	info := sysinfo.Collect(ctx)
	logger.Info("host inspected",
		"cpu", info.CPU, "kernel", info.Kernel,
		"l1d", sysinfo.FormatBytes(info.L1d), "l3", sysinfo.FormatBytes(info.L3))

	runner := bench.NewGridRunner(bin)
	runner.Timeout = time.Duration(viper.GetInt("bench.timeout")) * time.Second
	runner.ProbeTimeout = time.Duration(viper.GetInt("probe.timeout")) * time.Second
	runner.Metrics = metrics

	libs := runner.DetectLibraries(ctx, cat.LibraryNames())
	if len(libs) == 0 {
		logger.Info("help output inconclusive, probing libraries")
		libs = runner.ProbeLibraries(ctx, cat.LibraryNames())
	}
	if len(libs) == 0 {
		return fmt.Errorf("no benchmark libraries available in %s", bin)
	}
	logger.Info("libraries detected", "libraries", strings.Join(libs, ","))

	results := runner.RunGrid(ctx, libs, cat.WorkloadNames(), sizes)
	if results.Len() == 0 {
		return fmt.Errorf("benchmark grid produced no results")
	}

	in := analysis.Input{Results: results, Libraries: libs, Sizes: sizes}

	noPerf, _ := cmd.Flags().GetBool("no-perf")
	perfEnabled := viper.GetBool("perf.enabled") && !noPerf
	if perfEnabled && !perf.Available(ctx) {
		logger.Warn("perf unavailable, skipping counters and profiles")
		perfEnabled = false
	}

	var cacheMiss []perf.Entry
	if perfEnabled {
		counterSize := largestOf(sizes)
		stat := perf.NewStatCollector(bin, cat.Events)
		stat.Timeout = time.Duration(viper.GetInt("perf.stat_timeout")) * time.Second
		stat.Metrics = metrics
		in.Counters = stat.CollectAll(ctx, libs, cat.CounterWorkload, counterSize)

		profSize := profileSizeFor(sizes)
		prof := perf.NewProfiler(bin)
		prof.RecordTimeout = time.Duration(viper.GetInt("perf.record_timeout")) * time.Second
		prof.ReportTimeout = time.Duration(viper.GetInt("perf.report_timeout")) * time.Second
		prof.Metrics = metrics
		in.Profile = prof.Profile(ctx, cat.Primary, cat.CounterWorkload, profSize)

		miss := perf.NewEventProfiler(bin, "cache-misses")
		miss.RecordTimeout = prof.RecordTimeout
		miss.ReportTimeout = prof.ReportTimeout
		miss.Metrics = metrics
		cacheMiss = miss.Profile(ctx, cat.Primary, cat.CounterWorkload, profSize)
	}

	derived := analysis.Build(in, cat)

	art := artifact{
		Sysinfo:   info,
		Libraries: libs,
		Results:   results.Results(),
		Counters:  in.Counters,
		Profile:   in.Profile,
		CacheMiss: cacheMiss,
		Context:   derived,
	}
	outPath, _ := cmd.Flags().GetString("out")
	if err := writeArtifact(outPath, art); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	logger.Info("artifact written", "path", outPath)

	printSummary(cmd.OutOrStdout(), results, derived, libs, cat)

	if save, _ := cmd.Flags().GetBool("save"); save {
		store, err := bench.NewSQLiteStore(viper.GetString("history.path"))
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer store.Close()

		id, err := store.Save(bench.Run{
			Host:    info.Hostname,
			Results: results.Results(),
			Context: derived,
		})
		if err != nil {
			return fmt.Errorf("failed to archive run: %w", err)
		}
		logger.Info("run archived", "id", id)
	}
	return nil
}

func writeArtifact(path string, art artifact) error {
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func largestOf(sizes []int) int {
	largest := sizes[0]
	for _, n := range sizes[1:] {
		if n > largest {
			largest = n
		}
	}
	return largest
}

// profileSizeFor picks the sampling size: the preferred mid-large size when
// it is part of the grid, otherwise the largest configured size.
func profileSizeFor(sizes []int) int {
	for _, n := range sizes {
		if n == preferredProfileSize {
			return n
		}
	}
	return largestOf(sizes)
}
