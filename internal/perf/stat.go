// Package perf collects hardware counters and instruction-level profiles
// around single bench_compare invocations via the Linux perf tool.
package perf

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"treebench/internal/proc"
	"treebench/internal/telemetry"
)

// CounterSet maps event names to collected values. A nil value means the
// event was requested but the sampler reported it uncounted or unsupported;
// an absent key means the event was never requested. An empty set means no
// data at all, never "all counters zero".
type CounterSet map[string]*int64

// Value returns the counted value for an event. ok is false when the event
// is absent or was reported uncounted.
func (s CounterSet) Value(event string) (int64, bool) {
	v, exists := s[event]
	if !exists || v == nil {
		return 0, false
	}
	return *v, true
}

// Entry is one ranked profile symbol.
type Entry struct {
	Overhead float64 `json:"overhead"`
	Symbol   string  `json:"symbol"`
}

// StatCollector runs perf stat around single benchmark invocations.
type StatCollector struct {
	Bin     string
	Events  []string
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// NewStatCollector returns a collector requesting the given events.
func NewStatCollector(bin string, events []string) *StatCollector {
	return &StatCollector{
		Bin:     bin,
		Events:  events,
		Timeout: 600 * time.Second,
		Logger:  slog.Default(),
	}
}

// Collect invokes perf stat with all events requested in a single pass and
// parses the report from stderr. A timeout or a failure to start perf
// yields an empty CounterSet, not an error; a non-zero exit still parses
// whatever report was written.
func (c *StatCollector) Collect(ctx context.Context, library, workload string, n int) CounterSet {
	args := []string{"stat", "-e", strings.Join(c.Events, ","), "--",
		c.Bin,
		"--library", library,
		"--workload", workload,
		"--size", strconv.Itoa(n),
	}
	out := proc.Run(ctx, proc.Invocation{
		Path: "perf",
		Args: args,
		// Force the C locale so counter values use plain ASCII digit
		// grouping regardless of host settings.
		Env:     append(os.Environ(), "LC_ALL=C"),
		Timeout: c.Timeout,
	})
	if c.Metrics != nil {
		c.Metrics.TrackInvocation("perf_stat", out.Elapsed.Seconds())
	}

	if out.State == proc.TimedOut || startFailed(out) {
		c.Logger.Warn("perf stat collection failed",
			"library", library, "workload", workload, "n", n,
			"state", out.State.String(), "error", out.Err)
		if c.Metrics != nil {
			c.Metrics.TrackCollectorFailure("perf_stat")
		}
		return CounterSet{}
	}

	return ParseStatReport(string(out.Stderr))
}

// CollectAll gathers counters for each library at a fixed workload and
// size. Libraries whose collection produced no data are omitted from the
// returned map.
func (c *StatCollector) CollectAll(ctx context.Context, libraries []string, workload string, n int) map[string]CounterSet {
	collected := make(map[string]CounterSet)
	for _, lib := range libraries {
		counters := c.Collect(ctx, lib, workload, n)
		if len(counters) == 0 {
			c.Logger.Warn("no counters collected", "library", lib)
			continue
		}
		collected[lib] = counters

		misses, mOK := counters.Value("cache-misses")
		refs, rOK := counters.Value("cache-references")
		if mOK && rOK && refs > 0 {
			rate := 100.0 * float64(misses) / float64(refs)
			c.Logger.Info("counters collected", "library", lib,
				"cache_miss_pct", strconv.FormatFloat(rate, 'f', 1, 64))
		} else {
			c.Logger.Info("counters collected", "library", lib)
		}
	}
	return collected
}

// Available reports whether perf is installed and usable on this host.
func Available(ctx context.Context) bool {
	out := proc.Run(ctx, proc.Invocation{
		Path:    "perf",
		Args:    []string{"stat", "--", "true"},
		Timeout: 10 * time.Second,
	})
	return out.OK()
}

// startFailed distinguishes "perf never ran" from a non-zero exit of a
// process that did run.
func startFailed(out proc.Outcome) bool {
	if out.State != proc.Failed {
		return false
	}
	var exitErr *exec.ExitError
	return !errors.As(out.Err, &exitErr)
}
