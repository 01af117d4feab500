package bench

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"treebench/internal/proc"
	"treebench/internal/telemetry"
)

// Runner executes benchmark cells.
type Runner interface {
	RunCell(ctx context.Context, library, workload string, n int) (Result, bool)
}

// GridRunner invokes bench_compare once per grid cell, strictly one cell at
// a time. Concurrent invocations would contend for the caches the benchmark
// is measuring, so there is no parallel mode.
type GridRunner struct {
	Bin          string
	Timeout      time.Duration
	ProbeTimeout time.Duration
	Logger       *slog.Logger
	Metrics      *telemetry.Metrics
}

// NewGridRunner returns a runner for the given bench_compare binary with
// the standard cell timeout.
func NewGridRunner(bin string) *GridRunner {
	return &GridRunner{
		Bin:          bin,
		Timeout:      300 * time.Second,
		ProbeTimeout: 10 * time.Second,
		Logger:       slog.Default(),
	}
}

// RunGrid executes every (library, workload, size) combination in
// library-major, then-workload, then-size order and returns the collected
// results. A failed cell yields no result and never aborts the grid.
func (r *GridRunner) RunGrid(ctx context.Context, libraries, workloads []string, sizes []int) *Set {
	set := NewSet()
	total := len(libraries) * len(workloads) * len(sizes)
	done := 0

	for _, lib := range libraries {
		for _, wl := range workloads {
			for _, n := range sizes {
				done++
				res, ok := r.RunCell(ctx, lib, wl, n)
				if r.Metrics != nil {
					r.Metrics.TrackCell(lib, ok)
				}
				if !ok {
					r.Logger.Warn("cell failed",
						"progress", progress(done, total),
						"library", lib, "workload", wl, "n", FormatSize(n))
					continue
				}
				set.Add(res)
				r.Logger.Info("cell ok",
					"progress", progress(done, total),
					"library", lib, "workload", wl, "n", FormatSize(n),
					"mops", strconv.FormatFloat(res.Mops, 'f', 2, 64))
			}
		}
	}
	return set
}

// RunCell executes one grid cell and parses its structured output line.
func (r *GridRunner) RunCell(ctx context.Context, library, workload string, n int) (Result, bool) {
	out := proc.Run(ctx, proc.Invocation{
		Path: r.Bin,
		Args: []string{
			"--library", library,
			"--workload", workload,
			"--size", strconv.Itoa(n),
		},
		Timeout: r.Timeout,
	})
	if r.Metrics != nil {
		r.Metrics.TrackInvocation("grid_cell", out.Elapsed.Seconds())
	}
	if !out.OK() {
		r.Logger.Debug("bench_compare invocation failed",
			"library", library, "workload", workload, "n", n,
			"state", out.State.String(), "error", out.Err)
		return Result{}, false
	}

	res, ok := ParseOutput(out.Stdout)
	if !ok {
		return Result{}, false
	}
	return res, true
}

// ParseOutput scans stdout for the first line beginning with '{' and
// decodes it as a Result. A decode failure or an invalid record falls
// through to no result.
func ParseOutput(output []byte) (Result, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var res Result
		if err := json.Unmarshal([]byte(line), &res); err != nil {
			return Result{}, false
		}
		if !res.Valid() {
			return Result{}, false
		}
		return res, true
	}
	return Result{}, false
}

func progress(done, total int) string {
	return strconv.Itoa(done) + "/" + strconv.Itoa(total)
}
