package perf

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"treebench/internal/proc"
	"treebench/internal/telemetry"
)

// Profiler runs the two-stage perf record / perf report operation around a
// single benchmark invocation and ranks the reported symbols. With an
// empty Event it samples cycles with call graphs; with an Event set (e.g.
// cache-misses) it attributes that event instead.
type Profiler struct {
	Bin           string
	Event         string
	RecordTimeout time.Duration
	ReportTimeout time.Duration
	Logger        *slog.Logger
	Metrics       *telemetry.Metrics
}

// NewProfiler returns a cycle-sampling profiler for the given binary.
func NewProfiler(bin string) *Profiler {
	return &Profiler{
		Bin:           bin,
		RecordTimeout: 600 * time.Second,
		ReportTimeout: 60 * time.Second,
		Logger:        slog.Default(),
	}
}

// NewEventProfiler returns a profiler attributing a specific hardware
// event rather than sampled cycles.
func NewEventProfiler(bin, event string) *Profiler {
	p := NewProfiler(bin)
	p.Event = event
	return p
}

// Profile records samples for one benchmark invocation into a private
// scratch directory, renders the symbol report, and returns the top
// entries by overhead. The scratch directory lives exactly as long as the
// two-stage operation, on every exit path.
//
// A record-stage failure aborts and returns nil. A report-stage failure
// after a successful record is degraded, not fatal: whatever report output
// exists is still parsed, since partial attributions remain useful.
func (p *Profiler) Profile(ctx context.Context, library, workload string, n int) []Entry {
	dir, err := os.MkdirTemp("", "treebench-perf-")
	if err != nil {
		p.Logger.Error("failed to create profile scratch dir", "error", err)
		return nil
	}
	defer os.RemoveAll(dir)
	data := filepath.Join(dir, "perf.data")

	recordArgs := []string{"record"}
	if p.Event != "" {
		recordArgs = append(recordArgs, "-e", p.Event)
	} else {
		recordArgs = append(recordArgs, "-g")
	}
	recordArgs = append(recordArgs, "-o", data, "--",
		p.Bin,
		"--library", library,
		"--workload", workload,
		"--size", strconv.Itoa(n),
	)

	rec := proc.Run(ctx, proc.Invocation{Path: "perf", Args: recordArgs, Timeout: p.RecordTimeout})
	if p.Metrics != nil {
		p.Metrics.TrackInvocation("perf_record", rec.Elapsed.Seconds())
	}
	if !rec.OK() {
		p.Logger.Warn("perf record failed",
			"event", p.eventLabel(), "library", library, "workload", workload, "n", n,
			"state", rec.State.String(), "exit_code", rec.ExitCode,
			"stderr", clip(string(rec.Stderr), 200))
		if p.Metrics != nil {
			p.Metrics.TrackCollectorFailure("perf_record")
		}
		return nil
	}

	rep := proc.Run(ctx, proc.Invocation{
		Path: "perf",
		Args: []string{"report", "-i", data,
			"--stdio", "--no-children",
			"-g", "none", "--percent-limit", "1.0"},
		Timeout: p.ReportTimeout,
	})
	if !rep.OK() {
		p.Logger.Warn("perf report anomaly, using partial output",
			"event", p.eventLabel(), "state", rep.State.String(),
			"exit_code", rep.ExitCode, "stderr", clip(string(rep.Stderr), 200))
	}

	return ParseReport(string(rep.Stdout))
}

func (p *Profiler) eventLabel() string {
	if p.Event == "" {
		return "cycles"
	}
	return p.Event
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
