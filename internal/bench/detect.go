package bench

import (
	"context"
	"strings"

	"treebench/internal/proc"
)

// DetectLibraries runs `bench_compare --help` and reports which of the
// candidate libraries are compiled into the binary. An empty slice means
// help parsing failed; callers should fall back to ProbeLibraries.
func (r *GridRunner) DetectLibraries(ctx context.Context, candidates []string) []string {
	out := proc.Run(ctx, proc.Invocation{
		Path:    r.Bin,
		Args:    []string{"--help"},
		Timeout: r.ProbeTimeout,
	})
	// Some builds print usage with a non-zero exit; the text is still usable.
	text := string(out.Stdout) + string(out.Stderr)
	if text == "" {
		return nil
	}

	var available []string
	for _, lib := range candidates {
		if strings.Contains(text, lib) {
			available = append(available, lib)
		}
	}
	return available
}

// ProbeLibraries checks each candidate by running a tiny seq_insert cell.
// Slower than DetectLibraries but works when --help says nothing useful.
func (r *GridRunner) ProbeLibraries(ctx context.Context, candidates []string) []string {
	var available []string
	for _, lib := range candidates {
		if _, ok := r.RunCell(ctx, lib, "seq_insert", 1024); ok {
			available = append(available, lib)
			r.Logger.Info("library available", "library", lib)
		} else {
			r.Logger.Info("library not available", "library", lib)
		}
	}
	return available
}
