// Package sysinfo collects static host descriptors for the report
// artifact. Every field is best-effort; a descriptor that cannot be read
// is left at its zero value and rendered as unknown, never fabricated.
package sysinfo

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"treebench/internal/proc"
)

// Info holds the host descriptors attached to a run.
type Info struct {
	Hostname string `json:"hostname,omitempty"`
	Kernel   string `json:"kernel,omitempty"`
	Arch     string `json:"arch"`
	CPU      string `json:"cpu,omitempty"`
	Date     string `json:"date"`
	L1d      int64  `json:"l1d_bytes,omitempty"`
	L2       int64  `json:"l2_bytes,omitempty"`
	L3       int64  `json:"l3_bytes,omitempty"`
	PageSize int64  `json:"page_size_bytes,omitempty"`
}

// Collect gathers host descriptors.
func Collect(ctx context.Context) Info {
	info := Info{
		Arch: runtime.GOARCH,
		Date: time.Now().Format(time.RFC3339),
	}
	info.Hostname, _ = os.Hostname()

	if b, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
		info.Kernel = strings.TrimSpace(string(b))
	}
	if b, err := os.ReadFile("/proc/cpuinfo"); err == nil {
		info.CPU = cpuModel(string(b))
	}

	info.L1d = getconf(ctx, "LEVEL1_DCACHE_SIZE")
	info.L2 = getconf(ctx, "LEVEL2_CACHE_SIZE")
	info.L3 = getconf(ctx, "LEVEL3_CACHE_SIZE")
	info.PageSize = getconf(ctx, "PAGESIZE")
	return info
}

// cpuModel extracts the first "model name" entry from /proc/cpuinfo text.
func cpuModel(cpuinfo string) string {
	for _, line := range strings.Split(cpuinfo, "\n") {
		if !strings.HasPrefix(line, "model name") {
			continue
		}
		if _, value, found := strings.Cut(line, ":"); found {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func getconf(ctx context.Context, variable string) int64 {
	out := proc.Run(ctx, proc.Invocation{
		Path:    "getconf",
		Args:    []string{variable},
		Timeout: 10 * time.Second,
	})
	if !out.OK() {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(out.Stdout)), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatBytes renders a byte count for display; unknown sizes become "?".
func FormatBytes(n int64) string {
	switch {
	case n <= 0:
		return "?"
	case n >= 1048576:
		return fmt.Sprintf("%d MB", n/1048576)
	case n >= 1024:
		return fmt.Sprintf("%d KB", n/1024)
	}
	return fmt.Sprintf("%d B", n)
}
