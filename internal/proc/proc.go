// Package proc runs external processes one at a time with a hard timeout
// and reports the terminal state of each invocation. Benchmark and perf
// invocations must never overlap, so there is deliberately no pooling or
// parallel execution here.
package proc

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// State is the lifecycle state of a single external invocation.
type State int

const (
	Pending State = iota
	Running
	Succeeded
	TimedOut
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case TimedOut:
		return "timed_out"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Invocation describes one external process run.
type Invocation struct {
	Path    string
	Args    []string
	Env     []string // appended to the parent environment when non-nil
	Timeout time.Duration
}

// Outcome is the terminal result of an invocation.
type Outcome struct {
	State    State
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Err      error
	Elapsed  time.Duration
}

// OK reports whether the invocation ran to completion with exit code 0.
func (o Outcome) OK() bool {
	return o.State == Succeeded
}

// Run executes the invocation, blocking until the process exits or the
// timeout elapses. A timeout yields State == TimedOut, a start failure or
// non-zero exit yields Failed; neither is returned as an error to the
// caller, the Outcome carries everything.
func Run(ctx context.Context, inv Invocation) Outcome {
	runCtx := ctx
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, inv.Path, inv.Args...)
	if inv.Env != nil {
		cmd.Env = inv.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := Outcome{
		Stdout:  stdout.Bytes(),
		Stderr:  stderr.Bytes(),
		Elapsed: time.Since(start),
	}

	switch {
	case err == nil:
		out.State = Succeeded
	case runCtx.Err() == context.DeadlineExceeded, errors.Is(err, context.DeadlineExceeded):
		out.State = TimedOut
		out.Err = err
		out.ExitCode = -1
	default:
		out.State = Failed
		out.Err = err
		out.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
		}
	}
	return out
}
