// Package processor runs the external video processor as a child process.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result is the merged stdout/stderr of one run, split into lines, and the
// process exit code.
type Result struct {
	Lines    []string
	ExitCode int
}

// Succeeded reports whether the processor exited with status zero.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Runner transforms sourcePath into destPath.
//
// A non-zero exit is reported through Result.ExitCode. An error is only
// returned when the process could not be started or waited on.
type Runner interface {
	Run(ctx context.Context, sourcePath, destPath string) (Result, error)
}

// ExecRunner invokes Command with Args followed by the source and destination
// paths. Arguments are passed as a vector; no shell is involved.
type ExecRunner struct {
	Command string
	Args    []string
	Dir     string
	// Timeout bounds a single run. Zero means the run may block forever.
	Timeout time.Duration
}

var _ Runner = (*ExecRunner)(nil)

func (e *ExecRunner) Run(ctx context.Context, sourcePath, destPath string) (Result, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(e.Args)+2)
	args = append(args, e.Args...)
	args = append(args, sourcePath, destPath)

	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Dir = e.Dir
	// a grandchild holding the output pipe must not outlive cancellation
	cmd.WaitDelay = 5 * time.Second

	// Same writer for both streams: exec shares one pipe, keeping the
	// interleaving the child produced.
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	res := Result{Lines: SplitLines(out.String())}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			// killed by a signal, usually the context deadline
			res.ExitCode = -1
		}
		return res, nil
	}
	return res, fmt.Errorf("run %s: %w", e.Command, err)
}

// SplitLines splits process output into lines with trailing whitespace
// removed. A trailing newline does not produce an empty final line.
func SplitLines(out string) []string {
	if out == "" {
		return nil
	}
	out = strings.TrimSuffix(out, "\n")
	raw := strings.Split(out, "\n")
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return lines
}
