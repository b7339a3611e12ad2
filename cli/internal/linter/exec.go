package linter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// toolResult is the outcome of one analyzer subprocess. A non-zero ExitCode
// with captured output is a normal outcome; see ErrExecution for what counts
// as failure.
type toolResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// runTool executes name with args in dir under the given timeout. On a
// non-zero exit it returns the captured output and a nil error. A missing
// binary or an expired deadline returns ErrExecution.
func runTool(ctx context.Context, timeout time.Duration, dir, name string, args ...string) (toolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := toolResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return res, fmt.Errorf("%w: %s timed out after %s", ErrExecution, name, timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("%w: %s: %v", ErrExecution, name, err)
}

// lookTool reports whether a binary is invocable, used by setup absence
// checks before attempting an install.
func lookTool(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
