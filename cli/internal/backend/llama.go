package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// defaultLlamaPaths are probed in order for a runnable llama.cpp binary.
var defaultLlamaPaths = []string{
	"./llama.cpp/main",
	"./llama.cpp/build/bin/main",
	"llama-cli",
	"llama",
}

// llamaBackend shells out to a standalone llama.cpp executable. The binary
// is located once per invocation so a freshly built binary is picked up
// without restarting.
type llamaBackend struct {
	paths       []string
	temperature float64
	numCtx      int
}

func (b *llamaBackend) Name() string { return "llama.cpp" }

// findExecutable returns the first candidate that exists as a file or
// resolves on PATH.
func (b *llamaBackend) findExecutable() (string, error) {
	candidates := b.paths
	if len(candidates) == 0 {
		candidates = defaultLlamaPaths
	}
	for _, c := range candidates {
		if strings.ContainsRune(c, os.PathSeparator) {
			if info, err := os.Stat(c); err == nil && !info.IsDir() {
				return c, nil
			}
			continue
		}
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}
	return "", errors.New("llama.cpp executable not found")
}

func (b *llamaBackend) Invoke(ctx context.Context, model, prompt string) (string, error) {
	bin, err := b.findExecutable()
	if err != nil {
		return "", err
	}
	temp := b.temperature
	if temp == 0 {
		temp = 0.1
	}
	numCtx := b.numCtx
	if numCtx == 0 {
		numCtx = 4096
	}
	cmd := exec.CommandContext(ctx, bin,
		"-m", model,
		"-p", prompt,
		"--temp", strconv.FormatFloat(temp, 'f', -1, 64),
		"--repeat_penalty", "1.1",
		"--ctx_size", strconv.Itoa(numCtx),
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return "", fmt.Errorf("llama.cpp inference timed out: %w", ctxErr)
		}
		return "", fmt.Errorf("llama.cpp failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
