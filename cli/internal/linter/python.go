package linter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"codefixer/cli/internal/envcache"
	"codefixer/cli/internal/issue"
)

// pythonAdapter lints with flake8, black --check, and mypy installed into a
// virtualenv inside the environment directory.
type pythonAdapter struct {
	opts Options
}

func (a *pythonAdapter) Language() string { return "python" }

// venvBin returns the path of an executable inside the environment venv.
func venvBin(dir, name string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(dir, "venv", "Scripts", name+".exe")
	}
	return filepath.Join(dir, "venv", "bin", name)
}

// Setup creates the venv when missing and installs the linters. pip install
// is idempotent, so re-running on an existing venv only verifies versions.
func (a *pythonAdapter) Setup(ctx context.Context, dir string) error {
	venvPython := venvBin(dir, "python")
	if _, err := os.Stat(venvPython); err != nil {
		res, err := runTool(ctx, a.opts.timeout(), dir, "python3", "-m", "venv", filepath.Join(dir, "venv"))
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("create venv: exit %d: %s", res.ExitCode, res.Stderr)
		}
	}
	res, err := runTool(ctx, a.opts.timeout(), dir, venvBin(dir, "pip"), "install", "--upgrade", "flake8", "black", "mypy")
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("pip install linters: exit %d: %s", res.ExitCode, res.Stderr)
	}
	return writePythonConfigs(dir)
}

// Run lints each file with flake8, black, and mypy. Non-zero exits carry the
// findings; only transport failures abort the batch.
func (a *pythonAdapter) Run(ctx context.Context, repoRoot string, files []string, env *envcache.Environment) (map[string][]issue.Issue, error) {
	out := make(map[string][]issue.Issue)
	for _, file := range files {
		var list []issue.Issue

		res, err := runTool(ctx, a.opts.timeout(), repoRoot,
			venvBin(env.Path, "flake8"), "--config", filepath.Join(env.Path, ".flake8"), file)
		if err != nil {
			return nil, fmt.Errorf("flake8 %s: %w", file, err)
		}
		a.opts.Tracer.Printf("flake8 %s: exit %d in %s\n", file, res.ExitCode, res.Duration)
		if res.ExitCode != 0 {
			// flake8 has no JSON output; text parsing is the primary path.
			list = append(list, parseText(formatFlake8, res.Stdout, file)...)
		}

		res, err = runTool(ctx, a.opts.timeout(), repoRoot,
			venvBin(env.Path, "black"), "--check", "--quiet", "--config", filepath.Join(env.Path, "pyproject.toml"), file)
		if err != nil {
			return nil, fmt.Errorf("black %s: %w", file, err)
		}
		if res.ExitCode != 0 {
			list = append(list, issue.New(file, 1, 1, "black", "code formatting issues detected by black"))
		}

		res, err = runTool(ctx, a.opts.timeout(), repoRoot,
			venvBin(env.Path, "mypy"), "--no-error-summary", "--no-pretty", file)
		if err != nil {
			return nil, fmt.Errorf("mypy %s: %w", file, err)
		}
		if res.ExitCode != 0 {
			list = append(list, parseText(formatMypy, res.Stdout, file)...)
		}

		if len(list) > 0 {
			out[file] = list
		}
	}
	return out, nil
}
