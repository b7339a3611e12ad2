package linter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"codefixer/cli/internal/envcache"
	"codefixer/cli/internal/issue"
)

// goAdapter lints with golangci-lint run once over the whole batch, since
// the tool resolves packages, not individual files.
type goAdapter struct {
	opts Options
}

func (a *goAdapter) Language() string { return "go" }

// golangciBin prefers a binary installed into the environment, falling back
// to one on PATH.
func golangciBin(dir string) string {
	local := filepath.Join(dir, "bin", "golangci-lint")
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return "golangci-lint"
}

// Setup installs golangci-lint into the environment's bin directory unless
// it is already present there or on PATH.
func (a *goAdapter) Setup(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, "bin", "golangci-lint")); err == nil {
		return writeGoConfigs(dir)
	}
	if lookTool("golangci-lint") {
		return writeGoConfigs(dir)
	}
	res, err := runTool(ctx, a.opts.timeout(), dir, "go", "install",
		"github.com/golangci/golangci-lint/cmd/golangci-lint@latest")
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("install golangci-lint: exit %d: %s", res.ExitCode, res.Stderr)
	}
	return writeGoConfigs(dir)
}

// Run invokes golangci-lint over the repository and keeps findings for the
// requested files only. JSON output is preferred with a text fallback.
func (a *goAdapter) Run(ctx context.Context, repoRoot string, files []string, env *envcache.Environment) (map[string][]issue.Issue, error) {
	wanted := make(map[string]string, len(files))
	for _, f := range files {
		wanted[f] = f
	}

	res, err := runTool(ctx, a.opts.timeout(), repoRoot,
		golangciBin(env.Path), "run",
		"--config", filepath.Join(env.Path, ".golangci.yml"),
		"--out-format", "json", "./...")
	if err != nil {
		return nil, fmt.Errorf("golangci-lint: %w", err)
	}
	a.opts.Tracer.Printf("golangci-lint: exit %d in %s\n", res.ExitCode, res.Duration)
	if res.ExitCode == 0 {
		return map[string][]issue.Issue{}, nil
	}

	list, ok := parseGolangciJSON(res.Stdout, wanted)
	if !ok {
		for _, line := range parseText(formatGolangci, res.Stdout, "") {
			if path, found := matchFile(line.Path, wanted); found {
				line.Path = path
				list = append(list, line)
			}
		}
	}

	out := make(map[string][]issue.Issue)
	for _, is := range list {
		out[is.Path] = append(out[is.Path], is)
	}
	return out, nil
}
