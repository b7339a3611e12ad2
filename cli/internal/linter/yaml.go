package linter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"codefixer/cli/internal/envcache"
	"codefixer/cli/internal/issue"
)

// yamlAdapter lints with yamllint installed into a virtualenv shared with no
// other tools; its parsable output format is line oriented by design.
type yamlAdapter struct {
	opts Options
}

func (a *yamlAdapter) Language() string { return "yaml" }

func (a *yamlAdapter) Setup(ctx context.Context, dir string) error {
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
	res, err := runTool(ctx, a.opts.timeout(), dir, venvBin(dir, "pip"), "install", "--upgrade", "yamllint")
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("pip install yamllint: exit %d: %s", res.ExitCode, res.Stderr)
	}
	return writeYamlConfigs(dir)
}

func (a *yamlAdapter) Run(ctx context.Context, repoRoot string, files []string, env *envcache.Environment) (map[string][]issue.Issue, error) {
	out := make(map[string][]issue.Issue)
	for _, file := range files {
		res, err := runTool(ctx, a.opts.timeout(), repoRoot,
			venvBin(env.Path, "yamllint"),
			"-c", filepath.Join(env.Path, ".yamllint"),
			"-f", "parsable", file)
		if err != nil {
			return nil, fmt.Errorf("yamllint %s: %w", file, err)
		}
		a.opts.Tracer.Printf("yamllint %s: exit %d in %s\n", file, res.ExitCode, res.Duration)
		if res.ExitCode == 0 {
			continue
		}
		if list := parseText(formatYamllint, res.Stdout, file); len(list) > 0 {
			out[file] = list
		}
	}
	return out, nil
}
