package linter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"codefixer/cli/internal/envcache"
	"codefixer/cli/internal/issue"
)

// cssAdapter lints stylesheets with stylelint from an npm environment.
type cssAdapter struct {
	opts Options
}

func (a *cssAdapter) Language() string { return "css" }

// Setup initializes the npm project and installs stylelint when the local
// bin directory does not already carry it.
func (a *cssAdapter) Setup(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err != nil {
		res, err := runTool(ctx, a.opts.timeout(), dir, "npm", "init", "-y")
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("npm init: exit %d: %s", res.ExitCode, res.Stderr)
		}
	}
	if _, err := os.Stat(npmBin(dir, "stylelint")); err != nil {
		res, err := runTool(ctx, a.opts.timeout(), dir, "npm", "install", "--save-dev",
			"stylelint", "stylelint-config-standard")
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("npm install stylelint: exit %d: %s", res.ExitCode, res.Stderr)
		}
	}
	return writeCSSConfigs(dir)
}

// Run lints each stylesheet with stylelint. JSON output is preferred; the
// text parser is always tried when JSON does not decode.
func (a *cssAdapter) Run(ctx context.Context, repoRoot string, files []string, env *envcache.Environment) (map[string][]issue.Issue, error) {
	out := make(map[string][]issue.Issue)
	for _, file := range files {
		abs := filepath.Join(repoRoot, file)
		res, err := runTool(ctx, a.opts.timeout(), env.Path,
			npmBin(env.Path, "stylelint"),
			"--config", filepath.Join(env.Path, ".stylelintrc.json"),
			"--formatter", "json", abs)
		if err != nil {
			return nil, fmt.Errorf("stylelint %s: %w", file, err)
		}
		a.opts.Tracer.Printf("stylelint %s: exit %d in %s\n", file, res.ExitCode, res.Duration)
		if res.ExitCode == 0 {
			continue
		}
		var list []issue.Issue
		if parsed, ok := parseStylelintJSON(res.Stdout, file); ok {
			list = parsed
		} else {
			list = parseText(formatStylelint, res.Stdout, file)
		}
		if len(list) > 0 {
			out[file] = list
		}
	}
	return out, nil
}
