package linter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"codefixer/cli/internal/envcache"
	"codefixer/cli/internal/issue"
)

// htmlAdapter lints markup with HTMLHint from an npm environment.
type htmlAdapter struct {
	opts Options
}

func (a *htmlAdapter) Language() string { return "html" }

// Setup initializes the npm project and installs htmlhint when the local
// bin directory does not already carry it.
func (a *htmlAdapter) Setup(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err != nil {
		res, err := runTool(ctx, a.opts.timeout(), dir, "npm", "init", "-y")
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("npm init: exit %d: %s", res.ExitCode, res.Stderr)
		}
	}
	if _, err := os.Stat(npmBin(dir, "htmlhint")); err != nil {
		res, err := runTool(ctx, a.opts.timeout(), dir, "npm", "install", "--save-dev", "htmlhint")
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("npm install htmlhint: exit %d: %s", res.ExitCode, res.Stderr)
		}
	}
	return writeHTMLConfigs(dir)
}

// Run lints each file with htmlhint. JSON output is preferred; the text
// parser is always tried when JSON does not decode.
func (a *htmlAdapter) Run(ctx context.Context, repoRoot string, files []string, env *envcache.Environment) (map[string][]issue.Issue, error) {
	out := make(map[string][]issue.Issue)
	for _, file := range files {
		abs := filepath.Join(repoRoot, file)
		res, err := runTool(ctx, a.opts.timeout(), env.Path,
			npmBin(env.Path, "htmlhint"),
			"--config", filepath.Join(env.Path, ".htmlhintrc"),
			"--format", "json", abs)
		if err != nil {
			return nil, fmt.Errorf("htmlhint %s: %w", file, err)
		}
		a.opts.Tracer.Printf("htmlhint %s: exit %d in %s\n", file, res.ExitCode, res.Duration)
		if res.ExitCode == 0 {
			continue
		}
		var list []issue.Issue
		if parsed, ok := parseHTMLHintJSON(res.Stdout, file); ok {
			list = parsed
		} else {
			list = parseText(formatHTMLHint, res.Stdout, file)
		}
		if len(list) > 0 {
			out[file] = list
		}
	}
	return out, nil
}
