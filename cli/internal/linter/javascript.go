package linter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"codefixer/cli/internal/envcache"
	"codefixer/cli/internal/issue"
)

// jsAdapter lints JavaScript and TypeScript with one shared npm environment:
// ESLint for .js/.jsx/.mjs, TSLint for .ts/.tsx, Prettier --check for all.
// JavaScript and TypeScript file sets are merged into a single invocation by
// the orchestrator so the toolchain is set up once.
type jsAdapter struct {
	opts Options
}

func (a *jsAdapter) Language() string { return "javascript" }

// Setup initializes the npm project and installs the linters when the local
// bin directory does not already carry them.
func (a *jsAdapter) Setup(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err != nil {
		res, err := runTool(ctx, a.opts.timeout(), dir, "npm", "init", "-y")
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("npm init: exit %d: %s", res.ExitCode, res.Stderr)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "node_modules", ".bin", "eslint")); err != nil {
		res, err := runTool(ctx, a.opts.timeout(), dir, "npm", "install", "--save-dev",
			"eslint", "prettier",
			"@typescript-eslint/parser", "@typescript-eslint/eslint-plugin",
			"tslint", "typescript")
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("npm install linters: exit %d: %s", res.ExitCode, res.Stderr)
		}
	}
	return writeJSConfigs(dir)
}

func isTypeScript(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".tsx":
		return true
	}
	return false
}

// npmBin returns the path of a linter binary installed in the environment.
func npmBin(dir, name string) string {
	return filepath.Join(dir, "node_modules", ".bin", name)
}

// Run lints each file with the linter matching its dialect plus a Prettier
// format check. JSON output is preferred; the text parser is always tried
// when JSON does not decode.
func (a *jsAdapter) Run(ctx context.Context, repoRoot string, files []string, env *envcache.Environment) (map[string][]issue.Issue, error) {
	out := make(map[string][]issue.Issue)
	for _, file := range files {
		var list []issue.Issue
		abs := filepath.Join(repoRoot, file)

		if isTypeScript(file) {
			res, err := runTool(ctx, a.opts.timeout(), env.Path,
				npmBin(env.Path, "tslint"), "--format", "json", abs)
			if err != nil {
				return nil, fmt.Errorf("tslint %s: %w", file, err)
			}
			if res.ExitCode != 0 {
				if parsed, ok := parseTSLintJSON(res.Stdout, file); ok {
					list = append(list, parsed...)
				} else {
					list = append(list, parseText(formatTSLint, res.Stdout, file)...)
				}
			}
		} else {
			res, err := runTool(ctx, a.opts.timeout(), env.Path,
				npmBin(env.Path, "eslint"), "--no-eslintrc",
				"--config", filepath.Join(env.Path, ".eslintrc.json"),
				"--format", "json", abs)
			if err != nil {
				return nil, fmt.Errorf("eslint %s: %w", file, err)
			}
			if res.ExitCode != 0 {
				if parsed, ok := parseESLintJSON(res.Stdout, file); ok {
					list = append(list, parsed...)
				} else {
					list = append(list, parseText(formatESLint, res.Stdout, file)...)
				}
			}
		}

		res, err := runTool(ctx, a.opts.timeout(), env.Path,
			npmBin(env.Path, "prettier"), "--config", filepath.Join(env.Path, ".prettierrc"), "--check", abs)
		if err != nil {
			return nil, fmt.Errorf("prettier %s: %w", file, err)
		}
		a.opts.Tracer.Printf("prettier %s: exit %d in %s\n", file, res.ExitCode, res.Duration)
		if res.ExitCode != 0 {
			list = append(list, issue.New(file, 1, 1, "prettier/prettier", "code formatting issues detected by prettier"))
		}

		if len(list) > 0 {
			out[file] = list
		}
	}
	return out, nil
}
