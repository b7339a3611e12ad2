package linter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"codefixer/cli/internal/envcache"
	"codefixer/cli/internal/issue"
)

// pmdReleaseZip is the PMD distribution fetched into environments that have
// neither a cached copy nor a pmd binary on PATH.
const pmdReleaseZip = "https://github.com/pmd/pmd/releases/latest/download/pmd-dist-7.0.0-bin.zip"

// javaAdapter lints with PMD over the whole batch, plus Checkstyle when a
// checkstyle.jar is present in the environment. Both read rule files written
// into the environment so target repositories need no configuration.
type javaAdapter struct {
	opts Options
}

func (a *javaAdapter) Language() string { return "java" }

// pmdBin prefers a distribution unpacked into the environment, falling back
// to a binary on PATH.
func pmdBin(dir string) string {
	local := filepath.Join(dir, "pmd", "bin", "pmd")
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return "pmd"
}

// Setup downloads and unpacks PMD into the environment unless a copy is
// already cached there or a pmd binary is on PATH. Checkstyle is optional:
// Run uses env/checkstyle.jar only when it exists.
func (a *javaAdapter) Setup(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, "pmd", "bin", "pmd")); err == nil {
		return writeJavaConfigs(dir)
	}
	if lookTool("pmd") {
		return writeJavaConfigs(dir)
	}

	res, err := runTool(ctx, a.opts.timeout(), dir, "curl", "-fsSL", "-o", "pmd-bin.zip", pmdReleaseZip)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("download pmd: exit %d: %s", res.ExitCode, res.Stderr)
	}
	res, err = runTool(ctx, a.opts.timeout(), dir, "unzip", "-q", "pmd-bin.zip")
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("unzip pmd: exit %d: %s", res.ExitCode, res.Stderr)
	}
	// The archive unpacks to a versioned directory; rename it to a stable
	// name so pmdBin does not depend on the release number.
	matches, err := filepath.Glob(filepath.Join(dir, "pmd-bin-*"))
	if err != nil || len(matches) == 0 {
		return fmt.Errorf("pmd distribution not found after unzip")
	}
	if err := os.Rename(matches[0], filepath.Join(dir, "pmd")); err != nil {
		return fmt.Errorf("rename pmd distribution: %w", err)
	}
	_ = os.Remove(filepath.Join(dir, "pmd-bin.zip"))
	return writeJavaConfigs(dir)
}

// Run invokes PMD over the repository and keeps findings for the requested
// files only, then adds Checkstyle findings when its jar is available. Both
// tools prefer structured output with a text fallback.
func (a *javaAdapter) Run(ctx context.Context, repoRoot string, files []string, env *envcache.Environment) (map[string][]issue.Issue, error) {
	wanted := make(map[string]string, len(files))
	for _, f := range files {
		wanted[f] = f
	}

	res, err := runTool(ctx, a.opts.timeout(), repoRoot,
		pmdBin(env.Path), "check",
		"-d", repoRoot,
		"-R", filepath.Join(env.Path, "pmd-ruleset.xml"),
		"-f", "json")
	if err != nil {
		return nil, fmt.Errorf("pmd: %w", err)
	}
	a.opts.Tracer.Printf("pmd: exit %d in %s\n", res.ExitCode, res.Duration)

	var list []issue.Issue
	if res.ExitCode != 0 || res.Stdout != "" {
		parsed, ok := parsePMDJSON(res.Stdout, wanted)
		if ok {
			list = append(list, parsed...)
		} else {
			for _, line := range parseText(formatPMD, res.Stdout, "") {
				if path, found := matchFile(line.Path, wanted); found {
					line.Path = path
					list = append(list, line)
				}
			}
		}
	}

	jar := filepath.Join(env.Path, "checkstyle.jar")
	if _, statErr := os.Stat(jar); statErr == nil {
		res, err = runTool(ctx, a.opts.timeout(), repoRoot,
			"java", "-jar", jar,
			"-c", filepath.Join(env.Path, "checkstyle.xml"),
			"-f", "xml", repoRoot)
		if err != nil {
			return nil, fmt.Errorf("checkstyle: %w", err)
		}
		a.opts.Tracer.Printf("checkstyle: exit %d in %s\n", res.ExitCode, res.Duration)
		parsed, ok := parseCheckstyleXML(res.Stdout, wanted)
		if ok {
			list = append(list, parsed...)
		} else {
			for _, line := range parseText(formatCheckstyle, res.Stdout, "") {
				if path, found := matchFile(line.Path, wanted); found {
					line.Path = path
					list = append(list, line)
				}
			}
		}
	}

	out := make(map[string][]issue.Issue)
	for _, is := range list {
		out[is.Path] = append(out[is.Path], is)
	}
	return out, nil
}
