package linter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"codefixer/cli/internal/envcache"
	"codefixer/cli/internal/issue"
)

// rustAdapter lints with cargo clippy run once over the whole crate, since
// clippy compiles the project and cannot check isolated files.
type rustAdapter struct {
	opts Options
}

func (a *rustAdapter) Language() string { return "rust" }

// cargoBin prefers a toolchain installed into the environment, falling back
// to one on PATH.
func cargoBin(dir string) string {
	local := filepath.Join(dir, ".cargo", "bin", "cargo")
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return "cargo"
}

// Setup verifies cargo is invocable and adds the clippy component when it is
// missing. A full rustup bootstrap is out of scope for an ephemeral
// environment, so an absent toolchain fails setup.
func (a *rustAdapter) Setup(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".cargo", "bin", "cargo")); err != nil && !lookTool("cargo") {
		return fmt.Errorf("%w: cargo not found; install Rust via rustup", ErrExecution)
	}
	if lookTool("cargo-clippy") {
		return nil
	}
	if !lookTool("rustup") {
		return nil
	}
	res, err := runTool(ctx, a.opts.timeout(), dir, "rustup", "component", "add", "clippy")
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("install clippy: exit %d: %s", res.ExitCode, res.Stderr)
	}
	return nil
}

// Run invokes cargo clippy over the repository and keeps findings for the
// requested files only. A minimal Cargo.toml is written into the repository
// when it lacks one, since cargo refuses to run without a manifest. JSON
// diagnostics are preferred with a text fallback on the short format.
func (a *rustAdapter) Run(ctx context.Context, repoRoot string, files []string, env *envcache.Environment) (map[string][]issue.Issue, error) {
	wanted := make(map[string]string, len(files))
	for _, f := range files {
		wanted[f] = f
	}

	if err := writeConfig(repoRoot, "Cargo.toml", cargoManifest); err != nil {
		return nil, fmt.Errorf("write Cargo.toml: %w", err)
	}

	cargo := cargoBin(env.Path)
	res, err := runTool(ctx, a.opts.timeout(), repoRoot,
		cargo, "clippy", "--message-format=json", "--all-targets", "--all-features")
	if err != nil {
		return nil, fmt.Errorf("cargo clippy: %w", err)
	}
	a.opts.Tracer.Printf("cargo clippy: exit %d in %s\n", res.ExitCode, res.Duration)

	// Clippy emits diagnostics on stdout even when the build succeeds, so
	// the output is parsed regardless of exit code.
	list, ok := parseClippyJSON(res.Stdout, wanted)
	if !ok {
		for _, line := range parseText(formatClippy, res.Stderr, "") {
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
