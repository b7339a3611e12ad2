package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"codefixer/cli/internal/backend"
	"codefixer/cli/internal/config"
	"codefixer/cli/internal/detect"
	"codefixer/cli/internal/envcache"
	"codefixer/cli/internal/erruser"
	"codefixer/cli/internal/fixgen"
	"codefixer/cli/internal/gitapply"
	"codefixer/cli/internal/issue"
	"codefixer/cli/internal/linter"
	"codefixer/cli/internal/ollama"
	"codefixer/cli/internal/run"
	"codefixer/cli/internal/trace"
	"codefixer/cli/internal/version"
)

// errExit is an error that carries an exit code for the CLI. Use errors.As to detect it.
type errExit int

func (e errExit) Error() string {
	return "exit " + strconv.Itoa(int(e))
}

// stdout is the writer for command output. Tests may replace it to capture output.
var stdout io.Writer = os.Stdout

func main() {
	os.Exit(Run())
}

// Run is the entry point for the CLI. It is exported for testing so that
// main.go can meet per-file coverage requirements.
func Run() int {
	return runCLI(os.Args[1:])
}

func runCLI(args []string) int {
	rootCmd := &cobra.Command{
		Use:     "codefixer",
		Short:   "Lint a repository and fix the findings with a local LLM",
		Version: version.String(),
	}
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCleanupCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		var exitErr errExit
		if errors.As(err, &exitErr) {
			return int(exitErr)
		}
		fmt.Fprintln(os.Stderr, err)
		if u := errors.Unwrap(err); u != nil {
			fmt.Fprintf(os.Stderr, "Details: %v\n", u)
		}
		return 1
	}
	return 0
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [repo]",
		Short: "Lint the repository, generate fixes, and open a PR (default .)",
		Long: "Lint the repository, generate fixes with a local LLM, and open a PR.\n\n" +
			"Supported languages: " + strings.Join(detect.Supported(), ", ") + ".",
		RunE: runFix,
	}
	cmd.Flags().String("model", "", "Model name (overrides config and env)")
	cmd.Flags().String("backend", "", "LLM backend: ollama, llama.cpp, or openai (overrides config and env)")
	cmd.Flags().String("min-severity", "", "Drop issues below this severity: low, medium, high, critical")
	cmd.Flags().String("branch", "", "Branch name for the fixes")
	cmd.Flags().Int("workers", 0, "Parallel lint/fix workers (0 = CPU count, capped)")
	cmd.Flags().Duration("timeout", 0, "Per-attempt LLM timeout (overrides config and env)")
	cmd.Flags().Bool("lint-only", false, "Report issues without generating fixes")
	cmd.Flags().Bool("dry-run", false, "Generate fixes but do not write, commit, or push anything")
	cmd.Flags().Bool("no-push", false, "Apply and commit fixes but skip push and PR creation")
	cmd.Flags().Bool("allow-dirty", false, "Proceed with uncommitted changes")
	cmd.Flags().Bool("json", false, "Emit the run summary as JSON to stdout")
	cmd.Flags().Bool("trace", false, "Print internal steps to stderr (lint commands, prompts, retries)")
	return cmd
}

// runReport is the JSON payload for --json: the run summary plus the PR URL
// when one was created.
type runReport struct {
	*run.Summary
	PRURL string `json:"pr_url,omitempty"`
}

func runFix(cmd *cobra.Command, args []string) error {
	repoArg := "."
	if len(args) > 0 {
		repoArg = args[0]
	}
	repoRoot, err := filepath.Abs(repoArg)
	if err != nil {
		return erruser.New("Invalid repository path.", err)
	}
	if info, err := os.Stat(repoRoot); err != nil || !info.IsDir() {
		return erruser.New(fmt.Sprintf("%s is not a directory.", repoRoot), err)
	}

	lintOnly, _ := cmd.Flags().GetBool("lint-only")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noPush, _ := cmd.Flags().GetBool("no-push")
	allowDirty, _ := cmd.Flags().GetBool("allow-dirty")
	asJSON, _ := cmd.Flags().GetBool("json")
	traceOn, _ := cmd.Flags().GetBool("trace")

	cfg, err := config.Load(config.LoadOptions{
		RepoRoot:  repoRoot,
		Env:       os.Environ(),
		Overrides: flagOverrides(cmd),
	})
	if err != nil {
		return err
	}
	minSev, err := issue.ParseSeverity(cfg.MinSeverity)
	if err != nil {
		return erruser.New("Invalid minimum severity.", err)
	}

	var tr *trace.Tracer
	if traceOn {
		tr = trace.New(os.Stderr)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var generator run.FixGenerator
	if !lintOnly {
		be, err := backend.New(cfg.Backend, backend.Config{
			OllamaBaseURL: cfg.OllamaBaseURL,
			OpenAIBaseURL: cfg.OpenAIBaseURL,
			OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
			Temperature:   cfg.Temperature,
			NumCtx:        cfg.NumCtx,
		})
		if err != nil {
			return erruser.New("Unknown LLM backend.", err)
		}
		if cfg.Backend == "ollama" {
			if err := checkOllama(ctx, cfg); err != nil {
				return err
			}
		}
		generator = &fixgen.Generator{
			Backend:       be,
			Model:         cfg.Model,
			MaxRetries:    cfg.MaxRetries,
			Timeout:       cfg.Timeout,
			ContextLimit:  cfg.ContextLimit,
			WarnThreshold: cfg.WarnThreshold,
			Tracer:        tr,
		}
	}

	mgr, err := envcache.NewManager(cacheRoot(cfg), cfg.CacheMaxAge)
	if err != nil {
		return erruser.New("Could not prepare the environment cache.", err)
	}

	sum, err := run.Do(ctx, run.Options{
		RepoRoot:    repoRoot,
		Cache:       mgr,
		Generator:   generator,
		MinSeverity: minSev,
		Workers:     cfg.Workers,
		LintOpts:    linter.Options{Timeout: cfg.LintTimeout, Tracer: tr},
		Tracer:      tr,
	})
	if err != nil {
		return err
	}

	prURL := ""
	if len(sum.Fixes) > 0 && !lintOnly && !dryRun {
		prURL, err = applyAndShip(repoRoot, cfg.Branch, sum, noPush, allowDirty)
		if err != nil {
			return err
		}
	}

	if asJSON {
		return writeJSON(stdout, runReport{Summary: sum, PRURL: prURL})
	}
	writeSummary(stdout, sum, prURL, dryRun)
	return nil
}

// checkOllama verifies the server is up before the run starts; a missing
// model is only a warning because Ollama can pull on first use.
func checkOllama(ctx context.Context, cfg config.Config) error {
	res, err := ollama.NewClient(cfg.OllamaBaseURL, nil).Check(ctx, cfg.Model)
	if err != nil {
		return erruser.New("Ollama is not reachable. Start it with 'ollama serve'.", err)
	}
	if !res.ModelPresent {
		fmt.Fprintf(os.Stderr, "Warning: model %s not found on the server; run 'ollama pull %s' if generation fails.\n", cfg.Model, cfg.Model)
	}
	return nil
}

// applyAndShip writes the fixes on a branch, commits, and unless noPush is
// set pushes and opens a PR/MR. Returns the PR URL when one was created.
func applyAndShip(repoRoot, branch string, sum *run.Summary, noPush, allowDirty bool) (string, error) {
	gitRoot, err := gitapply.RepoRoot(repoRoot)
	if err != nil {
		return "", erruser.New("Fixes can only be applied inside a Git repository. Use --dry-run to preview.", err)
	}
	if !allowDirty {
		clean, err := gitapply.IsClean(gitRoot)
		if err != nil {
			return "", err
		}
		if !clean {
			return "", erruser.New("Working tree has uncommitted changes. Commit them or pass --allow-dirty.", nil)
		}
	}
	if err := gitapply.CreateBranch(gitRoot, branch); err != nil {
		return "", err
	}
	abs := make([]fixgen.Fix, len(sum.Fixes))
	for i, fix := range sum.Fixes {
		fix.Path = filepath.Join(repoRoot, fix.Path)
		abs[i] = fix
	}
	if err := gitapply.Apply(abs); err != nil {
		return "", erruser.New("Could not apply fixes; all files were restored.", err)
	}
	msg := fmt.Sprintf("Auto fixes by codefixer\n\nFixed %d files with linting issues", len(sum.Fixes))
	if err := gitapply.Commit(gitRoot, msg); err != nil {
		return "", err
	}
	if noPush {
		return "", nil
	}
	url, err := gitapply.PushAndPR(gitRoot, branch, sum.Issues, sum.Fixes)
	if errors.Is(err, gitapply.ErrNoForge) {
		fmt.Fprintln(os.Stderr, "Branch pushed; the remote host has no supported PR CLI, open the request manually.")
		return "", nil
	}
	return url, err
}

func cacheRoot(cfg config.Config) string {
	if cfg.CacheDir != "" {
		return cfg.CacheDir
	}
	return filepath.Join(os.TempDir(), "codefixer-envs")
}

func flagOverrides(cmd *cobra.Command) *config.Overrides {
	o := &config.Overrides{}
	if cmd.Flags().Changed("model") {
		v, _ := cmd.Flags().GetString("model")
		o.Model = &v
	}
	if cmd.Flags().Changed("backend") {
		v, _ := cmd.Flags().GetString("backend")
		o.Backend = &v
	}
	if cmd.Flags().Changed("min-severity") {
		v, _ := cmd.Flags().GetString("min-severity")
		o.MinSeverity = &v
	}
	if cmd.Flags().Changed("branch") {
		v, _ := cmd.Flags().GetString("branch")
		o.Branch = &v
	}
	if cmd.Flags().Changed("workers") {
		v, _ := cmd.Flags().GetInt("workers")
		o.Workers = &v
	}
	if cmd.Flags().Changed("timeout") {
		v, _ := cmd.Flags().GetDuration("timeout")
		o.Timeout = &v
	}
	return o
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return erruser.New("Could not write the run summary.", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return erruser.New("Could not write the run summary.", err)
	}
	return nil
}

func writeSummary(w io.Writer, sum *run.Summary, prURL string, dryRun bool) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	bold.Fprintf(w, "Languages: %v\n", sum.Languages)
	fmt.Fprintf(w, "Issues: %d in %d files\n", sum.TotalIssues, sum.FilesWithIssues)
	for _, fix := range sum.Fixes {
		green.Fprintf(w, "  fixed %s\n", fix.Path)
		if fix.Warning != "" {
			yellow.Fprintf(w, "    warning: %s\n", fix.Warning)
		}
	}
	for _, path := range sum.Unfixed {
		red.Fprintf(w, "  unfixed %s\n", path)
	}
	for lang, reason := range sum.Skipped {
		yellow.Fprintf(w, "  skipped %s: %s\n", lang, reason)
	}
	switch {
	case prURL != "":
		fmt.Fprintf(w, "Pull request: %s\n", prURL)
	case dryRun && len(sum.Fixes) > 0:
		fmt.Fprintln(w, "Dry run: no files were modified.")
	}
}

func newCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove cached linter environments",
		RunE:  runCleanup,
	}
	cmd.Flags().Bool("stale-only", false, "Remove only environments older than the configured max age")
	return cmd
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoadOptions{Env: os.Environ()})
	if err != nil {
		return err
	}
	mgr, err := envcache.NewManager(cacheRoot(cfg), cfg.CacheMaxAge)
	if err != nil {
		return erruser.New("Could not open the environment cache.", err)
	}
	staleOnly, _ := cmd.Flags().GetBool("stale-only")
	if staleOnly {
		mgr.EvictStale(cfg.CacheMaxAge)
	} else if err := mgr.PurgeAll(); err != nil {
		return erruser.New("Could not remove cached environments.", err)
	}
	fmt.Fprintf(stdout, "Cleaned %s\n", cacheRoot(cfg))
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE:  runConfig,
	}
}

func runConfig(cmd *cobra.Command, args []string) error {
	repoRoot, err := os.Getwd()
	if err != nil {
		return erruser.New("Could not determine the working directory.", err)
	}
	cfg, err := config.Load(config.LoadOptions{RepoRoot: repoRoot, Env: os.Environ()})
	if err != nil {
		return err
	}
	printSetting(stdout, "model", cfg.Model)
	printSetting(stdout, "backend", cfg.Backend)
	printSetting(stdout, "ollama_base_url", cfg.OllamaBaseURL)
	printSetting(stdout, "openai_base_url", cfg.OpenAIBaseURL)
	printSetting(stdout, "timeout", cfg.Timeout.String())
	printSetting(stdout, "lint_timeout", cfg.LintTimeout.String())
	printSetting(stdout, "max_retries", strconv.Itoa(cfg.MaxRetries))
	printSetting(stdout, "min_severity", cfg.MinSeverity)
	printSetting(stdout, "workers", strconv.Itoa(cfg.Workers))
	printSetting(stdout, "cache_dir", cacheRoot(cfg))
	printSetting(stdout, "cache_max_age", cfg.CacheMaxAge.String())
	printSetting(stdout, "context_limit", strconv.Itoa(cfg.ContextLimit))
	printSetting(stdout, "warn_threshold", strconv.FormatFloat(cfg.WarnThreshold, 'g', -1, 64))
	printSetting(stdout, "temperature", strconv.FormatFloat(cfg.Temperature, 'g', -1, 64))
	printSetting(stdout, "branch", cfg.Branch)
	return nil
}

func printSetting(w io.Writer, key, value string) {
	fmt.Fprintf(w, "%s = %q\n", key, value)
}
