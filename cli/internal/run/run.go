// Package run orchestrates a full codefixer pass: language detection, cached
// environment acquisition, parallel linting, the issue pipeline, and fix
// generation. Per-language failures are recorded and skipped, never fatal;
// the summary reports whatever the healthy languages produced.
package run

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"codefixer/cli/internal/detect"
	"codefixer/cli/internal/envcache"
	"codefixer/cli/internal/fixgen"
	"codefixer/cli/internal/issue"
	"codefixer/cli/internal/linter"
	"codefixer/cli/internal/trace"
)

const maxWorkers = 8

// FixGenerator produces a fix for one file. *fixgen.Generator satisfies it.
type FixGenerator interface {
	Generate(ctx context.Context, repoRoot, path string, issues []issue.Issue) (fixgen.Fix, error)
}

// AdapterFunc resolves the analyzer adapter for a language.
type AdapterFunc func(lang string, opts linter.Options) (linter.Adapter, bool)

// Options configure a run. Zero-value fields fall back: Languages to
// filesystem detection, Adapters to the built-in set, Workers to CPU count
// capped at 8. A nil Generator makes the run lint-only.
type Options struct {
	RepoRoot    string
	Languages   map[string][]string
	Cache       *envcache.Manager
	Adapters    AdapterFunc
	Generator   FixGenerator
	MinSeverity issue.Severity
	Workers     int
	LintOpts    linter.Options
	Tracer      *trace.Tracer
}

// Summary is the outcome of one run. Issues holds the post-pipeline issues
// that drove fix generation; Skipped maps a language to the reason it
// produced nothing.
type Summary struct {
	Languages       []string                 `json:"languages"`
	FilesWithIssues int                      `json:"files_with_issues"`
	TotalIssues     int                      `json:"total_issues"`
	Issues          map[string][]issue.Issue `json:"issues"`
	Fixes           []fixgen.Fix             `json:"fixes"`
	Unfixed         []string                 `json:"unfixed,omitempty"`
	Skipped         map[string]string        `json:"skipped,omitempty"`
}

func workers(n int) int {
	if n > 0 {
		return n
	}
	if c := runtime.NumCPU(); c < maxWorkers {
		return c
	}
	return maxWorkers
}

// Do executes the pipeline and returns a summary. It returns an error only
// for run-level failures (detection, cache setup); analyzer and generation
// failures are folded into the summary.
func Do(ctx context.Context, opts Options) (*Summary, error) {
	tr := opts.Tracer
	langs := opts.Languages
	if langs == nil {
		var err error
		langs, err = detect.Languages(opts.RepoRoot)
		if err != nil {
			return nil, fmt.Errorf("detect languages: %w", err)
		}
	}
	// The javascript adapter lints typescript too; fold the file sets
	// together so the toolchain is set up once.
	if ts, ok := langs["typescript"]; ok {
		merged := append(append([]string{}, langs["javascript"]...), ts...)
		sort.Strings(merged)
		langs = cloneWithout(langs, "typescript")
		langs["javascript"] = merged
	}

	summary := &Summary{Skipped: map[string]string{}}
	for lang := range langs {
		summary.Languages = append(summary.Languages, lang)
	}
	sort.Strings(summary.Languages)
	tr.Section("lint")

	adapters := opts.Adapters
	if adapters == nil {
		adapters = linter.ForLanguage
	}
	fingerprint, err := envcache.Fingerprint(opts.RepoRoot)
	if err != nil {
		return nil, fmt.Errorf("fingerprint repo: %w", err)
	}

	var mu sync.Mutex
	merged := map[string][]issue.Issue{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(opts.Workers))
	for _, lang := range summary.Languages {
		lang := lang
		files := langs[lang]
		if len(files) == 0 {
			continue
		}
		g.Go(func() error {
			adapter, ok := adapters(lang, opts.LintOpts)
			if !ok {
				mu.Lock()
				summary.Skipped[lang] = "no analyzer configured"
				mu.Unlock()
				return nil
			}
			var env *envcache.Environment
			if opts.Cache != nil {
				var aerr error
				env, aerr = opts.Cache.Acquire(gctx, lang, fingerprint, adapter.Setup)
				if aerr != nil {
					mu.Lock()
					summary.Skipped[lang] = aerr.Error()
					mu.Unlock()
					tr.Printf("skip %s: %v", lang, aerr)
					return nil
				}
			}
			found, err := adapter.Run(gctx, opts.RepoRoot, files, env)
			if err != nil {
				mu.Lock()
				summary.Skipped[lang] = err.Error()
				mu.Unlock()
				tr.Printf("skip %s: %v", lang, err)
				return nil
			}
			mu.Lock()
			for path, list := range found {
				merged[path] = append(merged[path], list...)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tr.Section("pipeline")
	summary.Issues = issue.Pipeline(merged, opts.MinSeverity)
	summary.FilesWithIssues = len(summary.Issues)
	for _, list := range summary.Issues {
		summary.TotalIssues += len(list)
	}
	if summary.TotalIssues == 0 || opts.Generator == nil {
		return summary, nil
	}

	tr.Section("fixgen")
	paths := make([]string, 0, len(summary.Issues))
	for path := range summary.Issues {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers(opts.Workers))
	for _, path := range paths {
		path := path
		g.Go(func() error {
			fix, err := opts.Generator.Generate(gctx, opts.RepoRoot, path, summary.Issues[path])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Unfixed = append(summary.Unfixed, path)
				tr.Printf("unfixed %s: %v", path, err)
				return nil
			}
			summary.Fixes = append(summary.Fixes, fix)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(summary.Fixes, func(i, j int) bool { return summary.Fixes[i].Path < summary.Fixes[j].Path })
	sort.Strings(summary.Unfixed)
	return summary, nil
}

func cloneWithout(m map[string][]string, drop string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		if k != drop {
			out[k] = v
		}
	}
	return out
}
