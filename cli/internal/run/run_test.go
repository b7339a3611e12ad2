package run

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"codefixer/cli/internal/envcache"
	"codefixer/cli/internal/fixgen"
	"codefixer/cli/internal/issue"
	"codefixer/cli/internal/linter"
)

// stubAdapter returns canned issues per file, or fails the whole batch.
type stubAdapter struct {
	lang   string
	issues map[string][]issue.Issue
	runErr error

	mu     sync.Mutex
	setups int
	runs   int
}

func (a *stubAdapter) Language() string { return a.lang }

func (a *stubAdapter) Setup(ctx context.Context, dir string) error {
	a.mu.Lock()
	a.setups++
	a.mu.Unlock()
	return nil
}

func (a *stubAdapter) Run(ctx context.Context, repoRoot string, files []string, env *envcache.Environment) (map[string][]issue.Issue, error) {
	a.mu.Lock()
	a.runs++
	a.mu.Unlock()
	if a.runErr != nil {
		return nil, a.runErr
	}
	out := map[string][]issue.Issue{}
	for _, f := range files {
		if list, ok := a.issues[f]; ok {
			out[f] = list
		}
	}
	return out, nil
}

type stubGenerator struct {
	failPaths map[string]bool
}

func (g *stubGenerator) Generate(ctx context.Context, repoRoot, path string, issues []issue.Issue) (fixgen.Fix, error) {
	if g.failPaths[path] {
		return fixgen.Fix{}, fixgen.ErrExhausted
	}
	return fixgen.Fix{Path: path, Content: "fixed\n"}, nil
}

func adaptersFor(m map[string]*stubAdapter) AdapterFunc {
	return func(lang string, opts linter.Options) (linter.Adapter, bool) {
		a, ok := m[lang]
		return a, ok
	}
}

func TestDo_endToEnd(t *testing.T) {
	t.Parallel()
	py := &stubAdapter{lang: "python", issues: map[string][]issue.Issue{
		"a.py": {
			issue.New("a.py", 3, 1, "F401", "'os' imported but unused"),
			issue.New("a.py", 3, 1, "F401", "'os' imported but unused"),
		},
		"b.py": {issue.New("b.py", 1, 80, "E501", "line too long")},
	}}
	sum, err := Do(context.Background(), Options{
		RepoRoot:  t.TempDir(),
		Languages: map[string][]string{"python": {"a.py", "b.py", "clean.py"}},
		Adapters:  adaptersFor(map[string]*stubAdapter{"python": py}),
		Generator: &stubGenerator{},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !reflect.DeepEqual(sum.Languages, []string{"python"}) {
		t.Errorf("Languages = %v", sum.Languages)
	}
	if sum.FilesWithIssues != 2 {
		t.Errorf("FilesWithIssues = %d, want 2", sum.FilesWithIssues)
	}
	// The duplicate F401 collapses in the pipeline.
	if sum.TotalIssues != 2 {
		t.Errorf("TotalIssues = %d, want 2", sum.TotalIssues)
	}
	if len(sum.Fixes) != 2 || sum.Fixes[0].Path != "a.py" || sum.Fixes[1].Path != "b.py" {
		t.Errorf("Fixes = %+v", sum.Fixes)
	}
	if len(sum.Skipped) != 0 {
		t.Errorf("Skipped = %v, want none", sum.Skipped)
	}
}

func TestDo_languageFailureIsSkippedNotFatal(t *testing.T) {
	t.Parallel()
	py := &stubAdapter{lang: "python", issues: map[string][]issue.Issue{
		"a.py": {issue.New("a.py", 1, 1, "F401", "unused")},
	}}
	yml := &stubAdapter{lang: "yaml", runErr: errors.New("yamllint not installed")}
	sum, err := Do(context.Background(), Options{
		RepoRoot: t.TempDir(),
		Languages: map[string][]string{
			"python": {"a.py"},
			"yaml":   {"c.yml"},
		},
		Adapters:  adaptersFor(map[string]*stubAdapter{"python": py, "yaml": yml}),
		Generator: &stubGenerator{},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if sum.Skipped["yaml"] == "" {
		t.Error("yaml failure not recorded in Skipped")
	}
	if len(sum.Fixes) != 1 {
		t.Errorf("Fixes = %+v, want python fix despite yaml failure", sum.Fixes)
	}
}

func TestDo_mergesTypescriptIntoJavascript(t *testing.T) {
	t.Parallel()
	js := &stubAdapter{lang: "javascript", issues: map[string][]issue.Issue{}}
	sum, err := Do(context.Background(), Options{
		RepoRoot: t.TempDir(),
		Languages: map[string][]string{
			"javascript": {"app.js"},
			"typescript": {"app.ts"},
		},
		Adapters: adaptersFor(map[string]*stubAdapter{"javascript": js}),
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !reflect.DeepEqual(sum.Languages, []string{"javascript"}) {
		t.Errorf("Languages = %v, want merged javascript only", sum.Languages)
	}
	if js.runs != 1 {
		t.Errorf("javascript adapter ran %d times, want 1", js.runs)
	}
}

func TestDo_minSeverityFilters(t *testing.T) {
	t.Parallel()
	py := &stubAdapter{lang: "python", issues: map[string][]issue.Issue{
		"a.py": {
			issue.New("a.py", 1, 1, "S105", "hardcoded password"),
			issue.New("a.py", 2, 1, "E501", "line too long"),
		},
	}}
	sum, err := Do(context.Background(), Options{
		RepoRoot:    t.TempDir(),
		Languages:   map[string][]string{"python": {"a.py"}},
		Adapters:    adaptersFor(map[string]*stubAdapter{"python": py}),
		MinSeverity: issue.SeverityHigh,
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if sum.TotalIssues != 1 {
		t.Errorf("TotalIssues = %d, want only the security issue", sum.TotalIssues)
	}
}

func TestDo_unfixedRecordedOnGenerationFailure(t *testing.T) {
	t.Parallel()
	py := &stubAdapter{lang: "python", issues: map[string][]issue.Issue{
		"a.py": {issue.New("a.py", 1, 1, "F401", "unused")},
		"b.py": {issue.New("b.py", 1, 1, "F401", "unused")},
	}}
	sum, err := Do(context.Background(), Options{
		RepoRoot:  t.TempDir(),
		Languages: map[string][]string{"python": {"a.py", "b.py"}},
		Adapters:  adaptersFor(map[string]*stubAdapter{"python": py}),
		Generator: &stubGenerator{failPaths: map[string]bool{"b.py": true}},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(sum.Fixes) != 1 || sum.Fixes[0].Path != "a.py" {
		t.Errorf("Fixes = %+v", sum.Fixes)
	}
	if !reflect.DeepEqual(sum.Unfixed, []string{"b.py"}) {
		t.Errorf("Unfixed = %v", sum.Unfixed)
	}
}

func TestDo_lintOnlyWithoutGenerator(t *testing.T) {
	t.Parallel()
	py := &stubAdapter{lang: "python", issues: map[string][]issue.Issue{
		"a.py": {issue.New("a.py", 1, 1, "F401", "unused")},
	}}
	sum, err := Do(context.Background(), Options{
		RepoRoot:  t.TempDir(),
		Languages: map[string][]string{"python": {"a.py"}},
		Adapters:  adaptersFor(map[string]*stubAdapter{"python": py}),
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if sum.TotalIssues != 1 || len(sum.Fixes) != 0 {
		t.Errorf("TotalIssues = %d, Fixes = %+v", sum.TotalIssues, sum.Fixes)
	}
}

func TestDo_cacheSetupRunsOnce(t *testing.T) {
	t.Parallel()
	mgr, err := envcache.NewManager(t.TempDir(), envcache.DefaultMaxAge)
	if err != nil {
		t.Fatal(err)
	}
	py := &stubAdapter{lang: "python", issues: map[string][]issue.Issue{}}
	repo := t.TempDir()
	opts := Options{
		RepoRoot:  repo,
		Languages: map[string][]string{"python": {"a.py"}},
		Adapters:  adaptersFor(map[string]*stubAdapter{"python": py}),
		Cache:     mgr,
	}
	for i := 0; i < 2; i++ {
		if _, err := Do(context.Background(), opts); err != nil {
			t.Fatalf("Do #%d: %v", i+1, err)
		}
	}
	if py.setups != 1 {
		t.Errorf("Setup ran %d times, want 1 (cached environment reused)", py.setups)
	}
	if py.runs != 2 {
		t.Errorf("Run ran %d times, want 2", py.runs)
	}
}

func TestWorkers(t *testing.T) {
	t.Parallel()
	if got := workers(4); got != 4 {
		t.Errorf("workers(4) = %d", got)
	}
	if got := workers(0); got < 1 || got > maxWorkers {
		t.Errorf("workers(0) = %d, want 1..%d", got, maxWorkers)
	}
}
