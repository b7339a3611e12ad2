package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"codefixer/cli/internal/detect"
	"codefixer/cli/internal/fixgen"
	"codefixer/cli/internal/run"
)

func TestRunCLI(t *testing.T) {
	if got := runCLI(nil); got != 0 {
		t.Errorf("runCLI(nil) = %d, want 0", got)
	}
	if got := runCLI([]string{"--help"}); got != 0 {
		t.Errorf("runCLI(--help) = %d, want 0", got)
	}
	if got := runCLI([]string{"no-such-command"}); got != 1 {
		t.Errorf("runCLI(no-such-command) = %d, want 1", got)
	}
}

func TestRunCLI_lintOnlyEmptyRepo(t *testing.T) {
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	defer func() { stdout = old }()

	repo := t.TempDir()
	if got := runCLI([]string{"run", "--lint-only", "--json", repo}); got != 0 {
		t.Fatalf("runCLI(run --lint-only) = %d, want 0", got)
	}
	var report runReport
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if report.TotalIssues != 0 || len(report.Fixes) != 0 {
		t.Errorf("empty repo report = %+v", report)
	}
}

func TestRunCLI_invalidSeverity(t *testing.T) {
	if got := runCLI([]string{"run", "--lint-only", "--min-severity", "bogus", t.TempDir()}); got != 1 {
		t.Error("invalid --min-severity should exit 1")
	}
}

func TestRunCmd_helpListsSupportedLanguages(t *testing.T) {
	long := newRunCmd().Long
	for _, lang := range detect.Supported() {
		if !strings.Contains(long, lang) {
			t.Errorf("run help missing language %q:\n%s", lang, long)
		}
	}
}

func TestFlagOverrides(t *testing.T) {
	cmd := newRunCmd()
	if err := cmd.Flags().Parse([]string{"--model", "m1", "--workers", "3"}); err != nil {
		t.Fatal(err)
	}
	o := flagOverrides(cmd)
	if o.Model == nil || *o.Model != "m1" {
		t.Errorf("Model override = %v", o.Model)
	}
	if o.Workers == nil || *o.Workers != 3 {
		t.Errorf("Workers override = %v", o.Workers)
	}
	if o.Backend != nil || o.Branch != nil || o.Timeout != nil {
		t.Error("unset flags must leave overrides nil")
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	sum := &run.Summary{
		Languages:       []string{"python"},
		FilesWithIssues: 1,
		TotalIssues:     2,
		Fixes:           []fixgen.Fix{{Path: "a.py", Warning: "line drift"}},
		Unfixed:         []string{"b.py"},
		Skipped:         map[string]string{"yaml": "yamllint missing"},
	}
	writeSummary(&buf, sum, "https://github.com/acme/widgets/pull/7", false)
	out := buf.String()
	for _, want := range []string{
		"Issues: 2 in 1 files",
		"fixed a.py",
		"line drift",
		"unfixed b.py",
		"skipped yaml",
		"pull/7",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
