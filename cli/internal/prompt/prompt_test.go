package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codefixer/cli/internal/issue"
)

func TestTemplate_defaultWhenNoOverride(t *testing.T) {
	t.Parallel()
	got, err := Template(t.TempDir())
	if err != nil {
		t.Fatalf("Template: %v", err)
	}
	if got != DefaultTemplate {
		t.Errorf("got %q, want default", got)
	}
}

func TestTemplate_repoOverride(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	dir := filepath.Join(root, ".codefixer")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	want := "fix {path}: {issues}\n{code}"
	if err := os.WriteFile(filepath.Join(dir, "fix_prompt.txt"), []byte(want), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Template(root)
	if err != nil {
		t.Fatalf("Template: %v", err)
	}
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatIssues_capsAndNotesOmitted(t *testing.T) {
	t.Parallel()
	var issues []issue.Issue
	for i := 1; i <= 14; i++ {
		issues = append(issues, issue.New("a.py", i, 1, "E501", fmt.Sprintf("line too long %d", i)))
	}
	got := FormatIssues(issues)
	lines := strings.Split(got, "\n")
	if len(lines) != MaxIssues+1 {
		t.Fatalf("lines = %d, want %d", len(lines), MaxIssues+1)
	}
	if lines[len(lines)-1] != "... and 4 more issues omitted" {
		t.Errorf("last line = %q", lines[len(lines)-1])
	}
}

func TestFormatIssues_singleLine(t *testing.T) {
	t.Parallel()
	got := FormatIssues([]issue.Issue{issue.New("a.py", 2, 1, "E302", "expected 2 blank lines")})
	want := "Line 2, Column 1: E302 - expected 2 blank lines"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCompressContent_smallPassesThrough(t *testing.T) {
	t.Parallel()
	in := "def f():\n    pass\n"
	if got := CompressContent(in); got != in {
		t.Errorf("small content changed: %q", got)
	}
}

func TestCompressContent_largeKeepsHeadAndTail(t *testing.T) {
	t.Parallel()
	head := strings.Repeat("H", 6000)
	tail := strings.Repeat("T", 6000)
	got := CompressContent(head + tail)
	if len(got) > MaxContentLen {
		t.Errorf("len = %d, want <= %d", len(got), MaxContentLen)
	}
	if !strings.HasPrefix(got, "H") {
		t.Errorf("head window missing")
	}
	if !strings.HasSuffix(got, "T") {
		t.Errorf("tail window missing")
	}
	if !strings.Contains(got, "elided") {
		t.Errorf("elision marker missing")
	}
}

func TestBuild_substitutesAll(t *testing.T) {
	t.Parallel()
	issues := []issue.Issue{issue.New("app/main.py", 2, 1, "E302", "expected 2 blank lines")}
	got := Build(DefaultTemplate, "app/main.py", "def f():\n    pass\n", issues)
	for _, want := range []string{
		"FILE: app/main.py",
		"def f():",
		"Line 2, Column 1: E302 - expected 2 blank lines",
		"CORRECTED CODE:",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(got, "{code}") || strings.Contains(got, "{issues}") || strings.Contains(got, "{path}") {
		t.Errorf("unsubstituted placeholder in prompt")
	}
}
