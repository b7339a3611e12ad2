package fixgen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codefixer/cli/internal/issue"
)

// stubBackend scripts successive Invoke outcomes for retry tests.
type stubBackend struct {
	calls     int
	responses []string
	errs      []error
	prompts   []string
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Invoke(ctx context.Context, model, prompt string) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp string
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

func writeTarget(t *testing.T, content string) (root, path string) {
	t.Helper()
	root = t.TempDir()
	path = "app/main.py"
	full := filepath.Join(root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return root, path
}

const fixedFunc = "```\ndef f():\n    return 1\n\ndef g():\n    return 2\n```"

func testIssues() []issue.Issue {
	return []issue.Issue{issue.New("app/main.py", 2, 1, "E302", "expected 2 blank lines")}
}

func TestGenerate_success(t *testing.T) {
	t.Parallel()
	root, path := writeTarget(t, "def f():\n    return 1\ndef g():\n    return 2\n")
	sb := &stubBackend{responses: []string{fixedFunc}}
	g := &Generator{Backend: sb, Model: "m", BackoffUnit: time.Nanosecond, Sleep: func(time.Duration) {}}

	fix, err := g.Generate(context.Background(), root, path, testIssues())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if sb.calls != 1 {
		t.Errorf("calls = %d, want 1", sb.calls)
	}
	if !strings.Contains(fix.Content, "def g():") {
		t.Errorf("Content = %q", fix.Content)
	}
	if fix.Warning != "" {
		t.Errorf("unexpected warning %q", fix.Warning)
	}
	if fix.OriginalSHA256 == "" {
		t.Errorf("OriginalSHA256 empty")
	}
}

func TestGenerate_promptContainsFileAndIssues(t *testing.T) {
	t.Parallel()
	root, path := writeTarget(t, "def f():\n    return 1\n")
	sb := &stubBackend{responses: []string{fixedFunc}}
	g := &Generator{Backend: sb, Model: "m", Sleep: func(time.Duration) {}}

	if _, err := g.Generate(context.Background(), root, path, testIssues()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	p := sb.prompts[0]
	for _, want := range []string{"app/main.py", "E302", "expected 2 blank lines", "def f():"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerate_retryBound(t *testing.T) {
	t.Parallel()
	root, path := writeTarget(t, "def f():\n    return 1\n")
	boom := errors.New("backend down")
	sb := &stubBackend{errs: []error{boom, boom, boom}}
	var slept []time.Duration
	g := &Generator{
		Backend:     sb,
		MaxRetries:  3,
		BackoffUnit: time.Millisecond,
		Sleep:       func(d time.Duration) { slept = append(slept, d) },
	}

	_, err := g.Generate(context.Background(), root, path, testIssues())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if sb.calls != 3 {
		t.Errorf("calls = %d, want exactly 3", sb.calls)
	}
	want := []time.Duration{time.Millisecond, 2 * time.Millisecond}
	if len(slept) != len(want) {
		t.Fatalf("slept = %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("backoff[%d] = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestGenerate_failOnceThenSucceed(t *testing.T) {
	t.Parallel()
	root, path := writeTarget(t, "def f():\n    return 1\n\ndef g():\n    return 2\n")
	sb := &stubBackend{
		errs:      []error{errors.New("transient"), nil},
		responses: []string{"", fixedFunc},
	}
	g := &Generator{Backend: sb, Sleep: func(time.Duration) {}}

	fix, err := g.Generate(context.Background(), root, path, testIssues())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if sb.calls != 2 {
		t.Errorf("calls = %d, want 2 (stopped after success)", sb.calls)
	}
	if !strings.Contains(fix.Content, "def f():") {
		t.Errorf("Content = %q", fix.Content)
	}
}

func TestGenerate_emptyExtractionIsRetryable(t *testing.T) {
	t.Parallel()
	root, path := writeTarget(t, "def f():\n    return 1\n\ndef g():\n    return 2\n")
	sb := &stubBackend{responses: []string{"I cannot help with that.", fixedFunc}}
	g := &Generator{Backend: sb, Sleep: func(time.Duration) {}}

	if _, err := g.Generate(context.Background(), root, path, testIssues()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if sb.calls != 2 {
		t.Errorf("calls = %d, want 2", sb.calls)
	}
}

func TestGenerate_lineDriftWarning(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x = 1\n", 40)
	root, path := writeTarget(t, long)
	sb := &stubBackend{responses: []string{"```\nx = 1\ny = 2\nz = 3\n```"}}
	g := &Generator{Backend: sb, Sleep: func(time.Duration) {}}

	fix, err := g.Generate(context.Background(), root, path, testIssues())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if fix.Warning == "" {
		t.Errorf("expected line-drift warning")
	}
}

func TestGenerate_missingFile(t *testing.T) {
	t.Parallel()
	g := &Generator{Backend: &stubBackend{}, Sleep: func(time.Duration) {}}
	if _, err := g.Generate(context.Background(), t.TempDir(), "nope.py", nil); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	orig := strings.Repeat("line\n", 10)
	if !Validate(orig, strings.Repeat("line\n", 9)) {
		t.Errorf("close line counts rejected")
	}
	if Validate(orig, "short\n") {
		t.Errorf("drastic shrink accepted")
	}
	if Validate(orig, "") {
		t.Errorf("empty fix accepted")
	}
}
