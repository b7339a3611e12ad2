package detect

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func write(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLanguages_classifiesByExtension(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	write(t, root, "app/main.py")
	write(t, root, "web/index.js")
	write(t, root, "web/app.tsx")
	write(t, root, "deploy/config.yaml")
	write(t, root, "README") // no extension, not detected

	langs, err := Languages(root)
	if err != nil {
		t.Fatalf("Languages: %v", err)
	}
	if got := langs["python"]; len(got) != 1 || got[0] != filepath.Join("app", "main.py") {
		t.Errorf("python = %v", got)
	}
	if got := langs["javascript"]; len(got) != 1 {
		t.Errorf("javascript = %v", got)
	}
	if got := langs["typescript"]; len(got) != 1 {
		t.Errorf("typescript = %v", got)
	}
	if got := langs["yaml"]; len(got) != 1 {
		t.Errorf("yaml = %v", got)
	}
	if _, ok := langs["markdown"]; ok {
		t.Errorf("unexpected language in %v", langs)
	}
}

func TestLanguages_skipsIgnoredAndHidden(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	write(t, root, "node_modules/pkg/index.js")
	write(t, root, ".venv/lib/thing.py")
	write(t, root, ".hidden.py")
	write(t, root, "src/ok.py")

	langs, err := Languages(root)
	if err != nil {
		t.Fatalf("Languages: %v", err)
	}
	if got := langs["python"]; len(got) != 1 || got[0] != filepath.Join("src", "ok.py") {
		t.Errorf("python = %v, want only src/ok.py", got)
	}
	if _, ok := langs["javascript"]; ok {
		t.Errorf("node_modules not ignored: %v", langs["javascript"])
	}
}

func TestLanguages_exactFilenames(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	write(t, root, "Dockerfile")
	write(t, root, "Makefile")

	langs, err := Languages(root)
	if err != nil {
		t.Fatalf("Languages: %v", err)
	}
	if len(langs["dockerfile"]) != 1 || len(langs["makefile"]) != 1 {
		t.Errorf("langs = %v", langs)
	}
}

func TestLanguages_emptyRepo(t *testing.T) {
	t.Parallel()
	langs, err := Languages(t.TempDir())
	if err != nil {
		t.Fatalf("Languages: %v", err)
	}
	if len(langs) != 0 {
		t.Errorf("langs = %v, want empty", langs)
	}
}

func TestSupported_sortedAndComplete(t *testing.T) {
	t.Parallel()
	langs := Supported()
	if !sort.StringsAreSorted(langs) {
		t.Errorf("Supported() = %v, want sorted", langs)
	}
	seen := make(map[string]bool, len(langs))
	for _, lang := range langs {
		seen[lang] = true
	}
	for _, want := range []string{"python", "javascript", "typescript", "go", "rust", "java", "css", "html", "yaml"} {
		if !seen[want] {
			t.Errorf("Supported() missing %q: %v", want, langs)
		}
	}
}
