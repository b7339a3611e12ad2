package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codefixer/cli/internal/erruser"
)

func writeRepoConfig(t *testing.T, root, body string) {
	t.Helper()
	dir := filepath.Join(root, ".codefixer")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

// nonexistentGlobal keeps tests off any real config in os.UserConfigDir.
func nonexistentGlobal(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "no-such", "config.toml")
}

func TestLoad_defaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(LoadOptions{RepoRoot: t.TempDir(), GlobalConfigPath: nonexistentGlobal(t)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := DefaultConfig()
	if cfg != want {
		t.Errorf("Load = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoad_repoFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeRepoConfig(t, root, `
model = "qwen2.5-coder:7b"
backend = "llama.cpp"
timeout = "90s"
lint_timeout = 120
max_retries = 5
min_severity = "high"
workers = 4
cache_max_age = "1h"
branch = "lint-fixes"
`)
	cfg, err := Load(LoadOptions{RepoRoot: root, GlobalConfigPath: nonexistentGlobal(t)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "qwen2.5-coder:7b" || cfg.Backend != "llama.cpp" {
		t.Errorf("model/backend = %q/%q", cfg.Model, cfg.Backend)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.Timeout)
	}
	if cfg.LintTimeout != 2*time.Minute {
		t.Errorf("LintTimeout = %v, want 2m (integer seconds)", cfg.LintTimeout)
	}
	if cfg.MaxRetries != 5 || cfg.MinSeverity != "high" || cfg.Workers != 4 {
		t.Errorf("retries/severity/workers = %d/%q/%d", cfg.MaxRetries, cfg.MinSeverity, cfg.Workers)
	}
	if cfg.CacheMaxAge != time.Hour {
		t.Errorf("CacheMaxAge = %v, want 1h", cfg.CacheMaxAge)
	}
	if cfg.Branch != "lint-fixes" {
		t.Errorf("Branch = %q", cfg.Branch)
	}
	// Fields not in the file keep defaults.
	if cfg.OllamaBaseURL != DefaultConfig().OllamaBaseURL {
		t.Errorf("OllamaBaseURL = %q, want default", cfg.OllamaBaseURL)
	}
}

func TestLoad_repoOverridesGlobal(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	global := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(global, []byte("model = \"global-model\"\nworkers = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeRepoConfig(t, root, "model = \"repo-model\"\n")
	cfg, err := Load(LoadOptions{RepoRoot: root, GlobalConfigPath: global})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "repo-model" {
		t.Errorf("Model = %q, want repo-model", cfg.Model)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2 from global", cfg.Workers)
	}
}

func TestLoad_envOverridesFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeRepoConfig(t, root, "model = \"repo-model\"\n")
	cfg, err := Load(LoadOptions{
		RepoRoot:         root,
		GlobalConfigPath: nonexistentGlobal(t),
		Env: []string{
			"CODEFIXER_MODEL=env-model",
			"CODEFIXER_TIMEOUT=45",
			"CODEFIXER_WARN_THRESHOLD=0.5",
			"CODEFIXER_MAX_RETRIES=7",
		},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "env-model" {
		t.Errorf("Model = %q, want env-model", cfg.Model)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Timeout)
	}
	if cfg.WarnThreshold != 0.5 {
		t.Errorf("WarnThreshold = %v, want 0.5", cfg.WarnThreshold)
	}
	if cfg.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want 7", cfg.MaxRetries)
	}
}

func TestLoad_overridesWinOverEnv(t *testing.T) {
	t.Parallel()
	model := "flag-model"
	workers := 9
	cfg, err := Load(LoadOptions{
		RepoRoot:         t.TempDir(),
		GlobalConfigPath: nonexistentGlobal(t),
		Env:              []string{"CODEFIXER_MODEL=env-model", "CODEFIXER_WORKERS=3"},
		Overrides:        &Overrides{Model: &model, Workers: &workers},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "flag-model" {
		t.Errorf("Model = %q, want flag-model", cfg.Model)
	}
	if cfg.Workers != 9 {
		t.Errorf("Workers = %d, want 9", cfg.Workers)
	}
}

func TestLoad_malformedFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeRepoConfig(t, root, "model = [broken\n")
	_, err := Load(LoadOptions{RepoRoot: root, GlobalConfigPath: nonexistentGlobal(t)})
	if err == nil {
		t.Fatal("want error for malformed TOML")
	}
	var uerr *erruser.Err
	if !errors.As(err, &uerr) {
		t.Errorf("error %v is not user-facing", err)
	}
}

func TestLoad_invalidEnvDuration(t *testing.T) {
	t.Parallel()
	_, err := Load(LoadOptions{
		RepoRoot:         t.TempDir(),
		GlobalConfigPath: nonexistentGlobal(t),
		Env:              []string{"CODEFIXER_TIMEOUT=soon"},
	})
	if err == nil {
		t.Fatal("want error for invalid duration")
	}
}

func TestLoad_invalidMinSeverity(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeRepoConfig(t, root, "min_severity = \"catastrophic\"\n")
	_, err := Load(LoadOptions{RepoRoot: root, GlobalConfigPath: nonexistentGlobal(t)})
	if err == nil {
		t.Fatal("want error for unknown severity")
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"2m", 2 * time.Minute},
		{"120", 120 * time.Second},
		{" 60 ", 60 * time.Second},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if err != nil {
			t.Fatalf("parseDuration(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDuration_invalid(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "x1m"} {
		if _, err := parseDuration(in); err == nil {
			t.Errorf("parseDuration(%q): want error", in)
		}
	}
}
