// Package config provides codefixer configuration with a defined load order:
// CLI flags > environment variables > repo config > global config > defaults.
//
// Paths:
//   - Repo: .codefixer/config.toml (relative to repo root)
//   - Global: XDG config dir, e.g. ~/.config/codefixer/config.toml (see os.UserConfigDir)
//
// Environment variables (override config files when set):
//   - CODEFIXER_MODEL, CODEFIXER_BACKEND (ollama, llama.cpp, openai),
//   - CODEFIXER_OLLAMA_BASE_URL, CODEFIXER_OPENAI_BASE_URL,
//   - CODEFIXER_TIMEOUT, CODEFIXER_LINT_TIMEOUT, CODEFIXER_CACHE_MAX_AGE
//     (Go duration string or integer seconds),
//   - CODEFIXER_MAX_RETRIES, CODEFIXER_WORKERS, CODEFIXER_CONTEXT_LIMIT, CODEFIXER_NUM_CTX,
//   - CODEFIXER_MIN_SEVERITY (low, medium, high, critical),
//   - CODEFIXER_CACHE_DIR, CODEFIXER_BRANCH,
//   - CODEFIXER_WARN_THRESHOLD, CODEFIXER_TEMPERATURE.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"codefixer/cli/internal/erruser"
	"codefixer/cli/internal/issue"
)

const (
	_defaultModel         = "smollm2:135m"
	_defaultBackend       = "ollama"
	_defaultOllamaBaseURL = "http://localhost:11434"
	_defaultOpenAIBaseURL = "http://localhost:8080/v1"
	_defaultTimeout       = 2 * time.Minute
	_defaultLintTimeout   = 5 * time.Minute
	_defaultMaxRetries    = 3
	_defaultMinSeverity   = "low"
	_defaultCacheMaxAge   = 24 * time.Hour
	_defaultContextLimit  = 32768
	_defaultWarnThreshold = 0.8
	_defaultTemperature   = 0.2
	_defaultBranch        = "codefixer-fixes"
)

// Config holds all codefixer configuration. Empty CacheDir means the system
// temp dir; Workers <= 0 means derive from CPU count.
type Config struct {
	Model         string        `toml:"model"`
	Backend       string        `toml:"backend"`
	OllamaBaseURL string        `toml:"ollama_base_url"`
	OpenAIBaseURL string        `toml:"openai_base_url"`
	Timeout       time.Duration `toml:"timeout"`
	LintTimeout   time.Duration `toml:"lint_timeout"`
	MaxRetries    int           `toml:"max_retries"`
	MinSeverity   string        `toml:"min_severity"`
	Workers       int           `toml:"workers"`
	CacheDir      string        `toml:"cache_dir"`
	CacheMaxAge   time.Duration `toml:"cache_max_age"`
	ContextLimit  int           `toml:"context_limit"`
	WarnThreshold float64       `toml:"warn_threshold"`
	Temperature   float64       `toml:"temperature"`
	NumCtx        int           `toml:"num_ctx"`
	Branch        string        `toml:"branch"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Model:         _defaultModel,
		Backend:       _defaultBackend,
		OllamaBaseURL: _defaultOllamaBaseURL,
		OpenAIBaseURL: _defaultOpenAIBaseURL,
		Timeout:       _defaultTimeout,
		LintTimeout:   _defaultLintTimeout,
		MaxRetries:    _defaultMaxRetries,
		MinSeverity:   _defaultMinSeverity,
		CacheMaxAge:   _defaultCacheMaxAge,
		ContextLimit:  _defaultContextLimit,
		WarnThreshold: _defaultWarnThreshold,
		Temperature:   _defaultTemperature,
		Branch:        _defaultBranch,
	}
}

// Overrides are CLI-flag values; nil fields leave the loaded value alone.
type Overrides struct {
	Model       *string
	Backend     *string
	MinSeverity *string
	Branch      *string
	Workers     *int
	Timeout     *time.Duration
}

// LoadOptions control where Load reads from. Env is an os.Environ()-style
// list so tests can inject without mutating the process environment.
type LoadOptions struct {
	RepoRoot         string
	GlobalConfigPath string // empty means the os.UserConfigDir default
	Env              []string
	Overrides        *Overrides
}

// Load resolves the effective configuration. Missing config files are not
// errors; malformed ones are, so a typo never silently reverts to defaults.
func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	globalPath := opts.GlobalConfigPath
	if globalPath == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			globalPath = filepath.Join(dir, "codefixer", "config.toml")
		}
	}
	for _, path := range []string{globalPath, repoConfigPath(opts.RepoRoot)} {
		if path == "" {
			continue
		}
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := mergeEnv(&cfg, opts.Env); err != nil {
		return Config{}, err
	}
	mergeOverrides(&cfg, opts.Overrides)

	if _, err := issue.ParseSeverity(cfg.MinSeverity); err != nil {
		return Config{}, erruser.New("Invalid min_severity setting.", err)
	}
	return cfg, nil
}

func repoConfigPath(repoRoot string) string {
	if repoRoot == "" {
		return ""
	}
	return filepath.Join(repoRoot, ".codefixer", "config.toml")
}

// mergeFile reads path and merges into cfg. Only fields present in the file
// overwrite; a missing file is skipped. Durations are strings in TOML.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return erruser.New("Could not read config file.", err)
	}
	var file struct {
		Model         *string  `toml:"model"`
		Backend       *string  `toml:"backend"`
		OllamaBaseURL *string  `toml:"ollama_base_url"`
		OpenAIBaseURL *string  `toml:"openai_base_url"`
		Timeout       *string  `toml:"timeout"`
		LintTimeout   *string  `toml:"lint_timeout"`
		MaxRetries    *int64   `toml:"max_retries"`
		MinSeverity   *string  `toml:"min_severity"`
		Workers       *int64   `toml:"workers"`
		CacheDir      *string  `toml:"cache_dir"`
		CacheMaxAge   *string  `toml:"cache_max_age"`
		ContextLimit  *int64   `toml:"context_limit"`
		WarnThreshold *float64 `toml:"warn_threshold"`
		Temperature   *float64 `toml:"temperature"`
		NumCtx        *int64   `toml:"num_ctx"`
		Branch        *string  `toml:"branch"`
	}
	if _, err := toml.Decode(string(data), &file); err != nil {
		return erruser.New(fmt.Sprintf("Config file %s is malformed.", path), err)
	}
	if file.Model != nil && *file.Model != "" {
		cfg.Model = *file.Model
	}
	if file.Backend != nil && *file.Backend != "" {
		cfg.Backend = *file.Backend
	}
	if file.OllamaBaseURL != nil && *file.OllamaBaseURL != "" {
		cfg.OllamaBaseURL = *file.OllamaBaseURL
	}
	if file.OpenAIBaseURL != nil && *file.OpenAIBaseURL != "" {
		cfg.OpenAIBaseURL = *file.OpenAIBaseURL
	}
	for _, d := range []struct {
		v    *string
		dst  *time.Duration
		name string
	}{
		{file.Timeout, &cfg.Timeout, "timeout"},
		{file.LintTimeout, &cfg.LintTimeout, "lint_timeout"},
		{file.CacheMaxAge, &cfg.CacheMaxAge, "cache_max_age"},
	} {
		if d.v == nil || *d.v == "" {
			continue
		}
		dur, err := parseDuration(*d.v)
		if err != nil {
			return erruser.New(fmt.Sprintf("Configuration %s is invalid.", d.name), err)
		}
		*d.dst = dur
	}
	if file.MaxRetries != nil && *file.MaxRetries > 0 {
		cfg.MaxRetries = int(*file.MaxRetries)
	}
	if file.MinSeverity != nil && *file.MinSeverity != "" {
		cfg.MinSeverity = *file.MinSeverity
	}
	if file.Workers != nil && *file.Workers >= 0 {
		cfg.Workers = int(*file.Workers)
	}
	if file.CacheDir != nil {
		cfg.CacheDir = *file.CacheDir
	}
	if file.ContextLimit != nil && *file.ContextLimit > 0 {
		cfg.ContextLimit = int(*file.ContextLimit)
	}
	if file.WarnThreshold != nil && *file.WarnThreshold >= 0 {
		cfg.WarnThreshold = *file.WarnThreshold
	}
	if file.Temperature != nil && *file.Temperature >= 0 && *file.Temperature <= 2 {
		cfg.Temperature = *file.Temperature
	}
	if file.NumCtx != nil && *file.NumCtx > 0 {
		cfg.NumCtx = int(*file.NumCtx)
	}
	if file.Branch != nil && *file.Branch != "" {
		cfg.Branch = *file.Branch
	}
	return nil
}

func mergeEnv(cfg *Config, env []string) error {
	get := func(key string) (string, bool) {
		prefix := key + "="
		for i := len(env) - 1; i >= 0; i-- {
			if strings.HasPrefix(env[i], prefix) {
				return strings.TrimPrefix(env[i], prefix), true
			}
		}
		return "", false
	}
	if v, ok := get("CODEFIXER_MODEL"); ok {
		cfg.Model = v
	}
	if v, ok := get("CODEFIXER_BACKEND"); ok {
		cfg.Backend = v
	}
	if v, ok := get("CODEFIXER_OLLAMA_BASE_URL"); ok {
		cfg.OllamaBaseURL = v
	}
	if v, ok := get("CODEFIXER_OPENAI_BASE_URL"); ok {
		cfg.OpenAIBaseURL = v
	}
	if v, ok := get("CODEFIXER_MIN_SEVERITY"); ok {
		cfg.MinSeverity = v
	}
	if v, ok := get("CODEFIXER_CACHE_DIR"); ok {
		cfg.CacheDir = v
	}
	if v, ok := get("CODEFIXER_BRANCH"); ok {
		cfg.Branch = v
	}
	for _, d := range []struct {
		key  string
		dst  *time.Duration
		name string
	}{
		{"CODEFIXER_TIMEOUT", &cfg.Timeout, "timeout"},
		{"CODEFIXER_LINT_TIMEOUT", &cfg.LintTimeout, "lint timeout"},
		{"CODEFIXER_CACHE_MAX_AGE", &cfg.CacheMaxAge, "cache max age"},
	} {
		v, ok := get(d.key)
		if !ok {
			continue
		}
		dur, err := parseDuration(v)
		if err != nil {
			return erruser.New(fmt.Sprintf("Invalid %s in %s.", d.name, d.key), err)
		}
		*d.dst = dur
	}
	for _, n := range []struct {
		key  string
		dst  *int
		name string
	}{
		{"CODEFIXER_MAX_RETRIES", &cfg.MaxRetries, "retry count"},
		{"CODEFIXER_WORKERS", &cfg.Workers, "worker count"},
		{"CODEFIXER_CONTEXT_LIMIT", &cfg.ContextLimit, "context limit"},
		{"CODEFIXER_NUM_CTX", &cfg.NumCtx, "num_ctx"},
	} {
		v, ok := get(n.key)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return erruser.New(fmt.Sprintf("Invalid %s in %s.", n.name, n.key), err)
		}
		*n.dst = parsed
	}
	for _, f := range []struct {
		key  string
		dst  *float64
		name string
	}{
		{"CODEFIXER_WARN_THRESHOLD", &cfg.WarnThreshold, "warn threshold"},
		{"CODEFIXER_TEMPERATURE", &cfg.Temperature, "temperature"},
	} {
		v, ok := get(f.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return erruser.New(fmt.Sprintf("Invalid %s in %s.", f.name, f.key), err)
		}
		*f.dst = parsed
	}
	return nil
}

// parseDuration accepts a Go duration string or an integer number of seconds.
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func mergeOverrides(cfg *Config, o *Overrides) {
	if o == nil {
		return
	}
	if o.Model != nil {
		cfg.Model = *o.Model
	}
	if o.Backend != nil {
		cfg.Backend = *o.Backend
	}
	if o.MinSeverity != nil {
		cfg.MinSeverity = *o.MinSeverity
	}
	if o.Branch != nil {
		cfg.Branch = *o.Branch
	}
	if o.Workers != nil {
		cfg.Workers = *o.Workers
	}
	if o.Timeout != nil {
		cfg.Timeout = *o.Timeout
	}
}
