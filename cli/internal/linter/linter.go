// Package linter runs external analyzers inside cached toolchain
// environments and normalizes their output into the canonical issue model.
// One adapter per language, uniform contract: setup installs tools into the
// environment (idempotent, absence-checked), run invokes the analyzer with a
// hard timeout and parses structured output with a mandatory text fallback.
package linter

import (
	"context"
	"errors"
	"time"

	"codefixer/cli/internal/envcache"
	"codefixer/cli/internal/issue"
	"codefixer/cli/internal/trace"
)

// DefaultTimeout bounds one analyzer subprocess invocation.
const DefaultTimeout = 5 * time.Minute

// ErrExecution indicates a transport-level analyzer failure: binary missing,
// timeout, or output that neither the JSON nor the text parser could read.
// A non-zero exit with parseable output is the normal "issues exist" signal,
// not an error.
var ErrExecution = errors.New("linter execution failed")

// Adapter lints one language's files inside a borrowed environment.
type Adapter interface {
	// Language is the name the adapter registers under.
	Language() string
	// Setup installs and verifies the language's tools in dir. It is run as
	// the environment setup step and must be idempotent.
	Setup(ctx context.Context, dir string) error
	// Run lints files (paths relative to repoRoot) and returns issues keyed
	// by file path. Files with zero issues are absent from the map; absence
	// means clean, not "not analyzed". Errors are batch-level only.
	Run(ctx context.Context, repoRoot string, files []string, env *envcache.Environment) (map[string][]issue.Issue, error)
}

// Options configures adapter construction.
type Options struct {
	// Timeout per analyzer subprocess; DefaultTimeout when zero.
	Timeout time.Duration
	// Tracer receives per-invocation diagnostics; nil-safe.
	Tracer *trace.Tracer
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

// ForLanguage returns the adapter for a language, or false when the language
// has no analyzer configured. The javascript adapter also handles typescript;
// the orchestrator merges those file sets before calling it.
func ForLanguage(lang string, opts Options) (Adapter, bool) {
	switch lang {
	case "python":
		return &pythonAdapter{opts: opts}, true
	case "javascript", "typescript":
		return &jsAdapter{opts: opts}, true
	case "go":
		return &goAdapter{opts: opts}, true
	case "rust":
		return &rustAdapter{opts: opts}, true
	case "java":
		return &javaAdapter{opts: opts}, true
	case "css":
		return &cssAdapter{opts: opts}, true
	case "html":
		return &htmlAdapter{opts: opts}, true
	case "yaml":
		return &yamlAdapter{opts: opts}, true
	default:
		return nil, false
	}
}
