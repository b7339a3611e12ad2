// Package fixgen turns a flagged file plus its issues into corrected file
// contents by prompting a local inference backend. Per file the flow is a
// small state machine: build prompt, dispatch, then either succeed, retry
// with exponential backoff on a retryable failure, or give up after the
// attempt budget. Unknown backends never reach this package; backend.New
// rejects them up front.
package fixgen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codefixer/cli/internal/backend"
	"codefixer/cli/internal/issue"
	"codefixer/cli/internal/prompt"
	"codefixer/cli/internal/tokens"
	"codefixer/cli/internal/trace"
)

const (
	// DefaultMaxRetries is the total attempt budget per file.
	DefaultMaxRetries = 3
	// DefaultTimeout bounds one backend invocation.
	DefaultTimeout = 2 * time.Minute
	// defaultBackoffUnit is the base of the 2^attempt backoff.
	defaultBackoffUnit = time.Second
	// maxLineDrift is the advisory bound on how far a fix's line count may
	// stray from the original, as a fraction of the original.
	maxLineDrift = 0.5
)

// ErrExhausted indicates every attempt failed; the file is reported as
// unfixed, which is not fatal to the run.
var ErrExhausted = errors.New("fix generation retries exhausted")

// Fix is a validated generated fix for one file. OriginalSHA256 lets the
// applier detect that the file changed between linting and writing.
type Fix struct {
	Path           string `json:"path"`
	OriginalSHA256 string `json:"original_sha256,omitempty"`
	Content        string `json:"content"`
	// Warning is a non-empty advisory note when the fix looks suspicious
	// (line-count drift); the fix is still returned.
	Warning string `json:"warning,omitempty"`
}

// Generator drives fix generation against one backend. Fields with zero
// values fall back to the package defaults. A Generator is safe for
// concurrent use by multiple workers.
type Generator struct {
	Backend    backend.Backend
	Model      string
	MaxRetries int
	Timeout    time.Duration
	// Template overrides the fix prompt template; empty means the repo
	// override or the package default.
	Template string
	// ContextLimit and WarnThreshold feed the token-estimate warning;
	// zero ContextLimit disables it.
	ContextLimit  int
	WarnThreshold float64
	Tracer        *trace.Tracer
	// BackoffUnit shrinks the backoff base in tests; zero means one second.
	BackoffUnit time.Duration
	// Sleep replaces time.Sleep in tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

func (g *Generator) maxRetries() int {
	if g.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return g.MaxRetries
}

func (g *Generator) timeout() time.Duration {
	if g.Timeout <= 0 {
		return DefaultTimeout
	}
	return g.Timeout
}

func (g *Generator) backoff(attempt int) time.Duration {
	unit := g.BackoffUnit
	if unit <= 0 {
		unit = defaultBackoffUnit
	}
	return unit * (1 << attempt)
}

func (g *Generator) sleep(d time.Duration) {
	if g.Sleep != nil {
		g.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Generate produces a fix for path (relative to repoRoot) given its
// prioritized issues. Retryable failures (backend transport error, timeout,
// empty extraction) consume attempts; after the budget is spent the last
// error is returned wrapped in ErrExhausted.
func (g *Generator) Generate(ctx context.Context, repoRoot, path string, issues []issue.Issue) (Fix, error) {
	content, err := os.ReadFile(filepath.Join(repoRoot, path))
	if err != nil {
		return Fix{}, fmt.Errorf("read %s: %w", path, err)
	}
	original := string(content)

	tmpl := g.Template
	if tmpl == "" {
		tmpl, err = prompt.Template(repoRoot)
		if err != nil {
			return Fix{}, err
		}
	}
	p := prompt.Build(tmpl, path, original, issues)
	if warn := tokens.WarnIfOver(tokens.Estimate(p), tokens.DefaultResponseReserve, g.ContextLimit, g.WarnThreshold); warn != "" {
		g.Tracer.Printf("fixgen %s: %s\n", path, warn)
	}

	var lastErr error
	for attempt := 0; attempt < g.maxRetries(); attempt++ {
		if attempt > 0 {
			g.sleep(g.backoff(attempt - 1))
		}
		code, err := g.attempt(ctx, p)
		if err != nil {
			lastErr = err
			g.Tracer.Printf("fixgen %s: attempt %d/%d failed: %v\n", path, attempt+1, g.maxRetries(), err)
			continue
		}
		fix := Fix{
			Path:           path,
			OriginalSHA256: contentHash(original),
			Content:        code,
		}
		if !Validate(original, code) {
			fix.Warning = "generated fix has a very different line count from the original"
			g.Tracer.Printf("fixgen %s: %s\n", path, fix.Warning)
		}
		return fix, nil
	}
	return Fix{}, fmt.Errorf("%w: %s after %d attempts: %v", ErrExhausted, path, g.maxRetries(), lastErr)
}

// attempt runs one dispatch: invoke the backend under the per-attempt
// timeout and extract code from the response. Any failure here is
// retryable by construction.
func (g *Generator) attempt(ctx context.Context, p string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout())
	defer cancel()
	raw, err := g.Backend.Invoke(ctx, g.Model, p)
	if err != nil {
		return "", err
	}
	code := ExtractCode(raw)
	if code == "" {
		return "", errors.New("no code extracted from response")
	}
	return code, nil
}

// Validate reports whether a fix's line count stays within maxLineDrift of
// the original. The check is advisory: callers log the warning and decide
// whether to discard.
func Validate(original, fixed string) bool {
	if len(strings.TrimSpace(fixed)) < minPlausibleLen {
		return false
	}
	origLines := strings.Count(original, "\n") + 1
	fixedLines := strings.Count(fixed, "\n") + 1
	diff := origLines - fixedLines
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) <= float64(origLines)*maxLineDrift
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
