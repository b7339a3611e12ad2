// Package prompt builds the fix-generation prompt from a file's content and
// its prioritized issues: template loading (repo override or default),
// issue-list formatting with a cap, and content compression for large files.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"codefixer/cli/internal/issue"
)

const templateFilename = "fix_prompt.txt"

// DefaultTemplate instructs the model to return corrected code only. The
// placeholders {path}, {code}, and {issues} are substituted by Build.
const DefaultTemplate = `You are a programming assistant. Below is a source file and its lint issues.

FILE: {path}

SOURCE CODE:
{code}

LINT ISSUES:
{issues}

Provide the corrected code with all lint issues fixed. Return only the corrected code without any explanations or markdown formatting.

CORRECTED CODE:
`

const (
	// MaxContentLen is the character ceiling before file content is
	// compressed into head and tail windows.
	MaxContentLen = 8000
	headWindow    = 5000
	tailWindow    = 2500
	// MaxIssues caps how many issues appear in the prompt; the list arrives
	// already prioritized, so the cap keeps the highest-value ones.
	MaxIssues = 10

	elisionMarker = "\n\n... [middle of file elided] ...\n\n"
)

// Template returns the fix prompt template: the repo override at
// .codefixer/fix_prompt.txt when present, otherwise DefaultTemplate.
// A missing override returns the default with nil error; any other read
// error (e.g. permission denied) is returned so the user can see it.
func Template(repoRoot string) (string, error) {
	if repoRoot == "" {
		return DefaultTemplate, nil
	}
	path := filepath.Join(repoRoot, ".codefixer", templateFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultTemplate, nil
		}
		return "", fmt.Errorf("read prompt template: %w", err)
	}
	return string(data), nil
}

// FormatIssues renders issues one per line ("Line R, Column C: CODE - text").
// At most MaxIssues lines are emitted; when the cap is hit a trailing
// synthetic line notes how many issues were omitted.
func FormatIssues(issues []issue.Issue) string {
	var b strings.Builder
	n := len(issues)
	shown := n
	if shown > MaxIssues {
		shown = MaxIssues
	}
	for i := 0; i < shown; i++ {
		is := issues[i]
		fmt.Fprintf(&b, "Line %d, Column %d: %s - %s\n", is.Row, is.Col, is.Code, is.Text)
	}
	if n > shown {
		fmt.Fprintf(&b, "... and %d more issues omitted\n", n-shown)
	}
	return strings.TrimRight(b.String(), "\n")
}

// CompressContent bounds content to MaxContentLen characters. Oversized
// content keeps a head and a tail window with an explicit elision marker
// between them, then is hard-truncated if somehow still too long.
func CompressContent(content string) string {
	if len(content) <= MaxContentLen {
		return content
	}
	out := content[:headWindow] + elisionMarker + content[len(content)-tailWindow:]
	if len(out) > MaxContentLen {
		out = out[:MaxContentLen]
	}
	return out
}

// Build substitutes file path, compressed content, and the formatted issue
// list into the template.
func Build(template, path, content string, issues []issue.Issue) string {
	r := strings.NewReplacer(
		"{path}", path,
		"{code}", CompressContent(content),
		"{issues}", FormatIssues(issues),
	)
	return r.Replace(template)
}
