package gitapply

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"codefixer/cli/internal/erruser"
	"codefixer/cli/internal/fixgen"
	"codefixer/cli/internal/issue"
)

// ErrNoForge indicates the origin remote is not a host with a supported CLI;
// the branch is pushed but the PR must be opened by hand.
var ErrNoForge = errors.New("remote host has no supported pull-request CLI")

// RemoteHost sniffs the origin remote URL and returns "github", "gitlab",
// "bitbucket", or "" when the host is unrecognized or there is no origin.
func RemoteHost(repoRoot string) string {
	out, err := gitOutput(repoRoot, "remote", "get-url", "origin")
	if err != nil {
		return ""
	}
	return parseForgeHost(strings.TrimSpace(out))
}

func parseForgeHost(url string) string {
	url = strings.ToLower(url)
	switch {
	case strings.Contains(url, "github.com"):
		return "github"
	case strings.Contains(url, "gitlab.com"):
		return "gitlab"
	case strings.Contains(url, "bitbucket.org"):
		return "bitbucket"
	default:
		return ""
	}
}

// PushAndPR pushes branch to origin and opens a pull request with gh or a
// merge request with glab, chosen by the origin host. Returns the PR/MR URL.
// An unsupported host returns ErrNoForge after the push succeeds.
func PushAndPR(repoRoot, branch string, issues map[string][]issue.Issue, fixes []fixgen.Fix) (string, error) {
	if err := Push(repoRoot, branch); err != nil {
		return "", err
	}
	title := fmt.Sprintf("Auto fixes by codefixer - %d files", len(fixes))
	body := prBody(issues, fixes)
	switch RemoteHost(repoRoot) {
	case "github":
		return runForgeCLI(repoRoot, "/pull/",
			"gh", "pr", "create", "--title", title, "--body", body, "--head", branch)
	case "gitlab":
		return runForgeCLI(repoRoot, "/-/merge_requests/",
			"glab", "mr", "create", "--title", title, "--description", body, "--source-branch", branch)
	default:
		return "", ErrNoForge
	}
}

// runForgeCLI runs the forge CLI and scans its stdout for the created URL,
// recognized by the urlMark path fragment.
func runForgeCLI(repoRoot, urlMark, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = repoRoot
	out, err := cmd.Output()
	if err != nil {
		return "", erruser.New(fmt.Sprintf("Could not create pull request with %s.", name), err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "https://") && strings.Contains(line, urlMark) {
			return line, nil
		}
	}
	return "", nil
}

// prBody renders the pull-request description: modified files, then the
// issues that were fixed per file. Only files with a fix are listed.
func prBody(issues map[string][]issue.Issue, fixes []fixgen.Fix) string {
	total := 0
	for _, list := range issues {
		total += len(list)
	}
	var b strings.Builder
	b.WriteString("## Summary\n\n")
	b.WriteString("This change contains automated fixes for linting issues detected by codefixer.\n\n")
	fmt.Fprintf(&b, "### Changes\n- Fixed %d files\n- Resolved %d linting issues\n\n", len(fixes), total)
	b.WriteString("### Files Modified\n")
	for _, fix := range fixes {
		fmt.Fprintf(&b, "- `%s`\n", fix.Path)
	}
	b.WriteString("\n### Linting Issues Fixed\n")
	for _, fix := range fixes {
		list, ok := issues[fix.Path]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n**%s:**\n", fix.Path)
		for _, is := range list {
			fmt.Fprintf(&b, "- Line %d: %s - %s\n", is.Row, is.Code, is.Text)
		}
	}
	return b.String()
}
