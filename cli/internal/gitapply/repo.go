package gitapply

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"codefixer/cli/internal/erruser"
)

// RepoRoot returns the absolute path of the git repository root containing dir.
func RepoRoot(dir string) (string, error) {
	out, err := gitOutput(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", erruser.New("This directory is not inside a Git repository.", err)
	}
	return filepath.Abs(strings.TrimSpace(out))
}

// IsClean reports whether the working tree at repoRoot has no uncommitted
// changes. True only if "git status --porcelain" prints nothing.
func IsClean(repoRoot string) (bool, error) {
	out, err := gitOutput(repoRoot, "status", "--porcelain")
	if err != nil {
		return false, erruser.New("Could not check working tree status.", err)
	}
	return strings.TrimSpace(out) == "", nil
}

// CreateBranch creates and checks out name. If the branch already exists it is
// checked out as-is.
func CreateBranch(repoRoot, name string) error {
	if _, err := gitOutput(repoRoot, "rev-parse", "--verify", "refs/heads/"+name); err == nil {
		if _, err := gitOutput(repoRoot, "checkout", name); err != nil {
			return erruser.New(fmt.Sprintf("Could not check out branch %s.", name), err)
		}
		return nil
	}
	if _, err := gitOutput(repoRoot, "checkout", "-b", name); err != nil {
		return erruser.New(fmt.Sprintf("Could not create branch %s.", name), err)
	}
	return nil
}

// Commit stages everything and commits with the given message.
func Commit(repoRoot, message string) error {
	if _, err := gitOutput(repoRoot, "add", "-A"); err != nil {
		return erruser.New("Could not stage fixed files.", err)
	}
	if _, err := gitOutput(repoRoot, "commit", "-m", message); err != nil {
		return erruser.New("Could not commit fixes.", err)
	}
	return nil
}

// Push pushes branch to origin, setting the upstream.
func Push(repoRoot, branch string) error {
	if _, err := gitOutput(repoRoot, "push", "-u", "origin", branch); err != nil {
		return erruser.New(fmt.Sprintf("Could not push branch %s to origin.", branch), err)
	}
	return nil
}

func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = minimalEnv()
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}

func minimalEnv() []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_PAGER=cat", // prevent pager; subprocess output is captured
	}
	if home := os.Getenv("HOME"); home != "" {
		env = append(env, "HOME="+home)
	} else if runtime.GOOS == "windows" {
		if profile := os.Getenv("USERPROFILE"); profile != "" {
			env = append(env, "HOME="+profile)
		}
	}
	return env
}
