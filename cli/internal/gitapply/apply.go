// Package gitapply writes generated fixes into a working tree and wraps the
// surrounding git workflow: branch, commit, push, and PR/MR creation via the
// gh and glab CLIs. All git operations shell out to the git binary.
package gitapply

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"codefixer/cli/internal/fixgen"
)

const backupSuffix = ".backup"

// Apply writes each fix over its target file. Every existing target is copied
// to <path>.backup first. If any write fails, or a target's current content no
// longer matches the hash recorded when the fix was generated, all files
// written so far are restored from their backups and the error is returned.
// Backups are removed only after every write succeeds.
func Apply(fixes []fixgen.Fix) error {
	written := make([]string, 0, len(fixes))
	fail := func(err error) error {
		for _, path := range written {
			restoreBackup(path)
		}
		return err
	}
	for _, fix := range fixes {
		current, err := os.ReadFile(fix.Path)
		if err != nil {
			return fail(fmt.Errorf("read %s: %w", fix.Path, err))
		}
		if fix.OriginalSHA256 != "" {
			sum := sha256.Sum256(current)
			if hex.EncodeToString(sum[:]) != fix.OriginalSHA256 {
				return fail(fmt.Errorf("%s changed since it was linted", fix.Path))
			}
		}
		if err := copyFile(fix.Path, fix.Path+backupSuffix); err != nil {
			return fail(fmt.Errorf("backup %s: %w", fix.Path, err))
		}
		if err := os.WriteFile(fix.Path, []byte(fix.Content), fileMode(fix.Path)); err != nil {
			// The backup for this file exists; restore it too.
			written = append(written, fix.Path)
			return fail(fmt.Errorf("write %s: %w", fix.Path, err))
		}
		written = append(written, fix.Path)
	}
	for _, path := range written {
		os.Remove(path + backupSuffix)
	}
	return nil
}

func fileMode(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode(src))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// restoreBackup is best effort; a file whose backup cannot be read stays as
// written rather than being deleted.
func restoreBackup(path string) {
	backup := path + backupSuffix
	data, err := os.ReadFile(backup)
	if err != nil {
		return
	}
	if err := os.WriteFile(path, data, fileMode(path)); err != nil {
		return
	}
	os.Remove(backup)
}
