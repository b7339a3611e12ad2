// Package detect discovers source files by language: a walk of the
// repository tree classifying files by extension or exact filename, with
// build artifacts, dependency trees, and hidden paths ignored.
package detect

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// extensions maps a lowercase file extension to its language.
var extensions = map[string]string{
	".py":   "python",
	".pyx":  "python",
	".pyi":  "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".go":   "go",
	".rs":   "rust",
	".java": "java",
	".html": "html",
	".htm":  "html",
	".css":  "css",
	".scss": "css",
	".sass": "css",
	".less": "css",
	".yml":  "yaml",
	".yaml": "yaml",
}

// filenames maps exact names (Dockerfile-style files without a meaningful
// extension) to a language.
var filenames = map[string]string{
	"dockerfile": "dockerfile",
	"makefile":   "makefile",
}

// ignoredDirs are skipped entirely during the walk.
var ignoredDirs = map[string]struct{}{
	".git":          {},
	"__pycache__":   {},
	"node_modules":  {},
	".venv":         {},
	"venv":          {},
	"env":           {},
	"build":         {},
	"dist":          {},
	"target":        {},
	".pytest_cache": {},
}

// Languages walks repoRoot and returns a map from language name to the
// files of that language, paths relative to repoRoot. Hidden files and
// directories are skipped. A language with no files is absent from the map.
func Languages(repoRoot string) (map[string][]string, error) {
	out := make(map[string][]string)
	err := filepath.WalkDir(repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal; partial detection
			// beats aborting the run.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path == repoRoot {
				return nil
			}
			if _, skip := ignoredDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		lang, ok := classify(name)
		if !ok {
			return nil
		}
		rel, relErr := filepath.Rel(repoRoot, path)
		if relErr != nil {
			rel = path
		}
		out[lang] = append(out[lang], rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func classify(name string) (string, bool) {
	if lang, ok := filenames[strings.ToLower(name)]; ok {
		return lang, true
	}
	if lang, ok := extensions[strings.ToLower(filepath.Ext(name))]; ok {
		return lang, true
	}
	return "", false
}

// Supported returns the language names detection can produce, sorted for
// stable display.
func Supported() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, lang := range extensions {
		if _, ok := seen[lang]; !ok {
			seen[lang] = struct{}{}
			out = append(out, lang)
		}
	}
	for _, lang := range filenames {
		if _, ok := seen[lang]; !ok {
			seen[lang] = struct{}{}
			out = append(out, lang)
		}
	}
	sort.Strings(out)
	return out
}
