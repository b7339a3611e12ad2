package issue

import (
	"sort"
	"strings"
)

// dedupKey is the tuple that identifies duplicate findings within one file.
type dedupKey struct {
	row, col int
	code     string
}

// Deduplicate collapses issues that collide on (row, col, code). Groups of
// size 1 pass through unchanged; larger groups merge into a new Issue whose
// text is the unique messages joined with "; " and whose code is the sorted,
// "+"-joined set of unique codes when more than one is present. Group order
// follows first appearance in the input, so the result is deterministic for
// a fixed input. Idempotent: deduplicating twice changes nothing.
func Deduplicate(issues []Issue) []Issue {
	if len(issues) <= 1 {
		return issues
	}
	order := make([]dedupKey, 0, len(issues))
	groups := make(map[dedupKey][]Issue, len(issues))
	for _, is := range issues {
		// Key on the trimmed code: merge rewrites codes trimmed, so a raw
		// key would make a second pass regroup what the first produced.
		k := dedupKey{row: is.Row, col: is.Col, code: strings.TrimSpace(is.Code)}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], is)
	}
	out := make([]Issue, 0, len(order))
	for _, k := range order {
		g := groups[k]
		if len(g) == 1 {
			out = append(out, g[0])
			continue
		}
		out = append(out, merge(g))
	}
	return out
}

// DeduplicateMap applies Deduplicate per file path. Files whose issue list
// is empty are dropped from the result; absence means clean.
func DeduplicateMap(byFile map[string][]Issue) map[string][]Issue {
	out := make(map[string][]Issue, len(byFile))
	for path, list := range byFile {
		if dd := Deduplicate(list); len(dd) > 0 {
			out[path] = dd
		}
	}
	return out
}

// merge combines a group of issues sharing a dedup key into one new Issue.
// The merged issue is classified from the combined code and text, so its
// severity and category reflect the worst-matching member.
func merge(group []Issue) Issue {
	base := group[0]
	var texts []string
	seenText := make(map[string]struct{})
	var codes []string
	seenCode := make(map[string]struct{})
	for _, is := range group {
		t := strings.TrimSpace(is.Text)
		if t != "" {
			if _, ok := seenText[t]; !ok {
				seenText[t] = struct{}{}
				texts = append(texts, t)
			}
		}
		c := strings.TrimSpace(is.Code)
		if c != "" {
			if _, ok := seenCode[c]; !ok {
				seenCode[c] = struct{}{}
				codes = append(codes, c)
			}
		}
	}
	text := strings.Join(texts, "; ")
	code := base.Code
	if len(codes) == 1 {
		code = codes[0]
	} else if len(codes) > 1 {
		sort.Strings(codes)
		code = strings.Join(codes, "+")
	}
	return New(base.Path, base.Row, base.Col, code, text)
}

// Prioritize returns the issues stable-sorted descending by taxonomy
// priority score. Ties keep their original relative order, so the output
// is deterministic for a fixed input.
func Prioritize(issues []Issue) []Issue {
	out := make([]Issue, len(issues))
	copy(out, issues)
	sort.SliceStable(out, func(i, j int) bool {
		return Classify(out[i].Code, out[i].Text).Priority > Classify(out[j].Code, out[j].Text).Priority
	})
	return out
}

// FilterBySeverity keeps only issues whose derived severity level is at
// least min. Severity is derived from the taxonomy, not trusted from the
// record, so a merged issue filters by its recomputed class.
func FilterBySeverity(issues []Issue, min Severity) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, is := range issues {
		if Classify(is.Code, is.Text).Severity >= min {
			out = append(out, is)
		}
	}
	return out
}

// Pipeline runs the fixed three-stage normalization order over a per-file
// issue map: deduplicate, prioritize, filter. Files whose issues all fall
// below min disappear from the result.
func Pipeline(byFile map[string][]Issue, min Severity) map[string][]Issue {
	deduped := DeduplicateMap(byFile)
	out := make(map[string][]Issue, len(deduped))
	for path, list := range deduped {
		list = FilterBySeverity(Prioritize(list), min)
		if len(list) > 0 {
			out[path] = list
		}
	}
	return out
}
