// Package issue defines the canonical lint issue model shared by every
// adapter and pipeline stage: types, JSON contract, taxonomy classification,
// and the deduplicate/prioritize/filter pipeline. It is the single source of
// truth for issue records regardless of which tool produced them.
package issue

import (
	"fmt"
	"strings"
)

// Severity is the 4-level ordinal severity of an issue. Higher is worse.
type Severity int

const (
	SeverityLow      Severity = 1
	SeverityMedium   Severity = 2
	SeverityHigh     Severity = 3
	SeverityCritical Severity = 4
)

// String returns the lowercase name used in config, flags, and JSON output.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity parses a severity name ("low", "medium", "high", "critical").
func ParseSeverity(name string) (Severity, error) {
	switch name {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	}
	return 0, fmt.Errorf("unknown severity %q (want low, medium, high, or critical)", name)
}

// Category groups issues for display and filtering.
type Category string

const (
	CategorySecurity   Category = "security"
	CategoryUnusedCode Category = "unused_code"
	CategoryDebugging  Category = "debugging"
	CategoryStyle      Category = "style"
	CategoryFormatting Category = "formatting"
	CategoryOther      Category = "other"
)

// Issue is one normalized analyzer finding. Row and Col are 1-indexed; an
// adapter that cannot determine a position reports 1. Severity and Category
// are derived from the taxonomy at construction and again after a merge;
// an Issue is never mutated once it is in a result set.
type Issue struct {
	Path     string   `json:"path"`
	Row      int      `json:"row"`
	Col      int      `json:"col"`
	Code     string   `json:"code"`
	Text     string   `json:"text"`
	Severity string   `json:"severity,omitempty"`
	Category Category `json:"category,omitempty"`
}

// New builds a classified Issue. Row and Col are clamped to 1 when the tool
// reported zero or a negative position (unknown positions default to 1).
// Code is trimmed so whitespace variants of the same rule share a dedup key.
func New(path string, row, col int, code, text string) Issue {
	if row < 1 {
		row = 1
	}
	if col < 1 {
		col = 1
	}
	code = strings.TrimSpace(code)
	c := Classify(code, text)
	return Issue{
		Path:     path,
		Row:      row,
		Col:      col,
		Code:     code,
		Text:     text,
		Severity: c.Severity.String(),
		Category: c.Category,
	}
}
