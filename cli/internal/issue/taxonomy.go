package issue

import "strings"

// Class is the taxonomy verdict for one rule code / message pair. A single
// ordered table drives priority score, severity level, and category so the
// three can never disagree about what a code means.
type Class struct {
	Category Category
	Severity Severity
	Priority int
}

// defaultClass is used when no taxonomy entry matches.
var defaultClass = Class{Category: CategoryOther, Severity: SeverityLow, Priority: 25}

// entry matches an issue by rule-code substring or by message keyword.
// Codes are compared case-insensitively as substrings so "no-unused-vars"
// matches the "no-unused" entry and "prettier/prettier" matches "prettier".
type entry struct {
	codes    []string
	keywords []string
	class    Class
}

// taxonomy is ordered most-severe first; the first matching entry wins.
var taxonomy = []entry{
	{
		codes:    []string{"s101", "s105", "s106", "s107", "no-eval", "no-implied-eval", "gosec"},
		keywords: []string{"security", "vulnerability", "unsafe", "dangerous"},
		class:    Class{Category: CategorySecurity, Severity: SeverityCritical, Priority: 100},
	},
	{
		codes: []string{"no-console"},
		class: Class{Category: CategoryDebugging, Severity: SeverityHigh, Priority: 50},
	},
	{
		codes: []string{"f401", "f403", "unused", "no-unused"},
		class: Class{Category: CategoryUnusedCode, Severity: SeverityHigh, Priority: 50},
	},
	{
		codes: []string{"prefer-const"},
		class: Class{Category: CategoryStyle, Severity: SeverityLow, Priority: 45},
	},
	{
		codes: []string{"e111", "e112", "indent"},
		class: Class{Category: CategoryStyle, Severity: SeverityMedium, Priority: 10},
	},
	{
		codes: []string{"quotes", "semi", "comma-dangle", "trailing-comma"},
		class: Class{Category: CategoryStyle, Severity: SeverityLow, Priority: 5},
	},
	{
		codes: []string{"e501", "max-len", "printwidth", "prettier", "line-length", "lll", "gofmt", "goimports"},
		class: Class{Category: CategoryFormatting, Severity: SeverityLow, Priority: 1},
	},
}

// Classify returns the taxonomy class for a rule code and message text.
// Matching is case-insensitive; code substrings are checked before message
// keywords within each entry, and entries are checked in table order.
func Classify(code, text string) Class {
	lowCode := strings.ToLower(code)
	lowText := strings.ToLower(text)
	for _, e := range taxonomy {
		for _, c := range e.codes {
			if strings.Contains(lowCode, c) {
				return e.class
			}
		}
		for _, k := range e.keywords {
			if strings.Contains(lowText, k) {
				return e.class
			}
		}
	}
	return defaultClass
}
