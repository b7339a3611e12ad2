package linter

import (
	"encoding/json"
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"codefixer/cli/internal/issue"
)

// textFormat selects the line-oriented fallback parser for one tool's text
// output. Every adapter that prefers JSON must also name a text format;
// some analyzers only emit JSON for certain exit codes, so the fallback is
// mandatory, not best-effort.
type textFormat int

const (
	formatFlake8 textFormat = iota
	formatMypy
	formatESLint
	formatTSLint
	formatGolangci
	formatYamllint
	formatClippy
	formatPMD
	formatCheckstyle
	formatStylelint
	formatHTMLHint
)

var (
	// path:line:col: CODE message
	flake8Line = regexp.MustCompile(`^(.+?):(\d+):(\d+):\s*(\S+)\s+(.+)$`)
	// path:line: error: message
	mypyLine = regexp.MustCompile(`^(.+?):(\d+):\s*error:\s*(.+)$`)
	// path:line:col  severity  message  (rule)
	eslintLine = regexp.MustCompile(`^(.+?):(\d+):(\d+)\s+(?:error|warn|warning)?\s*(.+?)\s*\((\S+)\)$`)
	// path[line, col]: severity: message
	tslintLine = regexp.MustCompile(`\[(\d+),\s*(\d+)\]:\s*(?:error|warning):\s*(.+)$`)
	// path:line:col: message (linter)
	golangciLine = regexp.MustCompile(`^(.+?):(\d+):(\d+):\s*(.+?)\s+\((\S+)\)$`)
	// path:line:col: [level] message (rule)
	yamllintLine = regexp.MustCompile(`^(.+?):(\d+):(\d+):\s*\[(\w+)\]\s*(.+?)(?:\s+\((\S+)\))?$`)
	// path:line:col: level[code]: message  (cargo --message-format short)
	clippyLine = regexp.MustCompile(`^(.+?):(\d+):(\d+):\s*(?:error|warning)(?:\[(\S+?)\])?:\s*(.+)$`)
	// path:line: rule: message  (pmd text renderer)
	pmdLine = regexp.MustCompile(`^(.+?\.java):(\d+):\s*(\S+?):\s*(.+)$`)
	// [LEVEL] path:line:col: message [Rule]  (checkstyle plain renderer)
	checkstyleLine = regexp.MustCompile(`^\[(?:ERROR|WARN|INFO)\]\s+(.+?):(\d+)(?::(\d+))?:\s*(.+?)\s*\[(\S+)\]$`)
	// path:line:col: message (rule)  (stylelint and htmlhint string output)
	cssHTMLLine = regexp.MustCompile(`^(.+?):(\d+):(\d+):?\s*(.+?)(?:\s+\((\S+)\))?$`)
)

// parseText runs the fallback parser for format over output, attributing
// every extracted issue to path. Unparseable lines are skipped; an output
// with no matching lines yields an empty list (silent degradation).
func parseText(format textFormat, output, path string) []issue.Issue {
	var out []issue.Issue
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if is, ok := parseTextLine(format, line, path); ok {
			out = append(out, is)
		}
	}
	return out
}

func parseTextLine(format textFormat, line, path string) (issue.Issue, bool) {
	switch format {
	case formatFlake8:
		if m := flake8Line.FindStringSubmatch(line); m != nil {
			return issue.New(path, atoi(m[2]), atoi(m[3]), m[4], strings.TrimSpace(m[5])), true
		}
	case formatMypy:
		if strings.HasPrefix(line, "Found ") {
			return issue.Issue{}, false
		}
		if m := mypyLine.FindStringSubmatch(line); m != nil {
			return issue.New(path, atoi(m[2]), 1, "mypy", strings.TrimSpace(m[3])), true
		}
	case formatESLint:
		if m := eslintLine.FindStringSubmatch(line); m != nil {
			return issue.New(path, atoi(m[2]), atoi(m[3]), m[5], strings.TrimSpace(m[4])), true
		}
	case formatTSLint:
		if m := tslintLine.FindStringSubmatch(line); m != nil {
			return issue.New(path, atoi(m[1]), atoi(m[2]), "TSLINT", strings.TrimSpace(m[3])), true
		}
	case formatGolangci:
		// golangci-lint runs over a whole batch, so the reported filename is
		// authoritative; the caller resolves it back to a requested file.
		if m := golangciLine.FindStringSubmatch(line); m != nil {
			return issue.New(m[1], atoi(m[2]), atoi(m[3]), m[5], strings.TrimSpace(m[4])), true
		}
	case formatYamllint:
		if m := yamllintLine.FindStringSubmatch(line); m != nil {
			code := m[6]
			if code == "" {
				code = "yamllint"
			}
			return issue.New(path, atoi(m[2]), atoi(m[3]), code, strings.TrimSpace(m[5])), true
		}
	case formatClippy:
		// Batch output: the reported filename is authoritative, the caller
		// resolves it back to a requested file.
		if m := clippyLine.FindStringSubmatch(line); m != nil {
			code := m[4]
			if code == "" {
				code = "clippy"
			}
			return issue.New(m[1], atoi(m[2]), atoi(m[3]), code, strings.TrimSpace(m[5])), true
		}
	case formatPMD:
		if m := pmdLine.FindStringSubmatch(line); m != nil {
			return issue.New(m[1], atoi(m[2]), 1, m[3], strings.TrimSpace(m[4])), true
		}
	case formatCheckstyle:
		if m := checkstyleLine.FindStringSubmatch(line); m != nil {
			return issue.New(m[1], atoi(m[2]), atoi(m[3]), m[5], strings.TrimSpace(m[4])), true
		}
	case formatStylelint, formatHTMLHint:
		if m := cssHTMLLine.FindStringSubmatch(line); m != nil {
			code := m[5]
			if code == "" {
				code = "unknown"
			}
			return issue.New(path, atoi(m[2]), atoi(m[3]), code, strings.TrimSpace(m[4])), true
		}
	}
	return issue.Issue{}, false
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return n
}

// eslintJSON is ESLint's --format=json output shape.
type eslintJSON []struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		RuleID  string `json:"ruleId"`
		Message string `json:"message"`
		Line    int    `json:"line"`
		Column  int    `json:"column"`
	} `json:"messages"`
}

// parseESLintJSON converts ESLint JSON output into issues attributed to
// path. Returns false when the payload is not valid ESLint JSON so the
// caller can fall back to the text parser.
func parseESLintJSON(raw, path string) ([]issue.Issue, bool) {
	var parsed eslintJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}
	var out []issue.Issue
	for _, file := range parsed {
		for _, m := range file.Messages {
			code := m.RuleID
			if code == "" {
				code = "unknown"
			}
			out = append(out, issue.New(path, m.Line, m.Column, code, m.Message))
		}
	}
	return out, true
}

// tslintJSON is TSLint's --format json output shape.
type tslintJSON []struct {
	RuleName      string `json:"ruleName"`
	Failure       string `json:"failure"`
	StartPosition struct {
		Line      int `json:"line"`
		Character int `json:"character"`
	} `json:"startPosition"`
}

func parseTSLintJSON(raw, path string) ([]issue.Issue, bool) {
	var parsed tslintJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}
	var out []issue.Issue
	for _, f := range parsed {
		code := f.RuleName
		if code == "" {
			code = "unknown"
		}
		out = append(out, issue.New(path, f.StartPosition.Line, f.StartPosition.Character, code, f.Failure))
	}
	return out, true
}

// golangciJSON is golangci-lint's --out-format json output shape.
type golangciJSON struct {
	Issues []struct {
		FromLinter string `json:"FromLinter"`
		Text       string `json:"Text"`
		Pos        struct {
			Filename string `json:"Filename"`
			Line     int    `json:"Line"`
			Column   int    `json:"Column"`
		} `json:"Pos"`
	} `json:"Issues"`
}

// parseGolangciJSON converts a batch golangci-lint run into issues, keeping
// only findings whose filename matches one of the requested files.
func parseGolangciJSON(raw string, files map[string]string) ([]issue.Issue, bool) {
	var parsed golangciJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}
	var out []issue.Issue
	for _, gi := range parsed.Issues {
		path, ok := matchFile(gi.Pos.Filename, files)
		if !ok {
			continue
		}
		code := gi.FromLinter
		if code == "" {
			code = "golangci-lint"
		}
		out = append(out, issue.New(path, gi.Pos.Line, gi.Pos.Column, code, gi.Text))
	}
	return out, true
}

// clippyMessage is one line of cargo's --message-format=json NDJSON stream.
// Only compiler-message records carry diagnostics; the rest are build
// artifacts and are skipped.
type clippyMessage struct {
	Reason  string `json:"reason"`
	Message struct {
		Message string `json:"message"`
		Code    struct {
			Code string `json:"code"`
		} `json:"code"`
		Spans []struct {
			FileName    string `json:"file_name"`
			LineStart   int    `json:"line_start"`
			ColumnStart int    `json:"column_start"`
		} `json:"spans"`
	} `json:"message"`
}

// parseClippyJSON converts a batch cargo clippy run into issues, keeping
// only findings whose span filename matches one of the requested files.
// Returns false when no line decodes as a cargo message.
func parseClippyJSON(raw string, files map[string]string) ([]issue.Issue, bool) {
	var out []issue.Issue
	decoded := false
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var msg clippyMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		decoded = true
		if msg.Reason != "compiler-message" || len(msg.Message.Spans) == 0 {
			continue
		}
		span := msg.Message.Spans[0]
		path, ok := matchFile(span.FileName, files)
		if !ok {
			continue
		}
		code := msg.Message.Code.Code
		if code == "" {
			code = "clippy"
		}
		out = append(out, issue.New(path, span.LineStart, span.ColumnStart, code, msg.Message.Message))
	}
	return out, decoded
}

// pmdJSON is PMD 7's -f json report shape.
type pmdJSON struct {
	Files []struct {
		Filename   string `json:"filename"`
		Violations []struct {
			BeginLine   int    `json:"beginline"`
			BeginColumn int    `json:"begincolumn"`
			Description string `json:"description"`
			Rule        string `json:"rule"`
		} `json:"violations"`
	} `json:"files"`
}

// parsePMDJSON converts a batch PMD run into issues, keeping only findings
// whose filename matches one of the requested files.
func parsePMDJSON(raw string, files map[string]string) ([]issue.Issue, bool) {
	var parsed pmdJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}
	var out []issue.Issue
	for _, f := range parsed.Files {
		path, ok := matchFile(f.Filename, files)
		if !ok {
			continue
		}
		for _, v := range f.Violations {
			code := v.Rule
			if code == "" {
				code = "pmd"
			}
			out = append(out, issue.New(path, v.BeginLine, v.BeginColumn, code, v.Description))
		}
	}
	return out, true
}

// checkstyleXML is Checkstyle's -f xml report shape.
type checkstyleXML struct {
	XMLName xml.Name `xml:"checkstyle"`
	Files   []struct {
		Name   string `xml:"name,attr"`
		Errors []struct {
			Line    int    `xml:"line,attr"`
			Column  int    `xml:"column,attr"`
			Message string `xml:"message,attr"`
			Source  string `xml:"source,attr"`
		} `xml:"error"`
	} `xml:"file"`
}

// parseCheckstyleXML converts a batch Checkstyle run into issues, keeping
// only findings whose filename matches one of the requested files. The
// rule code is the last segment of the qualified check class name.
func parseCheckstyleXML(raw string, files map[string]string) ([]issue.Issue, bool) {
	var parsed checkstyleXML
	if err := xml.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}
	var out []issue.Issue
	for _, f := range parsed.Files {
		path, ok := matchFile(f.Name, files)
		if !ok {
			continue
		}
		for _, e := range f.Errors {
			code := e.Source
			if i := strings.LastIndex(code, "."); i >= 0 {
				code = code[i+1:]
			}
			if code == "" {
				code = "checkstyle"
			}
			col := e.Column
			if col == 0 {
				col = 1
			}
			out = append(out, issue.New(path, e.Line, col, code, e.Message))
		}
	}
	return out, true
}

// stylelintJSON is stylelint's --formatter json output shape.
type stylelintJSON []struct {
	Source   string `json:"source"`
	Warnings []struct {
		Line   int    `json:"line"`
		Column int    `json:"column"`
		Rule   string `json:"rule"`
		Text   string `json:"text"`
	} `json:"warnings"`
}

func parseStylelintJSON(raw, path string) ([]issue.Issue, bool) {
	var parsed stylelintJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}
	var out []issue.Issue
	for _, f := range parsed {
		for _, w := range f.Warnings {
			code := w.Rule
			if code == "" {
				code = "stylelint"
			}
			out = append(out, issue.New(path, w.Line, w.Column, code, w.Text))
		}
	}
	return out, true
}

// htmlhintJSON is HTMLHint's --format json output shape.
type htmlhintJSON []struct {
	File     string `json:"file"`
	Messages []struct {
		Line    int    `json:"line"`
		Col     int    `json:"col"`
		Message string `json:"message"`
		Rule    struct {
			ID string `json:"id"`
		} `json:"rule"`
	} `json:"messages"`
}

func parseHTMLHintJSON(raw, path string) ([]issue.Issue, bool) {
	var parsed htmlhintJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}
	var out []issue.Issue
	for _, f := range parsed {
		for _, m := range f.Messages {
			code := m.Rule.ID
			if code == "" {
				code = "htmlhint"
			}
			out = append(out, issue.New(path, m.Line, m.Col, code, m.Message))
		}
	}
	return out, true
}

// matchFile resolves a tool-reported filename back to a requested file path.
// files maps base-relative path to itself; tools may echo absolute paths.
func matchFile(reported string, files map[string]string) (string, bool) {
	if path, ok := files[reported]; ok {
		return path, true
	}
	for rel := range files {
		if strings.HasSuffix(reported, rel) {
			return rel, true
		}
	}
	return "", false
}
