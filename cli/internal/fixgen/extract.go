package fixgen

import "strings"

// minPlausibleLen is the shortest extraction accepted as code; anything
// shorter is treated as a failed extraction.
const minPlausibleLen = 10

// codeSignals are language-agnostic hints that a line belongs to code, used
// only when a response carries neither a fence nor a marker line.
var codeSignals = []string{
	"import ", "def ", "class ", "func ", "function ", "const ", "let ", "var ",
	"package ", "if __name__", "return ",
}

// ExtractCode pulls source code out of a raw model response. It prefers a
// fenced block (first opening fence to the next closing fence), then an
// explicit "CORRECTED CODE:"/"FIXED CODE:" marker line, then a scan for
// contiguous code-like lines. Surrounding blank lines are trimmed. Returns
// "" when nothing plausible is found.
func ExtractCode(raw string) string {
	lines := strings.Split(raw, "\n")

	if code, ok := extractFenced(lines); ok {
		return implausibleToEmpty(code)
	}
	if code, ok := extractMarked(lines); ok {
		return implausibleToEmpty(code)
	}
	return implausibleToEmpty(extractBySignals(lines))
}

func extractFenced(lines []string) (string, bool) {
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return "", false
	}
	end := len(lines)
	for i := start; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			end = i
			break
		}
	}
	return joinTrimmed(lines[start:end]), true
}

func extractMarked(lines []string) (string, bool) {
	for i, line := range lines {
		if strings.Contains(line, "CORRECTED CODE:") || strings.Contains(line, "FIXED CODE:") {
			rest := lines[i+1:]
			// A fence may still follow the marker; strip it if so.
			if code, ok := extractFenced(rest); ok && code != "" {
				return code, true
			}
			return joinTrimmed(rest), true
		}
	}
	return "", false
}

// extractBySignals collects everything from the first code-like line on,
// mirroring how models tend to lead with prose and end with code.
func extractBySignals(lines []string) string {
	inCode := false
	var out []string
	for _, line := range lines {
		if !inCode && looksLikeCode(line) {
			inCode = true
		}
		if inCode {
			out = append(out, line)
		}
	}
	return joinTrimmed(out)
}

func looksLikeCode(line string) bool {
	for _, sig := range codeSignals {
		if strings.Contains(line, sig) {
			return true
		}
	}
	trimmed := strings.TrimSpace(line)
	return strings.HasSuffix(trimmed, "{") || strings.HasSuffix(trimmed, ";")
}

func joinTrimmed(lines []string) string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

func implausibleToEmpty(code string) string {
	if len(strings.TrimSpace(code)) < minPlausibleLen {
		return ""
	}
	return code
}
