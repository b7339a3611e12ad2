// Package tokens provides simple token estimation for fix prompts and
// context-limit warnings. Estimation uses a byte-based chars/4 heuristic.
package tokens

import "fmt"

// charsPerToken is the divisor for the byte-based estimator (roughly 4
// bytes per token for typical English/code).
const charsPerToken = 4

// DefaultResponseReserve is the number of tokens assumed for the model's
// response when checking total context; corrected whole files are large.
const DefaultResponseReserve = 4096

// Estimate returns an estimated token count for the given prompt text:
// (len+3)/4 bytes, so 0-3 bytes map to 1 token, 4-7 to 2, and so on.
// Empty string returns 0.
func Estimate(prompt string) int {
	n := len(prompt)
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// WarnIfOver returns a non-empty warning when promptTokens plus
// responseReserve meets or exceeds warnThreshold of contextLimit. A
// contextLimit <= 0 disables the check.
func WarnIfOver(promptTokens, responseReserve, contextLimit int, warnThreshold float64) string {
	if contextLimit <= 0 || promptTokens < 0 || responseReserve < 0 {
		return ""
	}
	total := promptTokens + responseReserve
	threshold := int(float64(contextLimit) * warnThreshold)
	if threshold <= 0 || total < threshold {
		return ""
	}
	pct := 100 * total / contextLimit
	return fmt.Sprintf("estimated %d tokens (%d%% of the %d-token context limit)", total, pct, contextLimit)
}
