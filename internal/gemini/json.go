package gemini

import "strings"

// ExtractJSON strips a markdown code fence from a model response, returning
// the raw JSON payload. Responses without a fence pass through unchanged.
func ExtractJSON(text string) string {
	if i := strings.Index(text, "```json"); i >= 0 {
		rest := text[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}

		return strings.TrimSpace(rest)
	}

	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+len("```"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}

		return strings.TrimSpace(rest)
	}

	return strings.TrimSpace(text)
}
