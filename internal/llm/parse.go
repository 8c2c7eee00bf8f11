package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Models wrap JSON in code fences or chat filler more often than they follow
// the "JSON only" instruction, so parsing tries progressively messier
// interpretations of the response.
var (
	codeFenceRegex     = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")
	jsonObjectRegex    = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
)

// parseJSONResponse decodes a model response into out, tolerating code
// fences, surrounding prose, and trailing commas.
func parseJSONResponse(raw string, out any) error {
	candidates := []string{strings.TrimSpace(raw)}

	if m := codeFenceRegex.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if m := jsonObjectRegex.FindString(raw); m != "" {
		candidates = append(candidates, m)
	}

	var lastErr error
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), out); err == nil {
			return nil
		} else {
			lastErr = err
		}
		cleaned := trailingCommaRegex.ReplaceAllString(candidate, "$1")
		if cleaned != candidate {
			if err := json.Unmarshal([]byte(cleaned), out); err == nil {
				return nil
			}
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no JSON found")
	}
	return fmt.Errorf("decode model response: %w (response: %s)", lastErr, snippet(raw))
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
