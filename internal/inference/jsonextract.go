package inference

import (
	"errors"
	"regexp"
	"strings"
)

var errNoJSONObject = errors.New("no JSON object found in response")

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSONObject pulls the first JSON object out of free-form model output.
// Responses routinely wrap the object in prose or fenced code blocks; a fenced
// block wins, otherwise the first balanced {...} span is taken. The caller
// still has to unmarshal the result, so a false positive here just routes to
// the deterministic fallback.
func extractJSONObject(text string) (string, error) {
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", errNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", errNoJSONObject
}
