package sqlutil

import (
	"errors"
	"strings"
)

// ErrEmptyIdentifier is returned when nothing survives sanitization.
var ErrEmptyIdentifier = errors.New("identifier is empty after sanitization")

// SanitizeIdentifier normalizes an externally supplied table or column name
// into a safe SQL identifier by stripping every rune that is not alphanumeric
// or an underscore. Identifiers cannot be bound as query parameters, so this
// is the only defense between user/LLM-chosen names and the SQL text; it must
// be applied to every such name before interpolation, without exception.
func SanitizeIdentifier(name string) (string, error) {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isIdentRune(r) {
			b.WriteRune(r)
		}
	}
	safe := b.String()
	if safe == "" {
		return "", ErrEmptyIdentifier
	}
	return safe, nil
}

func isIdentRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_':
		return true
	}
	return false
}
