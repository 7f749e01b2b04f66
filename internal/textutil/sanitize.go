package textutil

import "strings"

// SanitizeFileName keeps ASCII letters, digits, spaces, dots, underscores and
// hyphens and drops everything else. The result is trimmed of leading and
// trailing whitespace; an empty result means nothing usable remained.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if strings.Trim(out, ".") == "" {
		return ""
	}
	return out
}

// Slug lowercases value and removes every rune outside [a-z0-9].
// "Half-Life 2" becomes "halflife2".
func Slug(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range strings.ToLower(value) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
