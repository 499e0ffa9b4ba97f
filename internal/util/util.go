// internal/util/util.go
package util

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// TruncateRunes truncates a string to a maximum number of runes,
// appending an ellipsis if truncated.
func TruncateRunes(text string, maxRunes int) string {
	return Truncate(text, maxRunes, "…")
}

// Truncate cuts text to at most limit runes and appends suffix when anything
// was removed. Multi-byte characters are never split.
func Truncate(text string, limit int, suffix string) string {
	if limit < 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + suffix
}

// WrapToWidth wraps text at word boundaries so no line exceeds width runes.
// Words longer than width are split across lines.
func WrapToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		var cur []rune
		flush := func() {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = cur[:0]
			}
		}
		for _, w := range words {
			r := []rune(w)
			switch {
			case len(cur) == 0 && len(r) <= width:
				cur = append(cur, r...)
			case len(cur) > 0 && len(cur)+1+len(r) <= width:
				cur = append(cur, ' ')
				cur = append(cur, r...)
			default:
				flush()
				for len(r) > width {
					out = append(out, string(r[:width]))
					r = r[width:]
				}
				cur = append(cur, r...)
			}
		}
		flush()
	}
	return strings.Join(out, "\n")
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
