// Package sanitize strips user input down to a safe character set before it
// is interpolated into an outbound URL.
package sanitize

import (
	"strings"
	"unicode"
)

const (
	// MaxQueryLen is the longest search query forwarded upstream.
	MaxQueryLen = 100

	// MaxPathLen is the longest product path forwarded upstream.
	MaxPathLen = 200
)

// Query keeps letters, digits, whitespace and '-', then truncates to
// MaxQueryLen runes. Every whitespace rune is written as ' ' so words stay
// separated and the result is safe in a URL. It never fails.
func Query(raw string) string {
	return filter(raw, MaxQueryLen, func(r rune) bool { return r == '-' })
}

// Path is Query with '.' and '/' also allowed, truncated to MaxPathLen runes.
// Used for product page path fragments.
func Path(raw string) string {
	return filter(raw, MaxPathLen, func(r rune) bool {
		return r == '-' || r == '.' || r == '/'
	})
}

func filter(raw string, limit int, extra func(rune) bool) string {
	var b strings.Builder
	b.Grow(min(len(raw), limit))
	n := 0
	for _, r := range raw {
		if n == limit {
			break
		}
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || extra(r):
			b.WriteRune(r)
		default:
			continue
		}
		n++
	}
	return b.String()
}
