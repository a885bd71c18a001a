// Package sanitize neutralizes client-supplied text before it is echoed
// back over the wire or written to logs.
package sanitize

import (
	"html"
	"strings"
)

const maxEchoLen = 200

// Message escapes markup-significant characters and clips the result so an
// echoed value can never be interpreted as markup by a client renderer.
func Message(s string) string {
	s = strings.ToValidUTF8(s, "")
	return html.EscapeString(clip(s))
}

// clip truncates to maxEchoLen runes. Slicing bytes could split a multibyte
// rune and reintroduce invalid UTF-8.
func clip(s string) string {
	runes := []rune(s)
	if len(runes) > maxEchoLen {
		return string(runes[:maxEchoLen])
	}
	return s
}

// LogString strips control characters so injected newlines cannot forge log
// records.
func LogString(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return clip(b.String())
}
