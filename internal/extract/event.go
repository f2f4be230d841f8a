package extract

import (
	"regexp"
	"strings"
)

// assetPath matches quoted arguments that name game assets rather than text.
var assetPath = regexp.MustCompile(`^[\w.\-]+(?:[/\\][\w.\-]+)+$`)

// Event parses an event script: slash-delimited commands whose double-quoted
// arguments carry dialogue. Quoted asset paths stay literal.
func Event(s string) *Template {
	t := &Template{}
	rest := s
	for {
		open := strings.IndexByte(rest, '"')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open+1:], '"')
		if end < 0 {
			break
		}
		end += open + 1

		t.literal(rest[:open+1])
		frag := rest[open+1 : end]
		if assetPath.MatchString(frag) {
			t.literal(frag)
		} else {
			t.translatable(frag)
		}
		t.literal(`"`)
		rest = rest[end+1:]
	}
	t.literal(rest)
	return t
}
