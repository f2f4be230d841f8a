// Package interpolation converts format placeholders between the host (.NET
// composite format) and domain ({{argN}}) syntaxes, and shields placeholders
// and dialogue tokens from machine translation.
package interpolation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Mapping stores the original token and its safe replacement.
type Mapping struct {
	Original    string
	Placeholder string
	Index       int
}

// tokenMatch stores a detected token position.
type tokenMatch struct {
	start, end int
	value      string
}

// tokens that must survive machine translation untouched.
var tokens = []*regexp.Regexp{
	// {{arg0}}, {{count,5:N2}}
	regexp.MustCompile(`\{\{[^{}]+\}\}`),
	// {0}, {0,5:N2}
	regexp.MustCompile(`\{[0-9]+(?:,-?[0-9]+)?(?::[^{}]*)?\}`),
	// #$b# dialogue break, #$e# end
	regexp.MustCompile(`#\$[a-z]#`),
	// $h, $s, $1 portrait commands
	regexp.MustCompile(`\$[a-z0-9]\b`),
	regexp.MustCompile(`%(?:adj|noun|place|spouse|name|pet|farm|favorite|kid1|kid2|time|band|book|rival)\b`),
	// @ farmer name, ^ gender split or letter line break
	regexp.MustCompile(`[@^]`),
}

// Protect replaces every placeholder and dialogue token with a {{var_N}} marker.
// Returns the safe string and a mapping to restore originals after translation.
func Protect(text string) (string, []Mapping) {
	var all []tokenMatch
	for _, p := range tokens {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			all = append(all, tokenMatch{start: loc[0], end: loc[1], value: text[loc[0]:loc[1]]})
		}
	}
	if len(all) == 0 {
		return text, nil
	}

	// Earliest first; on equal start, longest first.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		return all[i].end-all[i].start > all[j].end-all[j].start
	})

	var kept []tokenMatch
	lastEnd := -1
	for _, m := range all {
		if m.start >= lastEnd {
			kept = append(kept, m)
			lastEnd = m.end
		}
	}

	var sb strings.Builder
	mappings := make([]Mapping, 0, len(kept))
	prev := 0
	for i, m := range kept {
		placeholder := fmt.Sprintf("{{var_%d}}", i+1)
		mappings = append(mappings, Mapping{Original: m.value, Placeholder: placeholder, Index: i + 1})
		sb.WriteString(text[prev:m.start])
		sb.WriteString(placeholder)
		prev = m.end
	}
	sb.WriteString(text[prev:])
	return sb.String(), mappings
}

// Restore replaces {{var_N}} markers back with the original tokens.
func Restore(translated string, mappings []Mapping) string {
	result := translated
	for _, m := range mappings {
		result = strings.Replace(result, m.Placeholder, m.Original, 1)
	}
	return result
}

// Missing returns the markers a translation dropped.
func Missing(translated string, mappings []Mapping) []string {
	var out []string
	for _, m := range mappings {
		if !strings.Contains(translated, m.Placeholder) {
			out = append(out, m.Placeholder)
		}
	}
	return out
}
