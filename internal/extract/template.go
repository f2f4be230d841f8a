// Package extract splits structured game strings into their translatable fragments
// and puts translated fragments back into the same structural slots.
package extract

import (
	"strings"
	"unicode"
)

// Part is one slice of a parsed string.
type Part struct {
	Text         string
	Translatable bool
}

// Template is a parsed string: literal structure interleaved with translatable parts.
// Concatenating every part's text reproduces the input exactly.
type Template struct {
	Parts []Part
}

// Func parses one raw literal into a Template.
type Func func(s string) *Template

// Plain treats the whole string as a single translatable part.
func Plain(s string) *Template {
	t := &Template{}
	if s != "" {
		t.Parts = append(t.Parts, Part{Text: s, Translatable: true})
	}
	return t
}

// Fragments lists the translatable parts in order of appearance.
func (t *Template) Fragments() []string {
	var out []string
	for _, p := range t.Parts {
		if p.Translatable {
			out = append(out, p.Text)
		}
	}
	return out
}

// Fill reassembles the string with translations substituted into the
// translatable slots, in order. Slots without a translation keep their text.
func (t *Template) Fill(translations []string) string {
	var sb strings.Builder
	i := 0
	for _, p := range t.Parts {
		if p.Translatable && i < len(translations) {
			sb.WriteString(translations[i])
			i++
			continue
		}
		if p.Translatable {
			i++
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// Map reassembles the string by passing every translatable part through fn.
func (t *Template) Map(fn func(string) string) string {
	frags := t.Fragments()
	for i, f := range frags {
		frags[i] = fn(f)
	}
	return t.Fill(frags)
}

// String returns the original text.
func (t *Template) String() string {
	return t.Fill(nil)
}

func (t *Template) literal(s string) {
	if s == "" {
		return
	}
	if n := len(t.Parts); n > 0 && !t.Parts[n-1].Translatable {
		t.Parts[n-1].Text += s
		return
	}
	t.Parts = append(t.Parts, Part{Text: s})
}

// translatable adds s as a translatable part, keeping surrounding whitespace
// literal. Blank strings are literal.
func (t *Template) translatable(s string) {
	core := strings.TrimFunc(s, unicode.IsSpace)
	if core == "" {
		t.literal(s)
		return
	}
	start := strings.Index(s, core)
	t.literal(s[:start])
	t.Parts = append(t.Parts, Part{Text: core, Translatable: true})
	t.literal(s[start+len(core):])
}
