// Package graph keeps the project glossary in Neo4j: source terms and their
// per-locale renderings, used to keep machine drafts consistent.
package graph

import (
	"sort"
	"strings"

	"localize-from-source/internal/textutil"

	"github.com/samber/lo"
)

// Term categories.
const (
	CategoryProperNoun = "proper-noun"
	CategoryGlossary   = "glossary"
)

// Term is a glossary term with its renderings, keyed by locale.
type Term struct {
	Source     string
	Category   string
	Renderings map[string]string
}

// SeedTerms builds the glossary from the configured renderings
// (source → locale → rendering) and the known proper nouns. Proper nouns render
// as themselves in every locale unless the glossary says otherwise.
func SeedTerms(glossary map[string]map[string]string, properNouns, locales []string) []Term {
	terms := make(map[string]*Term)
	get := func(source, category string) *Term {
		t, ok := terms[source]
		if !ok {
			t = &Term{Source: source, Category: category, Renderings: make(map[string]string)}
			terms[source] = t
		}
		return t
	}

	for _, noun := range properNouns {
		t := get(noun, CategoryProperNoun)
		for _, loc := range locales {
			t.Renderings[loc] = noun
		}
	}
	for source, renderings := range glossary {
		t := get(source, CategoryGlossary)
		for loc, rendering := range renderings {
			t.Renderings[loc] = rendering
		}
	}

	out := lo.MapToSlice(terms, func(_ string, t *Term) Term { return *t })
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Relevant returns the renderings of the terms that occur in text as whole
// words, compared case-insensitively.
func Relevant(text string, terms map[string]string) map[string]string {
	words := textutil.Tokens(text)
	if len(words) == 0 {
		return nil
	}
	joined := " " + strings.Join(words, " ") + " "

	out := make(map[string]string)
	for source, rendering := range terms {
		tokens := textutil.Tokens(source)
		if len(tokens) == 0 {
			continue
		}
		if strings.Contains(joined, " "+strings.Join(tokens, " ")+" ") {
			out[source] = rendering
		}
	}
	return out
}
