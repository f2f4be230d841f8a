package compiler

import (
	"sort"

	"localize-from-source/internal/store"
	"localize-from-source/internal/textutil"

	"github.com/samber/lo"
)

// FuzzyThreshold is the minimum token-set similarity for a prior translation
// to be suggested for a changed source string.
const FuzzyThreshold = 0.5

// Similarity is the Jaccard index of the lowercase word sets of a and b.
func Similarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	shared := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(setA)+len(setB)-shared)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range textutil.Tokens(s) {
		set[tok] = struct{}{}
	}
	return set
}

// suggestion is a prior translation that probably still fits a changed string.
type suggestion struct {
	key   string
	entry store.Entry
	score float64
}

// bestMatch finds the entry whose source is most similar to text, at or above
// FuzzyThreshold. Ties go to the smallest key.
func bestMatch(text string, entries store.Entries) (suggestion, bool) {
	keys := lo.Keys(entries)
	sort.Strings(keys)

	var best suggestion
	found := false
	for _, k := range keys {
		e := entries[k]
		if e.Translation == "" {
			continue
		}
		score := Similarity(text, e.Source)
		if score >= FuzzyThreshold && (!found || score > best.score) {
			best = suggestion{key: k, entry: e, score: score}
			found = true
		}
	}
	return best, found
}
