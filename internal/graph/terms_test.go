package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedTerms(t *testing.T) {
	glossary := map[string]map[string]string{
		"Community Center": {"de": "Gemeinschaftszentrum"},
		"Wizard":           {"de": "Zauberer"},
	}
	terms := SeedTerms(glossary, []string{"Robin", "Wizard"}, []string{"de", "fr"})

	require.Len(t, terms, 3)
	assert.Equal(t, Term{
		Source:     "Community Center",
		Category:   CategoryGlossary,
		Renderings: map[string]string{"de": "Gemeinschaftszentrum"},
	}, terms[0])
	assert.Equal(t, Term{
		Source:     "Robin",
		Category:   CategoryProperNoun,
		Renderings: map[string]string{"de": "Robin", "fr": "Robin"},
	}, terms[1])
	assert.Equal(t, Term{
		Source:     "Wizard",
		Category:   CategoryProperNoun,
		Renderings: map[string]string{"de": "Zauberer", "fr": "Wizard"},
	}, terms[2])
}

func TestRelevant(t *testing.T) {
	terms := map[string]string{
		"Robin":            "Robin",
		"Community Center": "Gemeinschaftszentrum",
		"Sam":              "Sam",
		"!!!":              "!!!",
	}

	got := Relevant("Meet robin at the community center.", terms)
	assert.Equal(t, map[string]string{
		"Robin":            "Robin",
		"Community Center": "Gemeinschaftszentrum",
	}, got)

	assert.Empty(t, Relevant("Samantha is not Sam's cousin", map[string]string{"Sam": "Sam"}))
	assert.Nil(t, Relevant("...", terms))
}
