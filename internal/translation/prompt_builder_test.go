package translation

import (
	"testing"

	"localize-from-source/internal/memory"

	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt(t *testing.T) {
	pb := NewPromptBuilder("en")
	prompt := pb.SystemPrompt("de")
	assert.Contains(t, prompt, "from English to German")
	assert.Contains(t, prompt, Delimiter)

	assert.Equal(t, "xx-!!", LanguageName("xx-!!"))
}

func TestBuildBatchUserPrompt(t *testing.T) {
	pb := NewPromptBuilder("en")
	got := pb.BuildBatchUserPrompt(
		[]string{"Hello {{var_1}}", "Bye"},
		map[string]string{"Robin": "Robin", "Community Center": "Gemeinschaftszentrum"},
		[]memory.Match{{Source: "Hi", Translation: "Hallo", Score: 0.5}},
	)
	assert.Equal(t, "=== Glossary ===\n"+
		"• Community Center → Gemeinschaftszentrum\n"+
		"• Robin → Robin\n"+
		"\n"+
		"=== Similar Translations ===\n"+
		"1. [Score: 0.500] Hi → Hallo\n"+
		"\n"+
		"Translate each text below. Return ONLY the translations, separated by ||| delimiter, in the same order.\n"+
		"\n"+
		"[1] Hello {{var_1}}\n"+
		"[2] Bye\n", got)
}

func TestSplitBatch(t *testing.T) {
	assert.Equal(t, []string{"Hallo", "Tschüss", ""}, SplitBatch("[1] Hallo ||| [2]Tschüss", 3))
	assert.Equal(t, []string{"a"}, SplitBatch("a ||| b", 1))
}
