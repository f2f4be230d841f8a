package translation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"localize-from-source/internal/memory"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Delimiter separates translations in a batch reply.
const Delimiter = "|||"

// PromptBuilder constructs system and user prompts for translation.
type PromptBuilder struct {
	source language.Tag
}

// NewPromptBuilder creates a prompt builder for strings written in sourceLocale.
func NewPromptBuilder(sourceLocale string) *PromptBuilder {
	tag, err := language.Parse(sourceLocale)
	if err != nil {
		tag = language.English
	}
	return &PromptBuilder{source: tag}
}

const systemPrompt = `You are a professional game localizer translating a Stardew Valley mod from %s to %s.

Rules:
1. Translate every numbered text into %s.
2. Use the renderings from the glossary exactly as given; names of villagers and places usually stay unchanged.
3. Preserve ALL placeholders like {{var_1}}, {{var_2}} exactly as-is; they stand for game tokens and format arguments.
4. Keep the tone of cozy farming-game dialogue and keep UI text concise.
5. Output ONLY the translations, separated by %s, in the same order as the input.
6. Do NOT add numbering, explanations, notes or extra text.`

// LanguageName returns the English name of a locale, or the locale itself
// when it cannot be parsed.
func LanguageName(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return locale
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return locale
}

// SystemPrompt returns the system prompt for translating into locale.
func (pb *PromptBuilder) SystemPrompt(locale string) string {
	source := LanguageName(pb.source.String())
	target := LanguageName(locale)
	return fmt.Sprintf(systemPrompt, source, target, target, Delimiter)
}

// BuildBatchUserPrompt constructs a prompt for batch translations with the
// relevant glossary terms and similar remembered translations.
func (pb *PromptBuilder) BuildBatchUserPrompt(texts []string, glossary map[string]string, similar []memory.Match) string {
	var sb strings.Builder

	if len(glossary) > 0 {
		sb.WriteString("=== Glossary ===\n")
		sources := make([]string, 0, len(glossary))
		for s := range glossary {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		for _, s := range sources {
			sb.WriteString(fmt.Sprintf("• %s → %s\n", s, glossary[s]))
		}
		sb.WriteString("\n")
	}

	if len(similar) > 0 {
		sb.WriteString("=== Similar Translations ===\n")
		for i, m := range similar {
			sb.WriteString(fmt.Sprintf("%d. [Score: %.3f] %s → %s\n", i+1, m.Score, m.Source, m.Translation))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Translate each text below. Return ONLY the translations, separated by %s delimiter, in the same order.\n\n", Delimiter))
	for i, t := range texts {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, t))
	}

	return sb.String()
}

var numbering = regexp.MustCompile(`^\[\d+\]\s*`)

// SplitBatch splits a batch reply into n translations. Missing parts are empty.
func SplitBatch(response string, n int) []string {
	parts := strings.Split(response, Delimiter)
	out := make([]string, n)
	for i := range out {
		if i < len(parts) {
			out[i] = numbering.ReplaceAllString(strings.TrimSpace(parts[i]), "")
		}
	}
	return out
}
