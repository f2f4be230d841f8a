package extract

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestEvent(t *testing.T) {
	script := `none/-100 -100/farmer 5 5 0 Abigail 6 5 2/speak Abigail " Hi there! "/playMusic "Music\Abigail"/message "The wind howls."/end`
	tpl := Event(script)

	assert.Equal(t, []string{"Hi there!", "The wind howls."}, tpl.Fragments())
	assert.Equal(t, script, tpl.String())
	assert.Equal(t,
		`none/-100 -100/farmer 5 5 0 Abigail 6 5 2/speak Abigail " Hallo! "/playMusic "Music\Abigail"/message "Der Wind heult."/end`,
		tpl.Fill([]string{"Hallo!", "Der Wind heult."}))
}

func TestEventUnterminatedQuote(t *testing.T) {
	script := `speak Abigail "no end`
	tpl := Event(script)
	assert.Empty(t, tpl.Fragments())
	assert.Equal(t, script, tpl.String())
}

func TestQuest(t *testing.T) {
	record := "Basic/Gather Wood/Robin needs wood./Bring 10 wood/-1/0/200/-1/true"
	tpl := Quest(record)
	assert.Equal(t, []string{"Gather Wood", "Robin needs wood.", "Bring 10 wood"}, tpl.Fragments())
	assert.Equal(t,
		"Basic/Holz/Robin braucht Holz./10 Holz/-1/0/200/-1/true",
		tpl.Fill([]string{"Holz", "Robin braucht Holz.", "10 Holz"}))

	short := Quest("Basic//Only description")
	assert.Equal(t, []string{"Only description"}, short.Fragments())
	assert.Equal(t, "Basic//Only description", short.String())
}

func TestMail(t *testing.T) {
	tpl := Mail("Dear @,^Here is a gift.^   -Robin%item object 388 50 %%[#]A Gift")
	assert.Equal(t, []string{"Dear @,^Here is a gift.^   -Robin", "A Gift"}, tpl.Fragments())
	assert.Equal(t,
		"Liebe(r) @,^Ein Geschenk.^   -Robin%item object 388 50 %%[#]Ein Geschenk",
		tpl.Fill([]string{"Liebe(r) @,^Ein Geschenk.^   -Robin", "Ein Geschenk"}))

	plain := Mail("Just a note.")
	assert.Equal(t, []string{"Just a note."}, plain.Fragments())

	titled := Mail("Body text[#]Title")
	assert.Equal(t, []string{"Body text", "Title"}, titled.Fragments())
}

func TestFillKeepsUntranslatedSlots(t *testing.T) {
	tpl := Quest("Basic/A/B/C/rest")
	assert.Equal(t, "Basic/x/B/C/rest", tpl.Fill([]string{"x"}))
	assert.Equal(t, "Basic/A!/B!/C!/rest", tpl.Map(func(s string) string { return s + "!" }))
}

func TestPlain(t *testing.T) {
	assert.Equal(t, []string{" spaced "}, Plain(" spaced ").Fragments())
	assert.Empty(t, Plain("").Fragments())
}

func noMarkers(s string) bool {
	return !strings.Contains(s, mailCode) && !strings.Contains(s, mailTitle)
}

func TestMailRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		body := rapid.String().Filter(noMarkers).Draw(t, "body")
		code := ""
		if rapid.Bool().Draw(t, "hasCode") {
			code = mailCode + rapid.String().Filter(func(s string) bool {
				return !strings.Contains(s, mailTitle)
			}).Draw(t, "code")
		}
		s := body + code
		if rapid.Bool().Draw(t, "hasTitle") {
			s += mailTitle + rapid.String().Draw(t, "title")
		}

		tpl := Mail(s)
		if got := tpl.Fill(tpl.Fragments()); got != s {
			t.Fatalf("round trip changed %q into %q", s, got)
		}
		if trimmed := strings.TrimFunc(body, unicode.IsSpace); trimmed != "" {
			if frags := tpl.Fragments(); len(frags) == 0 || frags[0] != trimmed {
				t.Fatalf("body fragment of %q = %q, want %q", s, frags, trimmed)
			}
		}
	})
}

func TestTemplatesRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		for name, fn := range map[string]Func{"event": Event, "quest": Quest, "mail": Mail, "plain": Plain} {
			tpl := fn(s)
			if got := tpl.Fill(tpl.Fragments()); got != s {
				t.Fatalf("%s round trip changed %q into %q", name, s, got)
			}
		}
	})
}
