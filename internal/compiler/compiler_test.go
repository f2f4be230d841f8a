package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"localize-from-source/internal/il"
	"localize-from-source/internal/report"
	"localize-from-source/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	root      string
	entries   *store.FileStore
	edits     *store.EditStore
	collector *report.Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	return &fixture{
		root:      root,
		entries:   store.NewFileStore(filepath.Join(root, "l10n", "translations")),
		edits:     store.NewEditStore(filepath.Join(root, "l10n", "edits")),
		collector: report.NewCollector(nil),
	}
}

func (f *fixture) compiler(opts Options) *Compiler {
	opts.I18nDir = filepath.Join(f.root, "i18n")
	return New(f.entries, f.edits, f.collector, opts)
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.root, rel))
	require.NoError(t, err)
	return string(data)
}

func found(texts ...string) []report.DiscoveredString {
	out := make([]report.DiscoveredString, len(texts))
	for i, s := range texts {
		out[i] = report.DiscoveredString{Text: s, Pos: il.Provenance{File: "ModEntry.cs", Line: i + 1}}
	}
	return out
}

var day = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func TestSourceTableKeysAreStable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	link := func(p il.Provenance) string {
		return fmt.Sprintf("https://example.com/blob/3f2a9c1/%s#L%d", p.File, p.Line)
	}
	c := f.compiler(Options{Commit: "3f2a9c1", Link: link})

	res, err := c.Reconcile(ctx, found("one two three"))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	key := res.Rows[0].Key
	assert.Equal(t, HashKey("one two three", KeyLength), key)

	assert.Equal(t, `// commit: 3f2a9c1
{
  // https://example.com/blob/3f2a9c1/ModEntry.cs#L1
  "`+key+`": "one two three"
}
`, f.read(t, "i18n/default.json"))

	res, err = c.Reconcile(ctx, found("one two three", "a b c"))
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, Row{Key: key, Text: "one two three", Pos: il.Provenance{File: "ModEntry.cs", Line: 1}}, res.Rows[0])

	tbl, err := store.ReadTable(filepath.Join(f.root, "i18n", "default.json"))
	require.NoError(t, err)
	assert.Equal(t, "one two three", tbl.Values[key])
	assert.Equal(t, "a b c", tbl.Values[res.Rows[1].Key])
	assert.Equal(t, "3f2a9c1", tbl.Commit)
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.entries.Save(ctx, "de", store.Entries{
		HashKey("Hello", KeyLength): {Source: "Hello", Translation: "Hallo", Author: "github:ana", Date: day},
		"oldkey":                    {Source: "Good bye friend", Translation: "Tschüss Freund", Author: "github:ana", Date: day},
	}))
	c := f.compiler(Options{Commit: "abc"})

	first, err := c.Reconcile(ctx, found("Hello", "Good bye my friend", "Brand new"))
	require.NoError(t, err)
	assert.NotEmpty(t, first.Written)

	second, err := c.Reconcile(ctx, found("Hello", "Good bye my friend", "Brand new"))
	require.NoError(t, err)
	assert.Empty(t, second.Written)
	assert.Equal(t, first.Locales, second.Locales)
}

func TestLocaleWithoutEntriesIsRemoved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, locale := range []string{"de", "fr"} {
		require.NoError(t, f.entries.Save(ctx, locale, store.Entries{
			HashKey("Hello", KeyLength): {Source: "Hello", Translation: locale + "-hello", Author: "github:ana", Date: day},
		}))
	}
	c := f.compiler(Options{})
	_, err := c.Reconcile(ctx, found("Hello"))
	require.NoError(t, err)
	frTable := filepath.Join(f.root, "i18n", "fr.json")
	require.FileExists(t, frTable)
	frEdits := f.edits.Path("fr")
	_, err = store.WriteFile(frEdits, []byte("{}\n"))
	require.NoError(t, err)

	require.NoError(t, f.entries.Save(ctx, "fr", store.Entries{}))
	res, err := c.Reconcile(ctx, found("Hello"))
	require.NoError(t, err)

	assert.NoFileExists(t, frTable)
	assert.NoFileExists(t, frEdits)
	assert.ElementsMatch(t, []string{frTable, frEdits}, res.Removed)
	assert.FileExists(t, filepath.Join(f.root, "i18n", "de.json"))
	assert.FileExists(t, c.SourceTablePath())
	assert.NotContains(t, res.Locales, "fr")
}

func TestFuzzyMatchSurfacesSourceChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	oldKey := HashKey("one two three", KeyLength)
	require.NoError(t, f.entries.Save(ctx, "de", store.Entries{
		oldKey:   {Source: "one two three", Translation: "eins zwei drei", Author: "github:ana", Date: day},
		"zzz111": {Source: "the quick brown fox", Translation: "der schnelle braune Fuchs", Author: "github:ana", Date: day},
		"zzz222": {Source: "lorem ipsum dolor", Translation: "lorem ipsum dolor", Author: "github:ana", Date: day},
	}))
	c := f.compiler(Options{})

	res, err := c.Reconcile(ctx, found("one two three four"))
	require.NoError(t, err)
	assert.Equal(t, LocaleStats{Suggested: 1}, res.Locales["de"])

	newKey := res.Rows[0].Key
	de := f.read(t, "i18n/de.json")
	assert.Contains(t, de, Sentinel+`: source changed; suggestion from "`+oldKey+`" (75% similar)`)
	assert.Contains(t, de, `//   old source: "one two three"`)
	assert.Contains(t, de, `// "`+newKey+`": "eins zwei drei"`)
	assert.NotContains(t, de, "missing translation")

	edits, err := f.edits.Load("de")
	require.NoError(t, err)
	assert.Equal(t, store.Edit{OldSource: "one two three", NewSource: "one two three four", OldTarget: "eins zwei drei"}, edits[newKey])
}

func TestKeyedDriftKeepsTranslation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.entries.Save(ctx, "de", store.Entries{
		"greeting": {Source: "Good morning!", Translation: "Guten Morgen!", Author: "github:ana", Date: day},
	}))
	c := f.compiler(Options{Legacy: map[string]string{"greeting": "Good morning"}})

	res, err := c.Reconcile(ctx, found("Good morning"))
	require.NoError(t, err)
	assert.Equal(t, "greeting", res.Rows[0].Key)
	assert.Equal(t, LocaleStats{Changed: 1}, res.Locales["de"])

	tbl, err := store.ReadTable(filepath.Join(f.root, "i18n", "de.json"))
	require.NoError(t, err)
	assert.Equal(t, "Guten Morgen!", tbl.Values["greeting"], "the drifted translation stays active")
	assert.Contains(t, f.read(t, "i18n/de.json"), Sentinel+": source changed since this was translated by github:ana")
}

func TestLegacyEntriesAreKept(t *testing.T) {
	f := newFixture(t)
	c := f.compiler(Options{Legacy: map[string]string{"menu.title": "Better Crafting", "menu.close": "Close"}})

	res, err := c.Reconcile(context.Background(), found("Close", "Fresh string"))
	require.NoError(t, err)

	keys := map[string]string{}
	for _, r := range res.Rows {
		keys[r.Text] = r.Key
	}
	assert.Equal(t, "menu.close", keys["Close"])
	assert.Equal(t, "menu.title", keys["Better Crafting"])
	assert.Equal(t, HashKey("Fresh string", KeyLength), keys["Fresh string"])
	assert.Equal(t, "Better Crafting", res.Rows[len(res.Rows)-1].Text, "strings without provenance sort last")
}

func TestFullyTranslatedLocaleHasNoOpenItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	texts := []string{"Hello", "Good bye", "See you tomorrow"}
	entries := store.Entries{}
	for i, s := range texts {
		entries[HashKey(s, KeyLength)] = store.Entry{Source: s, Translation: fmt.Sprintf("de-%d", i), Author: "github:ana", Date: day}
	}
	require.NoError(t, f.entries.Save(ctx, "de", entries))

	res, err := f.compiler(Options{}).Reconcile(ctx, found(texts...))
	require.NoError(t, err)
	assert.Equal(t, LocaleStats{Translated: 3}, res.Locales["de"])

	de := f.read(t, "i18n/de.json")
	assert.NotContains(t, de, Sentinel)
	assert.Contains(t, de, "// github:ana 2026-05-04")
	assert.NoFileExists(t, filepath.Join(f.root, "l10n", "edits", "de.json"))

	tbl, err := store.ReadTable(filepath.Join(f.root, "i18n", "de.json"))
	require.NoError(t, err)
	assert.Equal(t, "de-2", tbl.Values[HashKey("See you tomorrow", KeyLength)])
	assert.False(t, strings.Contains(de, `",`+"\n}"), "no trailing comma after the last entry")
}

func TestMissingTranslationsAreCommentedOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.entries.Save(ctx, "fr", store.Entries{
		HashKey("Hello", KeyLength): {Source: "Hello", Translation: "Bonjour", Author: "github:luc", Date: day},
	}))

	res, err := f.compiler(Options{}).Reconcile(ctx, found("Hello", "Something unrelated"))
	require.NoError(t, err)
	assert.Equal(t, LocaleStats{Translated: 1, Missing: 1}, res.Locales["fr"])

	tbl, err := store.ReadTable(filepath.Join(f.root, "i18n", "fr.json"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{HashKey("Hello", KeyLength): "Bonjour"}, tbl.Values)
	assert.Contains(t, f.read(t, "i18n/fr.json"), Sentinel+": missing translation")
}

func TestCorruptLocaleDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.entries.Save(ctx, "de", store.Entries{
		HashKey("Hello", KeyLength): {Source: "Hello", Translation: "Hallo", Author: "github:ana", Date: day},
	}))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "l10n", "translations", "fr.json"), []byte("{broken"), 0o644))

	res, err := f.compiler(Options{}).Reconcile(ctx, found("Hello"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.collector.Count(report.CodeCorruptFile))
	assert.Equal(t, LocaleStats{Translated: 1}, res.Locales["de"])
	assert.Equal(t, LocaleStats{Missing: 1}, res.Locales["fr"])
}

func TestCorruptSourceTableIsFatal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Join(f.root, "i18n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "i18n", "default.json"), []byte("{nope"), 0o644))

	_, err := f.compiler(Options{}).Reconcile(context.Background(), found("Hello"))
	assert.ErrorContains(t, err, "read source table")
}

func TestDuplicateSourceValuesAreReported(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Join(f.root, "i18n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "i18n", "default.json"),
		[]byte(`{"aaaaaa": "Hello", "bbbbbb": "Hello"}`), 0o644))

	res, err := f.compiler(Options{}).Reconcile(context.Background(), found("Hello"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.collector.Count(report.CodeCorruptTable))
	assert.Equal(t, "aaaaaa", res.Rows[0].Key)
}

func TestBuildRefusesOnErrors(t *testing.T) {
	f := newFixture(t)
	f.collector.ReportLocalized("Hello", false, il.Provenance{File: "ModEntry.cs", Line: 1})
	f.collector.ReportUnmarked("Bare", il.Provenance{File: "ModEntry.cs", Line: 2}, true)

	_, err := f.compiler(Options{}).Build(context.Background(), f.collector)
	assert.ErrorIs(t, err, ErrRefused)
	assert.NoDirExists(t, filepath.Join(f.root, "i18n"))
}
