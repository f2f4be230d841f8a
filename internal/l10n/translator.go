// Package l10n translates source strings at runtime through the generated
// i18n tables.
package l10n

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"localize-from-source/internal/extract"
	"localize-from-source/internal/il"
	"localize-from-source/internal/interpolation"
	"localize-from-source/internal/report"
	"localize-from-source/internal/store"

	"github.com/samber/lo"
	"golang.org/x/text/language"
)

// SourceTable is the table name holding the source strings.
const SourceTable = "default"

// Loader loads a key→text table by name: SourceTable or a locale. A table
// that does not exist returns an error satisfying errors.Is(err, os.ErrNotExist).
type Loader interface {
	Load(name string) (map[string]string, error)
}

// DirLoader loads <dir>/<name>.json files.
type DirLoader string

func (d DirLoader) Load(name string) (map[string]string, error) {
	t, err := store.ReadTable(filepath.Join(string(d), name+".json"))
	if err != nil {
		return nil, err
	}
	return t.Values, nil
}

// Translator maps source strings to the current locale. The current locale is
// read on every call, so it may change at runtime.
type Translator struct {
	source string
	locale func() string
	loader Loader
	sink   report.Sink

	mu       sync.Mutex
	reverse  map[string]string
	tables   map[string]map[string]string
	reported map[string]bool
}

// New creates a translator. locale returns the current locale tag.
func New(sourceLocale string, locale func() string, loader Loader, sink report.Sink) *Translator {
	return &Translator{
		source:   sourceLocale,
		locale:   locale,
		loader:   loader,
		sink:     sink,
		tables:   make(map[string]map[string]string),
		reported: make(map[string]bool),
	}
}

// Translate returns text in the current locale, or text itself when no
// translation exists.
func (t *Translator) Translate(text string) string {
	cur := t.locale()
	if sameLocale(cur, t.source) {
		return text
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key, ok := t.reverseTable()[text]
	if !ok {
		t.reportOnce("nokey:"+text, report.Warnf(report.CodeMissingRuntime, il.Provenance{}, "string %q is not in the source table", text))
		return text
	}
	for _, name := range Fallbacks(cur) {
		if v := t.table(name)[key]; v != "" {
			return v
		}
	}
	t.reportOnce("missing:"+cur+":"+key, report.Warnf(report.CodeMissingRuntime, il.Provenance{}, "[%s] no translation for key %q", cur, key))
	return text
}

// TranslateFormat translates a host composite format string. names optionally
// names the arguments by index; translations may use either those names or argN.
func (t *Translator) TranslateFormat(hostFormat string, names ...string) string {
	domain := interpolation.ToDomain(hostFormat)
	translated := t.Translate(domain)
	if translated == domain {
		return hostFormat
	}
	host, err := interpolation.ToHost(translated, names...)
	if err != nil {
		t.mu.Lock()
		t.reportOnce("format:"+translated, report.Warnf(report.CodeCorruptFile, il.Provenance{},
			"[%s] translation of %q has a bad placeholder: %v", t.locale(), domain, err))
		t.mu.Unlock()
		return hostFormat
	}
	return host
}

// TranslateEvent translates the dialogue fragments of an event script.
func (t *Translator) TranslateEvent(script string) string {
	return extract.Event(script).Map(t.Translate)
}

// TranslateQuest translates the title, description and objective of a quest.
func (t *Translator) TranslateQuest(quest string) string {
	return extract.Quest(quest).Map(t.Translate)
}

// TranslateMail translates the body and title of a mail message.
func (t *Translator) TranslateMail(mail string) string {
	return extract.Mail(mail).Map(t.Translate)
}

// reverseTable maps source text to key. A source table that cannot be loaded
// or maps two keys to one text is reported once; the first key wins.
func (t *Translator) reverseTable() map[string]string {
	if t.reverse != nil {
		return t.reverse
	}
	t.reverse = make(map[string]string)
	values, err := t.loader.Load(SourceTable)
	if err != nil {
		t.reportOnce("source", report.Warnf(report.CodeCorruptTable, il.Provenance{}, "cannot load the source table: %v", err))
		return t.reverse
	}
	for _, key := range sortedKeys(values) {
		text := values[key]
		if other, dup := t.reverse[text]; dup {
			t.reportOnce("dup:"+text, report.Warnf(report.CodeCorruptTable, il.Provenance{},
				"source table keys %q and %q both map to %q", other, key, text))
			continue
		}
		t.reverse[text] = key
	}
	return t.reverse
}

// table returns the table of one locale; a missing or unreadable table is empty.
func (t *Translator) table(name string) map[string]string {
	if tbl, ok := t.tables[name]; ok {
		return tbl
	}
	tbl, err := t.loader.Load(name)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			t.reportOnce("table:"+name, report.Warnf(report.CodeCorruptFile, il.Provenance{}, "[%s] unreadable translation table: %v", name, err))
		}
		tbl = nil
	}
	t.tables[name] = tbl
	return tbl
}

func (t *Translator) reportOnce(id string, d report.Diagnostic) {
	if t.reported[id] {
		return
	}
	t.reported[id] = true
	t.sink.Report(d)
}

// Fallbacks lists the table names to try for locale, most specific first:
// the locale itself, each parent until the root, then the bare language.
func Fallbacks(locale string) []string {
	out := []string{locale}
	tag, err := language.Parse(locale)
	if err != nil {
		return out
	}
	seen := map[string]bool{locale: true}
	for p := tag.Parent(); p != language.Und; p = p.Parent() {
		name := p.String()
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	if base, conf := tag.Base(); conf != language.No && !seen[base.String()] {
		out = append(out, base.String())
	}
	return out
}

func sameLocale(a, b string) bool {
	if a == b {
		return true
	}
	ta, errA := language.Parse(a)
	tb, errB := language.Parse(b)
	return errA == nil && errB == nil && ta == tb
}

func sortedKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
