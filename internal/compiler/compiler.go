// Package compiler reconciles discovered strings with the persisted source
// table and translation entries, and regenerates the i18n files.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"localize-from-source/internal/il"
	"localize-from-source/internal/report"
	"localize-from-source/internal/store"

	"github.com/rs/zerolog/log"
)

// ErrRefused is returned when the scan reported errors; nothing is written.
var ErrRefused = errors.New("table generation refused: fix the reported errors first")

// SourceTableName is the file name of the source table inside the i18n directory.
const SourceTableName = "default.json"

// Options configure a Compiler.
type Options struct {
	// I18nDir receives default.json and the per-locale files.
	I18nDir string
	// Commit is written as the "// commit:" header; empty omits it.
	Commit string
	// Link builds a source hyperlink for a provenance; nil or "" omits it.
	Link func(il.Provenance) string
	// Legacy is an imported key→text table whose keys are kept.
	Legacy map[string]string
}

// Discoveries is the scan result the compiler consumes.
type Discoveries interface {
	Strings() []report.DiscoveredString
	Blocking() bool
}

// Result describes one reconciliation.
type Result struct {
	Rows    []Row
	Locales map[string]LocaleStats
	// Written lists every file whose bytes changed.
	Written []string
	// Removed lists locale and edit files of locales with no entries left.
	Removed []string
}

// Compiler is the key-value table compiler.
type Compiler struct {
	entries store.Store
	edits   *store.EditStore
	sink    report.Sink
	opts    Options
}

// New creates a compiler.
func New(entries store.Store, edits *store.EditStore, sink report.Sink, opts Options) *Compiler {
	return &Compiler{entries: entries, edits: edits, sink: sink, opts: opts}
}

// SourceTablePath returns the path of default.json.
func (c *Compiler) SourceTablePath() string {
	return filepath.Join(c.opts.I18nDir, SourceTableName)
}

// LocalePath returns the path of the generated file for locale.
func (c *Compiler) LocalePath(locale string) string {
	return filepath.Join(c.opts.I18nDir, locale+".json")
}

// Build refuses when the scan reported errors, and reconciles otherwise.
func (c *Compiler) Build(ctx context.Context, d Discoveries) (*Result, error) {
	if d.Blocking() {
		return nil, ErrRefused
	}
	return c.Reconcile(ctx, d.Strings())
}

// Reconcile assigns keys to the discovered strings, writes the source table
// and regenerates every locale file and edit file. Only a failure to read the
// previous source table or to write output aborts; a corrupt locale is
// reported and treated as having no translations.
func (c *Compiler) Reconcile(ctx context.Context, discovered []report.DiscoveredString) (*Result, error) {
	prev, err := c.previousTable()
	if err != nil {
		return nil, err
	}

	locales, err := c.entries.Locales(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locales: %w", err)
	}
	entries := make(map[string]store.Entries, len(locales))
	for _, locale := range locales {
		e, err := c.entries.Load(ctx, locale)
		if err != nil {
			c.sink.Report(report.Warnf(report.CodeCorruptFile, il.Provenance{},
				"[%s] unreadable translation entries, treating the locale as untranslated: %v", locale, err))
			e = store.Entries{}
		}
		entries[locale] = e
	}

	rows := c.assignKeys(prev, mergeLegacy(discovered, c.opts.Legacy), entries)
	res := &Result{Rows: rows, Locales: make(map[string]LocaleStats, len(locales))}

	if err := c.write(res, c.SourceTablePath(), renderSourceTable(rows, c.opts.Commit, c.opts.Link)); err != nil {
		return nil, err
	}

	for _, locale := range locales {
		prevEdits, err := c.edits.Load(locale)
		if err != nil {
			c.sink.Report(report.Warnf(report.CodeCorruptFile, il.Provenance{}, "[%s] unreadable edits, regenerating: %v", locale, err))
			prevEdits = nil
		}

		data, edits, stats := annotate(rows, entries[locale], prevEdits, c.opts.Commit)
		res.Locales[locale] = stats

		if err := c.write(res, c.LocalePath(locale), data); err != nil {
			log.Error().Err(err).Str("locale", locale).Msg("Failed to write locale file")
			continue
		}
		changed, err := c.edits.Save(locale, edits)
		if err != nil {
			log.Error().Err(err).Str("locale", locale).Msg("Failed to write edits")
			continue
		}
		if changed {
			res.Written = append(res.Written, c.edits.Path(locale))
		}

		log.Info().
			Str("locale", locale).
			Int("translated", stats.Translated).
			Int("changed", stats.Changed).
			Int("suggested", stats.Suggested).
			Int("missing", stats.Missing).
			Msg("Regenerated locale file")
	}

	if err := c.removeStale(res, locales); err != nil {
		return nil, err
	}

	log.Info().Int("keys", len(rows)).Int("locales", len(locales)).Int("written", len(res.Written)).Msg("Reconciliation complete")
	return res, nil
}

func (c *Compiler) write(res *Result, path string, data []byte) error {
	wrote, err := store.WriteFile(path, data)
	if err != nil {
		return err
	}
	if wrote {
		res.Written = append(res.Written, path)
	}
	return nil
}

// removeStale deletes the generated files of locales the store no longer has,
// such as a locale whose last entry was pruned.
func (c *Compiler) removeStale(res *Result, locales []string) error {
	files, err := os.ReadDir(c.opts.I18nDir)
	if err != nil {
		return fmt.Errorf("list generated tables: %w", err)
	}
	known := make(map[string]bool, len(locales))
	for _, l := range locales {
		known[l] = true
	}
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) != ".json" || name == SourceTableName {
			continue
		}
		locale := strings.TrimSuffix(name, ".json")
		if known[locale] {
			continue
		}
		for _, path := range []string{c.LocalePath(locale), c.edits.Path(locale)} {
			removed, err := store.RemoveFile(path)
			if err != nil {
				return fmt.Errorf("remove stale %s table: %w", locale, err)
			}
			if removed {
				res.Removed = append(res.Removed, path)
			}
		}
		log.Info().Str("locale", locale).Msg("Removed locale without translations")
	}
	return nil
}

// previousTable loads default.json; a missing table is empty.
func (c *Compiler) previousTable() (*store.Table, error) {
	t, err := store.ReadTable(c.SourceTablePath())
	if errors.Is(err, os.ErrNotExist) {
		return &store.Table{Values: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read source table: %w", err)
	}
	for _, key := range t.Duplicates {
		c.sink.Report(report.Warnf(report.CodeCorruptTable, il.Provenance{}, "source table lists key %q more than once", key))
	}
	return t, nil
}

// mergeLegacy tags discovered strings found in the legacy table with their key
// and appends legacy strings that were not discovered.
func mergeLegacy(discovered []report.DiscoveredString, legacy map[string]string) []report.DiscoveredString {
	if len(legacy) == 0 {
		return discovered
	}
	keys := make([]string, 0, len(legacy))
	for k := range legacy {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	byText := make(map[string]string, len(legacy))
	for _, k := range keys {
		if _, ok := byText[legacy[k]]; !ok {
			byText[legacy[k]] = k
		}
	}

	out := make([]report.DiscoveredString, 0, len(discovered)+len(legacy))
	seen := make(map[string]bool, len(discovered))
	for _, d := range discovered {
		if k, ok := byText[d.Text]; ok && d.Key == "" {
			d.Key = k
		}
		seen[d.Text] = true
		out = append(out, d)
	}
	for _, k := range keys {
		text := legacy[k]
		if seen[text] || byText[text] != k {
			continue
		}
		out = append(out, report.DiscoveredString{Text: text, Key: k})
	}
	return out
}

// assignKeys orders discovered strings by (file, line, text) and gives each a
// key: its legacy key, else the previous key for identical text, else a fresh
// hash key unique against every key in use. Strings without provenance sort last.
func (c *Compiler) assignKeys(prev *store.Table, discovered []report.DiscoveredString, entries map[string]store.Entries) []Row {
	sorted := append([]report.DiscoveredString(nil), discovered...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Pos.Valid() != b.Pos.Valid() {
			return a.Pos.Valid()
		}
		if a.Pos.File != b.Pos.File {
			return a.Pos.File < b.Pos.File
		}
		if a.Pos.Line != b.Pos.Line {
			return a.Pos.Line < b.Pos.Line
		}
		return a.Text < b.Text
	})

	alloc := newKeyAllocator()
	prevByText := make(map[string]string, len(prev.Values))
	for _, key := range prev.Order {
		text := prev.Values[key]
		if other, dup := prevByText[text]; dup {
			c.sink.Report(report.Warnf(report.CodeCorruptTable, il.Provenance{},
				"source table keys %q and %q both map to %q", other, key, text))
			continue
		}
		prevByText[text] = key
		alloc.reserve(key, text)
	}
	for _, d := range sorted {
		if d.Key != "" {
			alloc.force(d.Key, d.Text)
		}
	}
	for _, locale := range sortedLocales(entries) {
		for key, e := range entries[locale] {
			if _, taken := alloc.owner(key); !taken {
				alloc.reserve(key, e.Source)
			}
		}
	}

	// Dedupe, then hand out legacy keys before anything else so they always win.
	var unique []report.DiscoveredString
	seen := make(map[string]bool, len(sorted))
	for _, d := range sorted {
		if !seen[d.Text] {
			seen[d.Text] = true
			unique = append(unique, d)
		}
	}
	keys := make([]string, len(unique))
	used := make(map[string]bool, len(unique))
	for i, d := range unique {
		if d.Key != "" && !used[d.Key] {
			keys[i] = d.Key
			used[d.Key] = true
		}
	}

	rows := make([]Row, 0, len(unique))
	for i, d := range unique {
		key := keys[i]
		if key == "" {
			if k := prevByText[d.Text]; k != "" && !used[k] {
				key = k
			} else {
				key = alloc.allocate(d.Text)
			}
			used[key] = true
		}
		rows = append(rows, Row{Key: key, Text: d.Text, Format: d.Format, Pos: d.Pos})
	}
	return rows
}

func sortedLocales(entries map[string]store.Entries) []string {
	locales := make([]string, 0, len(entries))
	for l := range entries {
		locales = append(locales, l)
	}
	sort.Strings(locales)
	return locales
}
