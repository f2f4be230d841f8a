// Package ingest merges translator files back into the translation-entry store.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"localize-from-source/internal/il"
	"localize-from-source/internal/report"
	"localize-from-source/internal/store"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
	"golang.org/x/text/language"
)

// OrphanKeysError is returned when a translator file names keys the current
// source table does not have. Nothing is written in that case.
type OrphanKeysError struct {
	Locale string
	Keys   []string
}

func (e *OrphanKeysError) Error() string {
	return fmt.Sprintf("%s: %d key(s) not in the current source table, translate from the current default.json: %s",
		e.Locale, len(e.Keys), strings.Join(e.Keys, ", "))
}

// Memory receives accepted human translations.
type Memory interface {
	Remember(ctx context.Context, locale, key string, e store.Entry) error
}

// Options configure a Merger.
type Options struct {
	// SourceTable is the path of i18n/default.json.
	SourceTable string
	// Head is the current commit; empty skips the staleness check.
	Head string
	// Partial suppresses incomplete-translation warnings, for machine drafts
	// that only cover missing keys.
	Partial bool
	Now     func() time.Time
}

// Result counts what one ingestion did.
type Result struct {
	Locale    string
	Written   int
	Unchanged int
	Missing   int
	Stale     int
	Pruned    int
}

// Merger is the ingestion merger.
type Merger struct {
	entries store.Store
	edits   *store.EditStore
	sink    report.Sink
	memory  Memory
	opts    Options
}

// New creates a merger.
func New(entries store.Store, edits *store.EditStore, sink report.Sink, opts Options) *Merger {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Merger{entries: entries, edits: edits, sink: sink, opts: opts}
}

// WithMemory mirrors accepted human translations into mem.
func (m *Merger) WithMemory(mem Memory) *Merger {
	m.memory = mem
	return m
}

// LocaleOf returns the locale encoded in a translator file name.
func LocaleOf(path string) (string, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if _, err := language.Parse(name); err != nil {
		return "", fmt.Errorf("file name %q is not a locale: %w", filepath.Base(path), err)
	}
	return name, nil
}

// IngestFiles ingests each file in turn. A failing file does not stop the
// others; every failure is returned.
func (m *Merger) IngestFiles(ctx context.Context, paths []string, author string) ([]*Result, error) {
	var results []*Result
	var errs error
	for _, p := range paths {
		res, err := m.IngestFile(ctx, p, author)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("ingest %s: %w", p, err))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// IngestFile merges one translator file, named after its locale.
func (m *Merger) IngestFile(ctx context.Context, path, author string) (*Result, error) {
	locale, err := LocaleOf(path)
	if err != nil {
		return nil, err
	}
	incoming, err := store.ReadTable(path)
	if err != nil {
		return nil, fmt.Errorf("read translator file: %w", err)
	}
	return m.Ingest(ctx, locale, incoming, author)
}

// Ingest merges incoming translations for locale, stamped with author.
func (m *Merger) Ingest(ctx context.Context, locale string, incoming *store.Table, author string) (*Result, error) {
	source, err := store.ReadTable(m.opts.SourceTable)
	if err != nil {
		return nil, fmt.Errorf("read source table: %w", err)
	}

	var orphans []string
	for key := range incoming.Values {
		if _, ok := source.Values[key]; !ok {
			orphans = append(orphans, key)
		}
	}
	if len(orphans) > 0 {
		sort.Strings(orphans)
		for _, key := range orphans {
			m.sink.Report(report.Errorf(report.CodeOrphanKey, il.Provenance{}, "[%s] key %q is not in the current source table", locale, key))
		}
		return nil, &OrphanKeysError{Locale: locale, Keys: orphans}
	}

	m.checkCommit(locale, incoming.Commit)

	prior, err := m.entries.Load(ctx, locale)
	if err != nil {
		return nil, err
	}

	res := &Result{Locale: locale}
	now := m.opts.Now().UTC()
	next := make(store.Entries, len(source.Order))
	var accepted []string

	for _, key := range source.Order {
		src := source.Values[key]
		old, had := prior[key]
		text, ok := incoming.Values[key]

		if !ok || text == "" {
			if had {
				next[key] = old
			}
			res.Missing++
			if !m.opts.Partial {
				m.sink.Report(report.Warnf(report.CodeIncomplete, il.Provenance{}, "[%s] no translation for key %q", locale, key))
			}
			continue
		}

		if had && !supersedes(old, text, author) {
			next[key] = old
			res.Unchanged++
			if old.Source != src {
				res.Stale++
				m.sink.Report(report.Warnf(report.CodeNotUpdated, il.Provenance{},
					"[%s] translation for key %q did not change although its source changed from %q to %q", locale, key, old.Source, src))
			}
			continue
		}

		next[key] = store.Entry{Source: src, Translation: text, Author: author, Date: now}
		res.Written++
		accepted = append(accepted, key)
	}
	for key := range prior {
		if _, ok := source.Values[key]; !ok {
			res.Pruned++
		}
	}

	if err := m.entries.Save(ctx, locale, next); err != nil {
		return nil, err
	}
	if err := m.resolveEdits(locale, next, source); err != nil {
		log.Warn().Err(err).Str("locale", locale).Msg("Failed to update edits")
	}
	if m.memory != nil && !store.IsMachineAuthor(author) {
		for _, key := range accepted {
			if err := m.memory.Remember(ctx, locale, key, next[key]); err != nil {
				log.Warn().Err(err).Str("locale", locale).Str("key", key).Msg("Failed to update translation memory")
			}
		}
	}

	log.Info().
		Str("locale", locale).
		Str("author", author).
		Int("written", res.Written).
		Int("unchanged", res.Unchanged).
		Int("missing", res.Missing).
		Int("stale", res.Stale).
		Int("pruned", res.Pruned).
		Msg("Ingested translations")
	return res, nil
}

// supersedes reports whether an incoming translation by author replaces old.
// Machine output never replaces a human translation; a human one always
// replaces machine output.
func supersedes(old store.Entry, text, author string) bool {
	machine := store.IsMachineAuthor(author)
	switch {
	case !old.IsMachine() && machine:
		return false
	case old.IsMachine() && !machine:
		return true
	default:
		return old.Translation != text
	}
}

func (m *Merger) checkCommit(locale, commit string) {
	switch {
	case commit == "":
		m.sink.Report(report.Warnf(report.CodeCommit, il.Provenance{}, "[%s] translator file has no \"// commit:\" comment", locale))
	case m.opts.Head != "" && !sameCommit(commit, m.opts.Head):
		m.sink.Report(report.Warnf(report.CodeCommit, il.Provenance{},
			"[%s] translator file was made from commit %s, the current commit is %s", locale, commit, m.opts.Head))
	}
}

// sameCommit compares possibly abbreviated hashes.
func sameCommit(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if len(a) > len(b) {
		a, b = b, a
	}
	return len(a) >= 7 && strings.HasPrefix(b, a) || a == b
}

// resolveEdits drops edits whose key left the source table or whose entry now
// matches the new source.
func (m *Merger) resolveEdits(locale string, entries store.Entries, source *store.Table) error {
	edits, err := m.edits.Load(locale)
	if err != nil {
		return err
	}
	for key, e := range edits {
		cur, ok := source.Values[key]
		if !ok || cur != e.NewSource || entries[key].Source == cur {
			delete(edits, key)
		}
	}
	_, err = m.edits.Save(locale, edits)
	return err
}
