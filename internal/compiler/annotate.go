package compiler

import (
	"fmt"
	"strconv"

	"localize-from-source/internal/store"
)

// Sentinel marks every open item in a generated locale file.
const Sentinel = "TRANSLATION-TODO"

// LocaleStats counts the outcome of regenerating one locale file.
type LocaleStats struct {
	Translated int
	Changed    int
	Suggested  int
	Missing    int
}

// Open is the number of entries that still need a translator.
func (s LocaleStats) Open() int {
	return s.Changed + s.Suggested + s.Missing
}

// annotate builds the per-locale file for rows from that locale's entries and
// returns it with the edits a translator has to act on. prevEdits supplies
// targets already proposed for an unchanged edit.
func annotate(rows []Row, entries store.Entries, prevEdits map[string]store.Edit, commit string) ([]byte, map[string]store.Edit, LocaleStats) {
	var stats LocaleStats
	edits := make(map[string]store.Edit)
	blocks := make([]block, 0, len(rows))

	for _, r := range rows {
		if e, ok := entries[r.Key]; ok {
			if e.Source == r.Text {
				stats.Translated++
				blocks = append(blocks, block{
					comments: []string{e.Author + " " + e.Date.UTC().Format("2006-01-02")},
					key:      r.Key, value: e.Translation, active: true,
				})
				continue
			}
			stats.Changed++
			blocks = append(blocks, block{
				comments: []string{
					Sentinel + ": source changed since this was translated by " + e.Author,
					"  old source: " + strconv.Quote(e.Source),
					"  new source: " + strconv.Quote(r.Text),
				},
				key: r.Key, value: e.Translation, active: true,
			})
			edits[r.Key] = carryTarget(store.Edit{OldSource: e.Source, NewSource: r.Text, OldTarget: e.Translation}, prevEdits[r.Key])
			continue
		}

		if s, ok := bestMatch(r.Text, entries); ok {
			stats.Suggested++
			blocks = append(blocks, block{
				comments: []string{
					Sentinel + fmt.Sprintf(": source changed; suggestion from %q (%.0f%% similar)", s.key, s.score*100),
					"  old source: " + strconv.Quote(s.entry.Source),
					"  new source: " + strconv.Quote(r.Text),
				},
				key: r.Key, value: s.entry.Translation,
			})
			edits[r.Key] = carryTarget(store.Edit{OldSource: s.entry.Source, NewSource: r.Text, OldTarget: s.entry.Translation}, prevEdits[r.Key])
			continue
		}

		stats.Missing++
		blocks = append(blocks, block{
			comments: []string{
				Sentinel + ": missing translation",
				"  source: " + strconv.Quote(r.Text),
			},
			key: r.Key,
		})
	}
	return render(commit, blocks), edits, stats
}

// carryTarget keeps a proposed new target when the edit itself has not changed.
func carryTarget(e, prev store.Edit) store.Edit {
	if prev.NewTarget != "" && prev.OldSource == e.OldSource && prev.NewSource == e.NewSource {
		e.NewTarget = prev.NewTarget
	}
	return e
}
