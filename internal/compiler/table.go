package compiler

import (
	"strings"

	"localize-from-source/internal/il"
	"localize-from-source/internal/store"
	"localize-from-source/internal/textutil"
)

// Row is one entry of the source table.
type Row struct {
	Key  string
	Text string
	// Format marks a {{argN}} template.
	Format bool
	Pos    il.Provenance
}

// block is one entry of a generated JSON-with-comments file: its comment
// lines and either an active or a commented-out key/value pair.
type block struct {
	comments []string
	key      string
	value    string
	active   bool
}

// render writes a flat JSON object with comments. Commas follow every active
// entry except the last one, so the result is also valid for strict JSONC readers.
func render(commit string, blocks []block) []byte {
	last := -1
	for i, b := range blocks {
		if b.active {
			last = i
		}
	}

	var sb strings.Builder
	if commit != "" {
		sb.WriteString("// commit: " + commit + "\n")
	}
	sb.WriteString("{\n")
	for i, b := range blocks {
		for _, c := range b.comments {
			sb.WriteString("  // " + textutil.OneLine(c) + "\n")
		}
		pair := store.Quote(b.key) + ": " + store.Quote(b.value)
		switch {
		case !b.active:
			sb.WriteString("  // " + pair + "\n")
		case i < last:
			sb.WriteString("  " + pair + ",\n")
		default:
			sb.WriteString("  " + pair + "\n")
		}
	}
	sb.WriteString("}\n")
	return []byte(sb.String())
}

// renderSourceTable writes i18n/default.json. link may return "" when no
// source hyperlink is available.
func renderSourceTable(rows []Row, commit string, link func(il.Provenance) string) []byte {
	blocks := make([]block, 0, len(rows))
	for _, r := range rows {
		b := block{key: r.Key, value: r.Text, active: true}
		if link != nil && r.Pos.Valid() {
			if url := link(r.Pos); url != "" {
				b.comments = append(b.comments, url)
			}
		}
		blocks = append(blocks, b)
	}
	return render(commit, blocks)
}
