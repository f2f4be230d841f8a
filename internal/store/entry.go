// Package store persists per-locale translation entries and pending edits.
package store

import (
	"context"
	"strings"
	"time"
)

// MachinePrefix marks authors of machine-generated translations.
const MachinePrefix = "machine:"

// Entry is one translation of one key in one locale.
type Entry struct {
	// Source is the source string at the time the translation was made.
	Source      string `json:"source"`
	Translation string `json:"translation"`
	// Author is a "platform:id" token.
	Author string    `json:"author"`
	Date   time.Time `json:"date"`
}

// IsMachine reports whether the entry was produced by machine translation.
func (e Entry) IsMachine() bool {
	return IsMachineAuthor(e.Author)
}

// IsMachineAuthor reports whether author carries the reserved machine prefix.
func IsMachineAuthor(author string) bool {
	return strings.HasPrefix(author, MachinePrefix)
}

// Entries maps key to entry for one locale.
type Entries map[string]Entry

// Edit is a pending change a translator still has to act on.
type Edit struct {
	OldSource string `json:"oldSource"`
	NewSource string `json:"newSource"`
	OldTarget string `json:"oldTarget,omitempty"`
	NewTarget string `json:"newTarget,omitempty"`
}

// Store is the durable per-locale translation-entry store.
type Store interface {
	// Locales lists every locale with persisted entries, sorted.
	Locales(ctx context.Context) ([]string, error)
	// Load returns the entries of one locale; a locale with no entries yields an empty map.
	Load(ctx context.Context, locale string) (Entries, error)
	// Save replaces the entries of one locale.
	Save(ctx context.Context, locale string, entries Entries) error
}
