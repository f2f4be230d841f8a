package filewalker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Extensions of the files the tool reads.
const (
	ListingExt = ".il"
	TableExt   = ".json"
)

// Walker discovers files with given extensions.
type Walker struct {
	exts map[string]bool
}

// NewWalker creates a walker matching the given extensions.
func NewWalker(exts ...string) *Walker {
	w := &Walker{exts: make(map[string]bool, len(exts))}
	for _, e := range exts {
		w.exts[strings.ToLower(e)] = true
	}
	return w
}

// NewListingWalker finds ildasm listings.
func NewListingWalker() *Walker {
	return NewWalker(ListingExt)
}

// NewTableWalker finds translator files.
func NewTableWalker() *Walker {
	return NewWalker(TableExt)
}

// FileEntry is a discovered file.
type FileEntry struct {
	Path string
	Ext  string
}

// Walk discovers matching files under root in lexical order. A root that is a
// file is returned as is, whatever its extension.
func (w *Walker) Walk(root string) ([]FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return []FileEntry{{Path: root, Ext: strings.ToLower(filepath.Ext(root))}}, nil
	}

	var entries []FileEntry

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if info.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if w.exts[ext] {
			entries = append(entries, FileEntry{Path: path, Ext: ext})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	log.Debug().Int("count", len(entries)).Str("root", root).Msg("Discovered files")
	return entries, nil
}

// WalkAll walks every root, dropping files already found.
func (w *Walker) WalkAll(roots []string) ([]FileEntry, error) {
	var all []FileEntry
	seen := make(map[string]bool)
	for _, root := range roots {
		entries, err := w.Walk(root)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !seen[e.Path] {
				seen[e.Path] = true
				all = append(all, e)
			}
		}
	}
	log.Info().Int("count", len(all)).Int("roots", len(roots)).Msg("Discovered files")
	return all, nil
}

// Paths returns the path of every entry.
func Paths(entries []FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}
