package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// FileStore keeps one JSON file per locale in a directory (l10n/translations).
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the directory holding the locale files.
func (fs *FileStore) Dir() string {
	return fs.dir
}

func (fs *FileStore) path(locale string) string {
	return filepath.Join(fs.dir, locale+".json")
}

func (fs *FileStore) Locales(_ context.Context) ([]string, error) {
	files, err := os.ReadDir(fs.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list translation store: %w", err)
	}
	var locales []string
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		locales = append(locales, strings.TrimSuffix(f.Name(), ".json"))
	}
	sort.Strings(locales)
	return locales, nil
}

func (fs *FileStore) Load(_ context.Context, locale string) (Entries, error) {
	entries := Entries{}
	if err := readJSON(fs.path(locale), &entries); err != nil {
		return nil, fmt.Errorf("load %s entries: %w", locale, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("load %s entries: file holds null", locale)
	}
	return entries, nil
}

func (fs *FileStore) Save(_ context.Context, locale string, entries Entries) error {
	if len(entries) == 0 {
		_, err := RemoveFile(fs.path(locale))
		return err
	}
	data, err := marshalJSON(entries)
	if err != nil {
		return fmt.Errorf("encode %s entries: %w", locale, err)
	}
	if _, err := WriteFile(fs.path(locale), data); err != nil {
		return fmt.Errorf("save %s entries: %w", locale, err)
	}
	return nil
}

// EditStore keeps pending edits per locale (l10n/edits). The file for a locale
// exists only while it has edits.
type EditStore struct {
	dir string
}

// NewEditStore creates an edit store rooted at dir.
func NewEditStore(dir string) *EditStore {
	return &EditStore{dir: dir}
}

// Path returns the edit file of locale.
func (es *EditStore) Path(locale string) string {
	return filepath.Join(es.dir, locale+".json")
}

// Load returns the pending edits of one locale.
func (es *EditStore) Load(locale string) (map[string]Edit, error) {
	edits := map[string]Edit{}
	if err := readJSON(es.Path(locale), &edits); err != nil {
		return nil, fmt.Errorf("load %s edits: %w", locale, err)
	}
	if edits == nil {
		edits = map[string]Edit{}
	}
	return edits, nil
}

// Save writes the edits of one locale, removing the file when there are none.
// It reports whether anything on disk changed.
func (es *EditStore) Save(locale string, edits map[string]Edit) (bool, error) {
	if len(edits) == 0 {
		return RemoveFile(es.Path(locale))
	}
	data, err := marshalJSON(edits)
	if err != nil {
		return false, fmt.Errorf("encode %s edits: %w", locale, err)
	}
	return WriteFile(es.Path(locale), data)
}

// readJSON decodes path into v; a missing file leaves v untouched.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// marshalJSON encodes with sorted map keys, two-space indent and no HTML escaping.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to path unless the file already holds exactly those
// bytes. It reports whether the file was written.
func WriteFile(path string, data []byte) (bool, error) {
	old, err := os.ReadFile(path)
	if err == nil && bytes.Equal(old, data) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("Wrote file")
	return true, nil
}

// RemoveFile deletes path if present and reports whether it existed.
func RemoveFile(path string) (bool, error) {
	err := os.Remove(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("remove %s: %w", path, err)
	}
}
