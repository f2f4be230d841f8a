package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/tailscale/hujson"
)

// commitComment matches the "// commit: <hash>" provenance line.
var commitComment = regexp.MustCompile(`//\s*commit:\s*([0-9A-Fa-f]+)`)

// Table is a flat key→string JSON-with-comments file: the source table, an
// annotated locale file or a translator's file.
type Table struct {
	// Commit is the hash from a leading "// commit:" comment, if any.
	Commit string
	Values map[string]string
	// Order lists keys as they appear in the file.
	Order []string
	// Duplicates lists keys that appeared more than once; the last value wins.
	Duplicates []string
}

// ReadTable reads a table from disk. A missing file returns an error
// satisfying errors.Is(err, os.ErrNotExist).
func ReadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

// ParseTable parses a JSON-with-comments object whose values are all strings.
// Commented-out entries are ignored.
func ParseTable(data []byte) (*Table, error) {
	v, err := hujson.Parse(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.Value.(*hujson.Object)
	if !ok {
		return nil, fmt.Errorf("top-level value is not an object")
	}

	t := &Table{Values: make(map[string]string, len(obj.Members))}
	if m := commitComment.FindSubmatch(v.BeforeExtra); m != nil {
		t.Commit = string(m[1])
	}
	for _, member := range obj.Members {
		name, ok := member.Name.Value.(hujson.Literal)
		if !ok || name.Kind() != '"' {
			return nil, fmt.Errorf("object key is not a string")
		}
		key := name.String()
		lit, ok := member.Value.Value.(hujson.Literal)
		if !ok || lit.Kind() != '"' {
			return nil, fmt.Errorf("value of %q is not a string", key)
		}
		if _, dup := t.Values[key]; dup {
			t.Duplicates = append(t.Duplicates, key)
		} else {
			t.Order = append(t.Order, key)
		}
		t.Values[key] = lit.String()
	}
	return t, nil
}

// Quote renders s as a JSON string literal without HTML escaping.
func Quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
