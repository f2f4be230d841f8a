package compiler

import (
	"crypto/sha256"
	"encoding/base32"
	"strings"
)

// KeyLength is the length of a freshly generated key.
const KeyLength = 6

var keyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// HashKey derives a key of n characters from text: lowercase base32 of its
// SHA-256, truncated.
func HashKey(text string, n int) string {
	sum := sha256.Sum256([]byte(text))
	full := strings.ToLower(keyEncoding.EncodeToString(sum[:]))
	if n > len(full) {
		n = len(full)
	}
	return full[:n]
}

// keyAllocator hands out keys that are unique against every key in use.
type keyAllocator struct {
	// owners maps each key in use to the text it names.
	owners map[string]string
}

func newKeyAllocator() *keyAllocator {
	return &keyAllocator{owners: make(map[string]string)}
}

// reserve records key as naming text. It reports false when key already names
// different text.
func (a *keyAllocator) reserve(key, text string) bool {
	if owner, ok := a.owners[key]; ok && owner != text {
		return false
	}
	a.owners[key] = text
	return true
}

// force records key as naming text regardless of earlier reservations.
func (a *keyAllocator) force(key, text string) {
	a.owners[key] = text
}

// owner returns the text a key was reserved for.
func (a *keyAllocator) owner(key string) (string, bool) {
	text, ok := a.owners[key]
	return text, ok
}

// allocate returns the hash key for text, extended two characters at a time
// while a shorter key names different text.
func (a *keyAllocator) allocate(text string) string {
	for n := KeyLength; ; n += 2 {
		key := HashKey(text, n)
		if a.reserve(key, text) {
			return key
		}
		if len(key) < n {
			// The whole digest collides; only identical text can do that.
			return key
		}
	}
}
