// Package memory is a translation memory: accepted translations indexed by a
// text vector in PostgreSQL (pgvector) for similarity search.
package memory

import (
	"context"
	"fmt"
	"sync"

	"localize-from-source/internal/store"
	"localize-from-source/internal/textutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
)

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS translation_memory (
	locale      TEXT NOT NULL,
	hash        TEXT NOT NULL,
	key         TEXT NOT NULL,
	source      TEXT NOT NULL,
	translation TEXT NOT NULL,
	author      TEXT NOT NULL,
	embedding   vector(%d) NOT NULL,
	PRIMARY KEY (locale, hash)
)`, Dimensions),
}

// Match is a remembered translation similar to a query.
type Match struct {
	Source      string
	Translation string
	Author      string
	Score       float64
}

// Store is the pgvector-backed translation memory with an in-process layer
// for exact lookups.
type Store struct {
	pool *pgxpool.Pool

	mu    sync.RWMutex
	exact map[string]string // hash(locale, source) → translation
}

// NewStore creates a translation memory.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, exact: make(map[string]string)}
}

// EnsureSchema creates the extension and table if needed.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create translation memory schema: %w", err)
		}
	}
	return nil
}

func exactKey(locale, source string) string {
	return textutil.Hash(locale + "\x00" + source)
}

// Remember upserts one translation.
func (s *Store) Remember(ctx context.Context, locale, key string, e store.Entry) error {
	hash := textutil.Hash(e.Source)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO translation_memory (locale, hash, key, source, translation, author, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (locale, hash) DO UPDATE
		SET key = EXCLUDED.key, translation = EXCLUDED.translation, author = EXCLUDED.author`,
		locale, hash, key, e.Source, e.Translation, e.Author, pgvector.NewVector(Vectorize(e.Source)))
	if err != nil {
		return fmt.Errorf("remember %s translation: %w", locale, err)
	}

	s.mu.Lock()
	s.exact[exactKey(locale, e.Source)] = e.Translation
	s.mu.Unlock()
	return nil
}

// RememberAll upserts every human translation of a locale.
func (s *Store) RememberAll(ctx context.Context, locale string, entries store.Entries) (int, error) {
	n := 0
	for key, e := range entries {
		if e.IsMachine() || e.Translation == "" {
			continue
		}
		if err := s.Remember(ctx, locale, key, e); err != nil {
			return n, err
		}
		n++
	}
	log.Info().Str("locale", locale).Int("entries", n).Msg("Updated translation memory")
	return n, nil
}

// Exact returns the remembered translation of source, if any.
func (s *Store) Exact(ctx context.Context, locale, source string) (string, bool) {
	k := exactKey(locale, source)
	s.mu.RLock()
	if v, ok := s.exact[k]; ok {
		s.mu.RUnlock()
		return v, true
	}
	s.mu.RUnlock()

	var translation string
	err := s.pool.QueryRow(ctx,
		`SELECT translation FROM translation_memory WHERE locale = $1 AND hash = $2`,
		locale, textutil.Hash(source)).Scan(&translation)
	if err != nil {
		return "", false
	}

	s.mu.Lock()
	s.exact[k] = translation
	s.mu.Unlock()
	return translation, true
}

// Search returns up to k remembered translations most similar to text.
func (s *Store) Search(ctx context.Context, locale, text string, k int) ([]Match, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT source, translation, author, 1 - (embedding <=> $1) AS score
		FROM translation_memory
		WHERE locale = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		pgvector.NewVector(Vectorize(text)), locale, k)
	if err != nil {
		return nil, fmt.Errorf("search translation memory: %w", err)
	}
	matches, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Match])
	if err != nil {
		return nil, fmt.Errorf("scan translation memory: %w", err)
	}
	return matches, nil
}
