package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const entriesSchema = `
CREATE TABLE IF NOT EXISTS translation_entries (
	locale      TEXT        NOT NULL,
	key         TEXT        NOT NULL,
	source      TEXT        NOT NULL,
	translation TEXT        NOT NULL,
	author      TEXT        NOT NULL,
	date        TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (locale, key)
)`

// PostgresStore keeps translation entries in PostgreSQL, for teams that share
// one store across several checkouts.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the entries table if needed.
func (ps *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := ps.pool.Exec(ctx, entriesSchema); err != nil {
		return fmt.Errorf("create translation_entries: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Locales(ctx context.Context) ([]string, error) {
	rows, err := ps.pool.Query(ctx, `SELECT DISTINCT locale FROM translation_entries ORDER BY locale`)
	if err != nil {
		return nil, fmt.Errorf("query locales: %w", err)
	}
	locales, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan locales: %w", err)
	}
	return locales, nil
}

func (ps *PostgresStore) Load(ctx context.Context, locale string) (Entries, error) {
	rows, err := ps.pool.Query(ctx,
		`SELECT key, source, translation, author, date FROM translation_entries WHERE locale = $1`, locale)
	if err != nil {
		return nil, fmt.Errorf("query %s entries: %w", locale, err)
	}
	defer rows.Close()

	entries := Entries{}
	for rows.Next() {
		var key string
		var e Entry
		if err := rows.Scan(&key, &e.Source, &e.Translation, &e.Author, &e.Date); err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", locale, err)
		}
		e.Date = e.Date.UTC()
		entries[key] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s entries: %w", locale, err)
	}
	return entries, nil
}

// Save replaces the locale's rows in one transaction.
func (ps *PostgresStore) Save(ctx context.Context, locale string, entries Entries) error {
	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM translation_entries WHERE locale = $1`, locale); err != nil {
		return fmt.Errorf("clear %s entries: %w", locale, err)
	}

	rows := make([][]any, 0, len(entries))
	for key, e := range entries {
		rows = append(rows, []any{locale, key, e.Source, e.Translation, e.Author, e.Date})
	}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"translation_entries"},
		[]string{"locale", "key", "source", "translation", "author", "date"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy %s entries: %w", locale, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s entries: %w", locale, err)
	}
	log.Info().Str("locale", locale).Int64("entries", n).Msg("Saved translation entries")
	return nil
}
