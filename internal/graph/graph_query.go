package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// GraphQuerier reads glossary renderings from Neo4j.
type GraphQuerier struct {
	driver neo4j.DriverWithContext
}

// NewGraphQuerier creates a new graph querier.
func NewGraphQuerier(driver neo4j.DriverWithContext) *GraphQuerier {
	return &GraphQuerier{driver: driver}
}

// All returns every term's rendering for locale as source → rendering.
func (gq *GraphQuerier) All(ctx context.Context, locale string) (map[string]string, error) {
	session := gq.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (t:Term)-[r:RENDERED_AS]->(:Locale {tag: $locale})
		RETURN t.source AS source, r.text AS text
	`, map[string]any{"locale": locale})
	if err != nil {
		return nil, fmt.Errorf("query glossary: %w", err)
	}

	terms := make(map[string]string)
	for result.Next(ctx) {
		record := result.Record()
		source, _ := record.Get("source")
		text, _ := record.Get("text")
		terms[fmt.Sprintf("%v", source)] = fmt.Sprintf("%v", text)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}

	log.Debug().Str("locale", locale).Int("count", len(terms)).Msg("Loaded glossary from graph")
	return terms, nil
}

// Lookup returns the glossary renderings of the terms occurring in text.
func (gq *GraphQuerier) Lookup(ctx context.Context, locale, text string) (map[string]string, error) {
	terms, err := gq.All(ctx, locale)
	if err != nil {
		return nil, err
	}
	return Relevant(text, terms), nil
}
