package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// GraphBuilder writes glossary terms to Neo4j.
type GraphBuilder struct {
	driver neo4j.DriverWithContext
}

// NewGraphBuilder creates a new graph builder.
func NewGraphBuilder(driver neo4j.DriverWithContext) *GraphBuilder {
	return &GraphBuilder{driver: driver}
}

// EnsureSchema creates constraints on the Neo4j database.
func (gb *GraphBuilder) EnsureSchema(ctx context.Context) error {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (t:Term) REQUIRE t.source IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (l:Locale) REQUIRE l.tag IS UNIQUE",
	}

	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Msg("Graph schema ensured")
	return nil
}

// Sync upserts terms and their renderings. A failed term is logged and skipped.
func (gb *GraphBuilder) Sync(ctx context.Context, terms []Term) (int, error) {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	synced := 0
	for _, t := range terms {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}

		_, err := session.Run(ctx, `
			MERGE (t:Term {source: $source})
			SET t.category = $category
		`, map[string]any{
			"source":   t.Source,
			"category": t.Category,
		})
		if err != nil {
			log.Warn().Err(err).Str("term", t.Source).Msg("Failed to upsert term")
			continue
		}

		for locale, rendering := range t.Renderings {
			_, err := session.Run(ctx, `
				MATCH (t:Term {source: $source})
				MERGE (l:Locale {tag: $locale})
				MERGE (t)-[r:RENDERED_AS]->(l)
				SET r.text = $text
			`, map[string]any{
				"source": t.Source,
				"locale": locale,
				"text":   rendering,
			})
			if err != nil {
				log.Warn().Err(err).
					Str("term", t.Source).
					Str("locale", locale).
					Msg("Failed to upsert rendering")
			}
		}
		synced++
	}

	log.Info().Int("terms", synced).Msg("Synced glossary terms")
	return synced, nil
}
