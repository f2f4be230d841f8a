package cli

import (
	"context"
	"fmt"
	"sort"

	"localize-from-source/internal/graph"
	"localize-from-source/internal/invariant"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func glossaryCmd(open func() (*env, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glossary",
		Short: "Manage the glossary graph used for machine drafts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Write known proper nouns and the localize.toml glossary to Neo4j",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(open, runGlossarySync)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <locale> [text]",
		Short: "Print the glossary of a locale, or the terms occurring in text",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(open, func(ctx context.Context, e *env) error {
				driver, err := e.neo4j(ctx)
				if err != nil {
					return err
				}
				q := graph.NewGraphQuerier(driver)

				var terms map[string]string
				if len(args) == 2 {
					terms, err = q.Lookup(ctx, args[0], args[1])
				} else {
					terms, err = q.All(ctx, args[0])
				}
				if err != nil {
					return err
				}

				sources := lo.Keys(terms)
				sort.Strings(sources)
				for _, s := range sources {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s, terms[s])
				}
				return nil
			})
		},
	})

	return cmd
}

func runGlossarySync(ctx context.Context, e *env) error {
	entries, err := e.entries(ctx)
	if err != nil {
		return err
	}
	locales, err := entries.Locales(ctx)
	if err != nil {
		return fmt.Errorf("list locales: %w", err)
	}
	for _, renderings := range e.project.Glossary {
		locales = append(locales, lo.Keys(renderings)...)
	}
	locales = lo.Uniq(locales)
	sort.Strings(locales)

	driver, err := e.neo4j(ctx)
	if err != nil {
		return err
	}
	builder := graph.NewGraphBuilder(driver)
	if err := builder.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure graph schema: %w", err)
	}

	terms := graph.SeedTerms(e.project.Glossary, invariant.ProperNouns(), locales)
	if _, err := builder.Sync(ctx, terms); err != nil {
		return fmt.Errorf("sync glossary: %w", err)
	}
	return nil
}
