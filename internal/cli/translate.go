package cli

import (
	"context"
	"fmt"
	"os"

	"localize-from-source/internal/gitinfo"
	"localize-from-source/internal/graph"
	"localize-from-source/internal/ingest"
	"localize-from-source/internal/memory"
	"localize-from-source/internal/report"
	"localize-from-source/internal/store"
	"localize-from-source/internal/translation"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

type translateOptions struct {
	glossary bool
	remember bool
	examples int
}

func translateCmd(open func() (*env, error)) *cobra.Command {
	var opts translateOptions
	cmd := &cobra.Command{
		Use:   "translate [locale...]",
		Short: "Draft machine translations for untranslated keys",
		Long: `Drafts translations for keys no translator has covered, for the given locales
or every locale in the translation store. Drafts are stored under a machine author,
so any human translation supersedes them and they are never used over one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(open, func(ctx context.Context, e *env) error {
				return runTranslate(ctx, e, args, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.glossary, "glossary", false, "Add glossary terms from Neo4j to the prompts")
	cmd.Flags().BoolVar(&opts.remember, "memory", false, "Reuse and show similar translations from the translation memory")
	cmd.Flags().IntVar(&opts.examples, "examples", 3, "Similar translations shown per text with --memory")

	return cmd
}

func runTranslate(ctx context.Context, e *env, locales []string, opts translateOptions) error {
	for _, l := range locales {
		if _, err := language.Parse(l); err != nil {
			return fmt.Errorf("locale %q: %w", l, err)
		}
	}

	source, err := store.ReadTable(e.sourceTablePath())
	if err != nil {
		return fmt.Errorf("read source table: %w", err)
	}

	entries, err := e.entries(ctx)
	if err != nil {
		return err
	}
	if len(locales) == 0 {
		if locales, err = entries.Locales(ctx); err != nil {
			return fmt.Errorf("list locales: %w", err)
		}
	}
	if len(locales) == 0 {
		log.Warn().Msg("No locales to translate; name one on the command line")
		return nil
	}

	client := translation.NewGeminiClient(e.cfg.GeminiAPIKey, e.cfg.TranslationModel)
	svc := translation.NewService(client, translation.Options{
		SourceLocale: e.project.SourceLocale,
		Workers:      e.cfg.MaxConcurrentAPICalls,
		BatchSize:    e.cfg.BatchSize,
		Examples:     opts.examples,
	})

	if opts.glossary {
		driver, err := e.neo4j(ctx)
		if err != nil {
			return err
		}
		svc.WithGlossary(graph.NewGraphQuerier(driver))
	}
	if opts.remember {
		pool, err := e.postgres(ctx)
		if err != nil {
			return err
		}
		mem := memory.NewStore(pool)
		if err := mem.EnsureSchema(ctx); err != nil {
			return err
		}
		svc.WithMemory(mem)
	}

	md := gitinfo.Detect(ctx, e.project.Root)
	collector := report.NewCollector(os.Stderr)
	merger := ingest.New(entries, e.edits(), collector, ingest.Options{
		SourceTable: e.sourceTablePath(),
		Head:        md.Commit,
		Partial:     true,
	})
	author := store.MachinePrefix + client.Model()

	for _, locale := range locales {
		prior, err := entries.Load(ctx, locale)
		if err != nil {
			return fmt.Errorf("load %s entries: %w", locale, err)
		}
		jobs := translation.Pending(source, prior)
		if len(jobs) == 0 {
			log.Info().Str("locale", locale).Msg("Nothing to translate")
			continue
		}

		drafts, err := svc.Draft(ctx, locale, jobs)
		if err != nil {
			return err
		}
		if len(drafts) == 0 {
			log.Warn().Str("locale", locale).Int("pending", len(jobs)).Msg("No drafts produced")
			continue
		}

		res, err := merger.Ingest(ctx, locale, draftTable(source.Commit, drafts, source.Order), author)
		if err != nil {
			return fmt.Errorf("merge %s drafts: %w", locale, err)
		}
		log.Info().
			Str("locale", locale).
			Int("pending", len(jobs)).
			Int("written", res.Written).
			Msg("Stored machine drafts")
	}

	usage := client.Usage()
	log.Info().
		Int64("requests", usage.Requests).
		Int64("prompt_tokens", usage.PromptTokens).
		Int64("output_tokens", usage.OutputTokens).
		Msg("Translation complete")
	return nil
}

// draftTable wraps machine drafts as a translator file.
func draftTable(commit string, drafts map[string]string, order []string) *store.Table {
	t := &store.Table{Commit: commit, Values: drafts}
	for _, k := range order {
		if _, ok := drafts[k]; ok {
			t.Order = append(t.Order, k)
		}
	}
	return t
}
