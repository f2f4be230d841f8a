package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"localize-from-source/internal/filewalker"
	"localize-from-source/internal/gitinfo"
	"localize-from-source/internal/ingest"
	"localize-from-source/internal/memory"
	"localize-from-source/internal/report"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type ingestOptions struct {
	author   string
	since    string
	partial  bool
	remember bool
}

func ingestCmd(open func() (*env, error)) *cobra.Command {
	var opts ingestOptions
	cmd := &cobra.Command{
		Use:   "ingest <file-or-dir>...",
		Short: "Merge translator files (<locale>.json) into the translation store",
		Long: `Merges translator files named after their locale into the translation store.
Keys missing from the current i18n/default.json abort the file; run "localize build"
afterwards to regenerate the annotated locale tables.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(open, func(ctx context.Context, e *env) error {
				return runIngest(ctx, e, args, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.author, "author", "", `Translator identity as "platform:id", e.g. github:anna (required)`)
	cmd.Flags().StringVar(&opts.since, "since", "", "Only ingest files changed between this commit and HEAD")
	cmd.Flags().BoolVar(&opts.partial, "partial", false, "Do not warn about keys the files leave untranslated")
	cmd.Flags().BoolVar(&opts.remember, "memory", false, "Also store accepted translations in the translation memory")
	_ = cmd.MarkFlagRequired("author")

	return cmd
}

func runIngest(ctx context.Context, e *env, roots []string, opts ingestOptions) error {
	if !strings.Contains(opts.author, ":") {
		return fmt.Errorf("author %q: want platform:id", opts.author)
	}

	files, err := translatorFiles(ctx, roots, opts.since)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Warn().Msg("No translator files to ingest")
		return nil
	}

	entries, err := e.entries(ctx)
	if err != nil {
		return err
	}

	md := gitinfo.Detect(ctx, e.project.Root)
	collector := report.NewCollector(os.Stderr)
	merger := ingest.New(entries, e.edits(), collector, ingest.Options{
		SourceTable: e.sourceTablePath(),
		Head:        md.Commit,
		Partial:     opts.partial,
	})

	if opts.remember {
		pool, err := e.postgres(ctx)
		if err != nil {
			return err
		}
		mem := memory.NewStore(pool)
		if err := mem.EnsureSchema(ctx); err != nil {
			return err
		}
		merger.WithMemory(mem)
	}

	results, err := merger.IngestFiles(ctx, files, opts.author)
	for _, r := range results {
		log.Info().
			Str("locale", r.Locale).
			Int("written", r.Written).
			Int("unchanged", r.Unchanged).
			Int("missing", r.Missing).
			Int("stale", r.Stale).
			Int("pruned", r.Pruned).
			Msg("Ingested translator file")
	}
	if err != nil {
		return err
	}

	log.Info().Int("files", len(results)).Msg("Ingestion complete, run build to regenerate the locale tables")
	return nil
}

// rootDir is the directory git runs in for a file-or-dir argument.
func rootDir(root string) string {
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		return filepath.Dir(root)
	}
	return root
}

// translatorFiles expands roots into translator files. With since, only files
// changed between that commit and HEAD are kept.
func translatorFiles(ctx context.Context, roots []string, since string) ([]string, error) {
	found, err := filewalker.NewTableWalker().WalkAll(roots)
	if err != nil {
		return nil, fmt.Errorf("find translator files: %w", err)
	}
	files := filewalker.Paths(found)
	if since == "" {
		return files, nil
	}

	changed := make(map[string]bool)
	for _, root := range roots {
		repo, err := gitinfo.Open(ctx, rootDir(root))
		if err != nil {
			return nil, fmt.Errorf("open repository: %w", err)
		}
		paths, err := repo.ChangedFiles(ctx, since, "HEAD", root)
		if err != nil {
			return nil, fmt.Errorf("list changes since %s: %w", since, err)
		}
		for _, p := range paths {
			changed[p] = true
		}
	}

	var out []string
	for _, f := range files {
		if changed[gitinfo.Canonical(f)] {
			out = append(out, f)
		}
	}
	log.Info().Str("since", since).Int("changed", len(out)).Int("found", len(files)).Msg("Filtered translator files")
	return out, nil
}
