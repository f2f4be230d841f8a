package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"localize-from-source/internal/compiler"
	"localize-from-source/internal/filewalker"
	"localize-from-source/internal/gitinfo"
	"localize-from-source/internal/il"
	"localize-from-source/internal/invariant"
	"localize-from-source/internal/report"
	"localize-from-source/internal/scanner"
	"localize-from-source/internal/store"
	"localize-from-source/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type buildOptions struct {
	legacy       string
	strict       bool
	warnUnmarked bool
}

func buildCmd(open func() (*env, error)) *cobra.Command {
	var opts buildOptions
	cmd := &cobra.Command{
		Use:   "build [listing-or-dir...]",
		Short: "Scan ildasm listings and regenerate i18n/default.json and the locale tables",
		Long: `Reads the ildasm listings of the mod (the arguments, or "listings" from
localize.toml), reports unmarked strings and marker misuse in MSBuild format,
and regenerates the source table, the annotated locale tables and the edit files.
Nothing is written when an error was reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(open, func(ctx context.Context, e *env) error {
				if cmd.Flags().Changed("strict") {
					e.project.Strict = opts.strict
				}
				if cmd.Flags().Changed("warn-unmarked") {
					e.project.WarnUnmarked = opts.warnUnmarked
				}
				if opts.legacy != "" {
					legacy, err := filepath.Abs(opts.legacy)
					if err != nil {
						return fmt.Errorf("resolve legacy table: %w", err)
					}
					e.project.Legacy = legacy
				}
				return runBuild(ctx, e, args)
			})
		},
	}

	cmd.Flags().StringVar(&opts.legacy, "legacy", "", "Import keys from a legacy key→text table")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Report unmarked strings as errors")
	cmd.Flags().BoolVar(&opts.warnUnmarked, "warn-unmarked", false, "Report unmarked strings in non-strict code as warnings")

	return cmd
}

func runBuild(ctx context.Context, e *env, roots []string) error {
	if len(roots) == 0 {
		roots = e.project.ListingPaths()
	}
	if len(roots) == 0 {
		return fmt.Errorf("no listings given and none configured in %s", e.cfg.ProjectFile)
	}

	assemblies, err := readListings(ctx, e.cfg.WorkerCount, roots)
	if err != nil {
		return err
	}

	classifier, err := invariant.New(e.project.Invariant.Patterns, e.project.Invariant.Methods)
	if err != nil {
		return fmt.Errorf("invariant settings: %w", err)
	}

	collector := report.NewCollector(os.Stderr)
	scanner.New(scanner.DefaultRegistry(), classifier, collector, scanner.Options{
		Strict:       e.project.Strict,
		WarnUnmarked: e.project.WarnUnmarked,
	}).Scan(assemblies...)

	var legacy map[string]string
	if path := e.project.Resolve(e.project.Legacy); path != "" {
		t, err := store.ReadTable(path)
		if err != nil {
			return fmt.Errorf("read legacy table: %w", err)
		}
		legacy = t.Values
	}

	entries, err := e.entries(ctx)
	if err != nil {
		return err
	}

	md := gitinfo.Detect(ctx, e.project.Root)
	comp := compiler.New(entries, e.edits(), collector, compiler.Options{
		I18nDir: e.project.I18nPath(),
		Commit:  md.Commit,
		Link:    md.Link,
		Legacy:  legacy,
	})

	res, err := comp.Build(ctx, collector)
	if errors.Is(err, compiler.ErrRefused) {
		log.Error().
			Int("errors", lo.CountBy(collector.Diagnostics(), func(d report.Diagnostic) bool {
				return d.Severity == report.Error
			})).
			Msg("Build refused, nothing was written")
		return err
	}
	if err != nil {
		return fmt.Errorf("build tables: %w", err)
	}

	for _, path := range res.Written {
		log.Debug().Str("path", path).Msg("Wrote file")
	}
	log.Info().
		Int("assemblies", len(assemblies)).
		Int("strings", len(res.Rows)).
		Int("unmarked", collector.Unmarked()).
		Int("written", len(res.Written)).
		Int("removed", len(res.Removed)).
		Msg("Build complete")
	return nil
}

// readListings parses every listing under roots concurrently, keeping the
// order in which they were found.
func readListings(ctx context.Context, workers int, roots []string) ([]*il.Assembly, error) {
	files, err := filewalker.NewListingWalker().WalkAll(roots)
	if err != nil {
		return nil, fmt.Errorf("find listings: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no listings found")
	}

	parsePool := worker.NewPool[filewalker.FileEntry, *il.Assembly](workers,
		func(ctx context.Context, entry filewalker.FileEntry) (*il.Assembly, error) {
			return il.ReadListingFile(entry.Path)
		},
	)

	assemblies := make([]*il.Assembly, 0, len(files))
	for _, task := range parsePool.Execute(ctx, files) {
		if task.Err != nil {
			return nil, fmt.Errorf("read listing %s: %w", task.Input.Path, task.Err)
		}
		assemblies = append(assemblies, task.Result)
	}
	log.Info().Int("listings", len(assemblies)).Msg("Read listings")
	return assemblies, nil
}
