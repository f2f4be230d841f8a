package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"localize-from-source/internal/compiler"
	"localize-from-source/internal/filewalker"
	"localize-from-source/internal/l10n"
	"localize-from-source/internal/report"

	"github.com/spf13/cobra"
)

var errOpenItems = errors.New("translations are incomplete")

func checkCmd(open func() (*env, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "check [locale...]",
		Short: "Count the open translation items in the generated locale tables",
		Long: `Counts the TRANSLATION-TODO markers in i18n/<locale>.json for the given
locales, or every generated locale. Exits 1 when any remain.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(open, func(ctx context.Context, e *env) error {
				return runCheck(cmd.OutOrStdout(), e.project.I18nPath(), args)
			})
		},
	}
}

// openItems counts the lines of a generated locale table carrying the sentinel.
func openItems(data []byte) int {
	n := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.Contains(line, []byte(compiler.Sentinel)) {
			n++
		}
	}
	return n
}

func runCheck(out io.Writer, i18nDir string, locales []string) error {
	var paths []string
	if len(locales) > 0 {
		for _, l := range locales {
			paths = append(paths, filepath.Join(i18nDir, l+".json"))
		}
	} else {
		found, err := filewalker.NewTableWalker().Walk(i18nDir)
		if err != nil {
			return fmt.Errorf("find locale tables: %w", err)
		}
		for _, p := range filewalker.Paths(found) {
			if filepath.Base(p) != compiler.SourceTableName {
				paths = append(paths, p)
			}
		}
	}

	total := 0
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read locale table: %w", err)
		}
		n := openItems(data)
		total += n
		locale := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		fmt.Fprintf(out, "%s: %d open\n", locale, n)
	}

	if total > 0 {
		return fmt.Errorf("%w: %d open item(s)", errOpenItems, total)
	}
	return nil
}

type lookupOptions struct {
	locale string
	kind   string
	names  []string
}

func lookupCmd(open func() (*env, error)) *cobra.Command {
	var opts lookupOptions
	cmd := &cobra.Command{
		Use:   "lookup <text>",
		Short: "Translate one source string through the generated tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(open, func(ctx context.Context, e *env) error {
				tr := l10n.New(e.project.SourceLocale, func() string { return opts.locale },
					l10n.DirLoader(e.project.I18nPath()), report.NewCollector(os.Stderr))
				got, err := lookup(tr, args[0], opts)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), got)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&opts.locale, "locale", "l", "", "Target locale (required)")
	cmd.Flags().StringVar(&opts.kind, "kind", "text", "String kind: text, format, event, quest or mail")
	cmd.Flags().StringSliceVar(&opts.names, "names", nil, "Argument names of a format string")
	_ = cmd.MarkFlagRequired("locale")

	return cmd
}

func lookup(tr *l10n.Translator, text string, opts lookupOptions) (string, error) {
	switch opts.kind {
	case "text":
		return tr.Translate(text), nil
	case "format":
		return tr.TranslateFormat(text, opts.names...), nil
	case "event":
		return tr.TranslateEvent(text), nil
	case "quest":
		return tr.TranslateQuest(text), nil
	case "mail":
		return tr.TranslateMail(text), nil
	default:
		return "", fmt.Errorf("unknown kind %q", opts.kind)
	}
}
