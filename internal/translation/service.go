// Package translation drafts machine translations for keys no translator has
// covered yet. Drafts are merged like any translator file under a machine
// author, so human translations always win.
package translation

import (
	"context"
	"fmt"

	"localize-from-source/internal/graph"
	"localize-from-source/internal/interpolation"
	"localize-from-source/internal/memory"
	"localize-from-source/internal/store"
	"localize-from-source/internal/textutil"
	"localize-from-source/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Glossary provides term renderings for a locale.
type Glossary interface {
	All(ctx context.Context, locale string) (map[string]string, error)
}

// Memory provides remembered translations.
type Memory interface {
	Exact(ctx context.Context, locale, source string) (string, bool)
	Search(ctx context.Context, locale, text string, k int) ([]memory.Match, error)
}

// Job is one key to draft.
type Job struct {
	Key    string
	Source string
}

// Options configure a Service.
type Options struct {
	SourceLocale string
	Workers      int
	BatchSize    int
	// Examples is how many similar translations to show per text.
	Examples int
}

// Service drafts translations through a Completer.
type Service struct {
	client   Completer
	prompts  *PromptBuilder
	glossary Glossary
	memory   Memory
	opts     Options
}

// NewService creates a drafting service.
func NewService(client Completer, opts Options) *Service {
	if opts.BatchSize < 1 {
		opts.BatchSize = 20
	}
	return &Service{client: client, prompts: NewPromptBuilder(opts.SourceLocale), opts: opts}
}

// WithGlossary adds glossary terms to prompts.
func (s *Service) WithGlossary(g Glossary) *Service {
	s.glossary = g
	return s
}

// WithMemory reuses exact matches and adds similar translations to prompts.
func (s *Service) WithMemory(m Memory) *Service {
	s.memory = m
	return s
}

// Pending lists the keys of source that need a draft: keys without a
// translation, and machine drafts whose source string has since changed.
// Human translations are never redrafted.
func Pending(source *store.Table, entries store.Entries) []Job {
	var jobs []Job
	for _, key := range source.Order {
		text := source.Values[key]
		e, ok := entries[key]
		if ok && e.Translation != "" && (e.Source == text || !e.IsMachine()) {
			continue
		}
		jobs = append(jobs, Job{Key: key, Source: text})
	}
	return jobs
}

// Draft translates jobs into locale and returns key → translation. Failed
// batches and drafts that lose a placeholder are logged and left out.
func (s *Service) Draft(ctx context.Context, locale string, jobs []Job) (map[string]string, error) {
	drafts := make(map[string]string, len(jobs))

	var todo []Job
	for _, j := range jobs {
		if s.memory != nil {
			if tr, ok := s.memory.Exact(ctx, locale, j.Source); ok {
				drafts[j.Key] = tr
				continue
			}
		}
		todo = append(todo, j)
	}
	reused := len(drafts)

	terms := map[string]string{}
	if s.glossary != nil {
		all, err := s.glossary.All(ctx, locale)
		if err != nil {
			log.Warn().Err(err).Str("locale", locale).Msg("Failed to load glossary")
		} else {
			terms = all
		}
	}

	system := s.prompts.SystemPrompt(locale)
	batches := worker.Batch(todo, s.opts.BatchSize)

	pool := worker.NewPool[[]Job, map[string]string](s.opts.Workers,
		func(ctx context.Context, batch []Job) (map[string]string, error) {
			return s.draftBatch(ctx, locale, system, batch, terms)
		},
	)
	for i, task := range pool.Execute(ctx, batches) {
		if task.Err != nil {
			log.Error().Err(task.Err).Int("batch", i+1).Int("size", len(task.Input)).Msg("Batch translation failed")
			continue
		}
		for k, v := range task.Result {
			drafts[k] = v
		}
	}

	log.Info().
		Str("locale", locale).
		Int("jobs", len(jobs)).
		Int("reused", reused).
		Int("drafted", len(drafts)-reused).
		Msg("Machine drafts complete")

	return drafts, ctx.Err()
}

func (s *Service) draftBatch(ctx context.Context, locale, system string, batch []Job, terms map[string]string) (map[string]string, error) {
	protected := make([]string, len(batch))
	mappings := make([][]interpolation.Mapping, len(batch))
	relevant := make(map[string]string)
	var similar []memory.Match

	for i, j := range batch {
		protected[i], mappings[i] = interpolation.Protect(j.Source)
		for src, tr := range graph.Relevant(j.Source, terms) {
			relevant[src] = tr
		}
		if s.memory != nil && s.opts.Examples > 0 {
			matches, err := s.memory.Search(ctx, locale, j.Source, s.opts.Examples)
			if err != nil {
				log.Warn().Err(err).Str("text", textutil.Truncate(j.Source, 30)).Msg("Memory search failed")
			} else {
				similar = append(similar, matches...)
			}
		}
	}
	similar = lo.UniqBy(similar, func(m memory.Match) string { return m.Source })

	response, err := s.client.Translate(ctx, system, s.prompts.BuildBatchUserPrompt(protected, relevant, similar))
	if err != nil {
		return nil, fmt.Errorf("translate batch: %w", err)
	}

	out := make(map[string]string, len(batch))
	for i, part := range SplitBatch(response, len(batch)) {
		j := batch[i]
		if part == "" {
			log.Warn().Str("key", j.Key).Msg("Missing translation in batch response")
			continue
		}
		if lost := interpolation.Missing(part, mappings[i]); len(lost) > 0 {
			log.Warn().Str("key", j.Key).Strs("placeholders", lost).Msg("Draft lost placeholders, dropping it")
			continue
		}
		out[j.Key] = interpolation.Restore(part, mappings[i])
	}
	return out, nil
}
