package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/briefwire/briefwire/pkg/domain"
)

// RunBatch drains the holding queue and runs the dedup, distribution and
// rewrite pipeline. If a batch is already in flight the call is skipped, not
// queued. Errors accumulate into the result instead of aborting the batch.
func (s *Scheduler) RunBatch(ctx context.Context) *domain.ProcessingResult {
	if !s.processing.CompareAndSwap(false, true) {
		lgr.Printf("[INFO] batch already in flight, skipping")
		return nil
	}
	defer s.processing.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.BatchDeadline)
	defer cancel()

	start := s.now()
	result := &domain.ProcessingResult{Success: true}
	addErr := func(format string, args ...interface{}) {
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
		result.Success = false
	}

	items := s.holding.Drain()
	lgr.Printf("[INFO] batch started with %d queued articles", len(items))

	dayStart := s.dayStart()
	stored, err := s.articles.ArticlesInWindow(ctx, dayStart, s.now())
	if err != nil {
		addErr("load stored articles: %v", err)
	}

	dedupRes := s.deduper.Run(items, stored)
	lgr.Printf("[DEBUG] dedup kept %d of %d articles in %d groups",
		len(dedupRes.Unique), len(items), len(dedupRes.Groups))

	counts, err := s.articles.CountByCategorySince(ctx, dayStart)
	if err != nil {
		addErr("count stored articles: %v", err)
		counts = map[domain.Category]int{}
	}

	selection := s.distrib.Distribute(dedupRes.Unique, counts)
	// processed counts what survives dedup and quota, not the raw drain:
	// three copies of one story are one article processed
	result.ArticlesProcessed = len(selection.Selected)
	result.CategoriesAtLimit = selection.CategoriesAtLimit
	if selection.Skipped > 0 {
		lgr.Printf("[INFO] quota skipped %d articles, categories at limit: %v",
			selection.Skipped, selection.CategoriesAtLimit)
	}

	// articles persist before any brief is generated
	if len(selection.Selected) > 0 {
		if _, err := s.articles.UpsertArticles(ctx, selection.Selected); err != nil {
			addErr("upsert articles: %v", err)
		}
	}

	briefs := s.rewriteAll(ctx, selection.Selected, result)
	result.BriefsGenerated = len(briefs)

	if len(briefs) > 0 {
		if _, err := s.briefs.UpsertBriefs(ctx, briefs); err != nil {
			addErr("upsert briefs: %v", err)
		} else {
			generated := make([]string, 0, len(briefs))
			for _, b := range briefs {
				generated = append(generated, b.ArticleIDs...)
			}
			if err := s.articles.MarkBriefGenerated(ctx, generated); err != nil {
				addErr("mark brief generated: %v", err)
			}
		}
	}

	result.ProcessingMS = s.now().Sub(start).Milliseconds()
	s.lastResult.Store(result)
	s.appendLog(result)

	lgr.Printf("[INFO] batch finished: %d articles, %d briefs, %d errors in %dms",
		result.ArticlesProcessed, result.BriefsGenerated, len(result.Errors), result.ProcessingMS)
	return result
}

// rewriteAll generates briefs serially to bound LLM spend and respect
// provider rate limits. Rewrite failures fall back to a deterministic brief;
// cancellation abandons the remaining articles without partial briefs.
func (s *Scheduler) rewriteAll(ctx context.Context, articles []domain.Article, result *domain.ProcessingResult) []*domain.Brief {
	briefs := make([]*domain.Brief, 0, len(articles))
	for i := range articles {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("batch cancelled with %d articles remaining", len(articles)-i))
			result.Success = false
			break
		}

		article := articles[i]
		if s.enricher != nil {
			s.enricher.Enrich(ctx, &article)
		}

		brief, err := s.rewriter.Rewrite(ctx, article)
		if err != nil {
			if ctx.Err() != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("batch cancelled with %d articles remaining", len(articles)-i))
				result.Success = false
				break
			}
			lgr.Printf("[WARN] rewrite failed for %s, using fallback: %v", article.ID, err)
			result.Errors = append(result.Errors, fmt.Sprintf("rewrite %s: %v", article.ID, err))
			result.Success = false
			brief = s.rewriter.Fallback(article)
		}

		briefs = append(briefs, brief)
		result.Tokens += brief.Meta.Tokens
		result.Cost += brief.Meta.Cost
	}
	return briefs
}

// appendLog emits the batch record. Logging is best-effort and never affects
// the batch result.
func (s *Scheduler) appendLog(result *domain.ProcessingResult) {
	record := &domain.ProcessingLog{
		Success:           result.Success,
		ArticlesProcessed: result.ArticlesProcessed,
		BriefsGenerated:   result.BriefsGenerated,
		Errors:            result.Errors,
		ProcessingMS:      result.ProcessingMS,
		Tokens:            result.Tokens,
		Cost:              result.Cost,
		Model:             s.cfg.Model,
		PromptVersion:     s.cfg.PromptVersion,
		Timestamp:         s.now(),
	}

	// fresh context: the batch deadline may already be exhausted
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.logs.Append(ctx, record); err != nil {
		lgr.Printf("[WARN] failed to append processing log: %v", err)
	}
}
