package dedup

import (
	"context"

	"github.com/go-pkgz/lgr"

	"github.com/briefwire/briefwire/pkg/domain"
)

// noveltyRatioThreshold rejects a candidate whose title word set is mostly
// covered by a stored article. The ratio |W_stored| / |W_candidate| is
// asymmetric on purpose: admission is one-sided.
const noveltyRatioThreshold = 0.8

// titleWindow is the stored-title substring lookup window
const titleWindow = 100

// maxTitleCandidates bounds the fuzzy lookup fan-out
const maxTitleCandidates = 5

// ArticleLookup is the store capability the novelty filter needs
type ArticleLookup interface {
	ArticleURLExists(ctx context.Context, url string) (bool, error)
	ArticlesByTitleWindow(ctx context.Context, window string, limit int) ([]string, error)
}

// NoveltyFilter rejects candidates already present in the store, by exact URL
// first and fuzzy title second. Lookup failures admit the candidate: the
// pipeline prefers occasional duplicates over losing items.
type NoveltyFilter struct {
	store ArticleLookup
}

// NewNoveltyFilter creates a novelty filter over the given store
func NewNoveltyFilter(store ArticleLookup) *NoveltyFilter {
	return &NoveltyFilter{store: store}
}

// IsNew reports whether the candidate article is unseen
func (f *NoveltyFilter) IsNew(ctx context.Context, a domain.Article) bool {
	exists, err := f.store.ArticleURLExists(ctx, a.URL)
	if err != nil {
		lgr.Printf("[WARN] novelty url lookup failed for %s, admitting: %v", a.URL, err)
		return true
	}
	if exists {
		return false
	}

	window := a.Title
	if len(window) > titleWindow {
		window = window[:titleWindow]
	}
	titles, err := f.store.ArticlesByTitleWindow(ctx, window, maxTitleCandidates)
	if err != nil {
		lgr.Printf("[WARN] novelty title lookup failed for %q, admitting: %v", a.Title, err)
		return true
	}

	newWords := wordSet(a.Title)
	if len(newWords) == 0 {
		return true
	}
	for _, stored := range titles {
		ratio := float64(len(wordSet(stored))) / float64(len(newWords))
		if ratio >= noveltyRatioThreshold {
			return false
		}
	}
	return true
}
