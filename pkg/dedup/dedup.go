// Package dedup rejects already-seen articles at ingest time and collapses
// near-duplicate articles within a processing batch.
package dedup

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/briefwire/briefwire/pkg/domain"
)

// Deduplicator collapses exact and near-duplicate articles within one batch.
// The similarity cache lives for a single Run invocation only.
type Deduplicator struct {
	now func() time.Time
}

// NewDeduplicator creates a deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{now: time.Now}
}

// Result is the outcome of one dedup run: the surviving unique articles and
// the duplicate groups keyed by the kept article's id, for observability.
type Result struct {
	Unique []domain.Article
	Groups map[string][]string
}

// Run deduplicates candidates against each other and against articles already
// stored in the current day window. Stored articles always win their cluster;
// candidate-only clusters keep their best-scored member. Output order is
// stable and deterministic given input order.
func (d *Deduplicator) Run(candidates, stored []domain.Article) Result {
	res := Result{Groups: make(map[string][]string)}
	if len(candidates) == 0 {
		return res
	}

	// exact pass: later collisions dropped
	seen := make(map[uint64]string, len(candidates)+len(stored))
	for _, a := range stored {
		seen[exactKey(a)] = a.ID
	}
	var remaining []domain.Article
	for _, a := range candidates {
		key := exactKey(a)
		if keeper, ok := seen[key]; ok {
			res.Groups[keeper] = append(res.Groups[keeper], a.ID)
			continue
		}
		seen[key] = a.ID
		remaining = append(remaining, a)
	}

	// similarity pass over the survivors
	cache := make(map[string]float64)
	processed := make([]bool, len(remaining))
	var clusters [][]domain.Article

	for i, a := range remaining {
		if processed[i] {
			continue
		}
		processed[i] = true

		// candidates similar to an already-stored article are dropped outright
		if keeper, dup := d.matchStored(a, stored, cache); dup {
			res.Groups[keeper] = append(res.Groups[keeper], a.ID)
			continue
		}

		cluster := []domain.Article{a}
		for j := i + 1; j < len(remaining); j++ {
			if processed[j] {
				continue
			}
			if d.similar(a, remaining[j], cache) {
				processed[j] = true
				cluster = append(cluster, remaining[j])
			}
		}
		clusters = append(clusters, cluster)
	}

	// best-of-cluster selection
	now := d.now()
	for _, cluster := range clusters {
		best := pickBest(cluster, now)
		res.Unique = append(res.Unique, best)
		for _, member := range cluster {
			if member.ID != best.ID {
				res.Groups[best.ID] = append(res.Groups[best.ID], member.ID)
			}
		}
	}

	if dropped := len(candidates) - len(res.Unique); dropped > 0 {
		lgr.Printf("[INFO] dedup collapsed %d of %d articles into %d unique", dropped, len(candidates), len(res.Unique))
	}
	return res
}

// matchStored reports whether the candidate duplicates any stored article
func (d *Deduplicator) matchStored(a domain.Article, stored []domain.Article, cache map[string]float64) (keeperID string, dup bool) {
	for _, s := range stored {
		if d.similar(a, s, cache) {
			return s.ID, true
		}
	}
	return "", false
}

// similar computes (and caches) the weighted similarity for an id pair
func (d *Deduplicator) similar(a, b domain.Article, cache map[string]float64) bool {
	key := pairKey(a.ID, b.ID)
	sim, ok := cache[key]
	if !ok {
		sim = weightedSimilarity(a.Title, a.Content, a.URL, b.Title, b.Content, b.URL)
		cache[key] = sim
	}
	return sim >= similarityThreshold
}

// pickBest selects the cluster representative: highest score, ties broken by
// earliest publish then lexicographic id
func pickBest(cluster []domain.Article, now time.Time) domain.Article {
	best := cluster[0]
	bestScore := Score(best, now)
	for _, a := range cluster[1:] {
		score := Score(a, now)
		switch {
		case score > bestScore:
			best, bestScore = a, score
		case score == bestScore && a.PublishedAt.Before(best.PublishedAt):
			best = a
		case score == bestScore && a.PublishedAt.Equal(best.PublishedAt) && a.ID < best.ID:
			best = a
		}
	}
	return best
}

// exactKey hashes lower(title) ∥ lower(url) ∥ first 100 chars of lower(content)
func exactKey(a domain.Article) uint64 {
	content := strings.ToLower(a.Content)
	if len(content) > 100 {
		content = content[:100]
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(a.Title)))
	_, _ = h.Write([]byte(strings.ToLower(a.URL)))
	_, _ = h.Write([]byte(content))
	return h.Sum64()
}

// pairKey builds an order-independent cache key for an id pair
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%s|%s", a, b)
}

// SortByScore orders articles by descending score with the pickBest tie rules;
// used by the quota distributor for per-category ranking
func SortByScore(articles []domain.Article, now time.Time) {
	sort.SliceStable(articles, func(i, j int) bool {
		si, sj := Score(articles[i], now), Score(articles[j], now)
		if si != sj {
			return si > sj
		}
		if !articles[i].PublishedAt.Equal(articles[j].PublishedAt) {
			return articles[i].PublishedAt.Before(articles[j].PublishedAt)
		}
		return articles[i].ID < articles[j].ID
	})
}
