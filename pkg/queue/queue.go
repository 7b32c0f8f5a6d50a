// Package queue holds novel articles between processing batches and signals
// the scheduler when breaking news arrives.
package queue

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/briefwire/briefwire/pkg/domain"
)

// breakingKeywords trigger batch preemption when found in title or content
var breakingKeywords = []string{
	"breaking", "urgent", "alert", "crisis", "emergency", "attack", "disaster",
	"election", "resignation", "impeachment", "war", "conflict", "coup",
	"market crash", "economic crisis", "natural disaster",
}

// Holding is a FIFO of novel articles awaiting the next batch. Single writer
// (the sweep) and single reader (the batch) contend only on the internal lock.
type Holding struct {
	mu        sync.Mutex
	items     []domain.HoldingItem
	maxItems  int
	scoreFn   func(domain.Article) float64
	preempt   chan struct{}
	signalled bool
	now       func() time.Time
}

// NewHolding creates a holding queue. maxItems bounds memory: enqueues past
// the bound evict the lowest-scored items using scoreFn. The preemption
// channel fires at most once per batch cycle.
func NewHolding(maxItems int, scoreFn func(domain.Article) float64) *Holding {
	return &Holding{
		maxItems: maxItems,
		scoreFn:  scoreFn,
		preempt:  make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Preempt exposes the breaking-news signal channel
func (h *Holding) Preempt() <-chan struct{} {
	return h.preempt
}

// Enqueue appends novel articles, scanning them for breaking-news keywords.
// At most one preemption signal is emitted between drains.
func (h *Holding) Enqueue(articles []domain.Article) {
	if len(articles) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	enqueuedAt := h.now()
	breaking := false
	for _, a := range articles {
		h.items = append(h.items, domain.HoldingItem{Article: a, EnqueuedAt: enqueuedAt})
		if !breaking && isBreaking(a) {
			breaking = true
			lgr.Printf("[INFO] breaking news detected: %s", a.Title)
		}
	}

	if len(h.items) > h.maxItems {
		h.evictLowest()
	}

	if breaking && !h.signalled {
		h.signalled = true
		select {
		case h.preempt <- struct{}{}:
		default:
		}
	}
}

// Drain removes and returns all held articles in FIFO order and re-arms the
// preemption signal for the next cycle
func (h *Holding) Drain() []domain.Article {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]domain.Article, len(h.items))
	for i, it := range h.items {
		out[i] = it.Article
	}
	h.items = nil
	h.resetSignal()
	return out
}

// Size returns the number of held articles
func (h *Holding) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// ByCategory returns held article counts per category
func (h *Holding) ByCategory() map[domain.Category]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[domain.Category]int)
	for _, it := range h.items {
		out[it.Article.Category]++
	}
	return out
}

// Clear discards all held articles
func (h *Holding) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = nil
	h.resetSignal()
}

// resetSignal re-arms preemption for the next cycle and discards a token the
// scheduler never consumed, so an interval batch that already drained the
// queue is not followed by a spurious empty one. Caller holds the lock.
func (h *Holding) resetSignal() {
	h.signalled = false
	select {
	case <-h.preempt:
	default:
	}
}

// evictLowest drops the lowest-scored items to bring the queue back within
// bounds, preserving FIFO order of survivors. Caller holds the lock.
func (h *Holding) evictLowest() {
	over := len(h.items) - h.maxItems

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(h.items))
	for i, it := range h.items {
		ranked[i] = scored{idx: i, score: h.scoreFn(it.Article)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score < ranked[j].score })

	drop := make(map[int]bool, over)
	for _, s := range ranked[:over] {
		drop[s.idx] = true
	}

	kept := h.items[:0]
	for i, it := range h.items {
		if !drop[i] {
			kept = append(kept, it)
		}
	}
	h.items = kept
	lgr.Printf("[WARN] holding queue over capacity, dropped %d lowest-scored items", over)
}

// isBreaking reports whether the article matches any breaking-news keyword
func isBreaking(a domain.Article) bool {
	title := strings.ToLower(a.Title)
	content := strings.ToLower(a.Content)
	for _, kw := range breakingKeywords {
		if strings.Contains(title, kw) || strings.Contains(content, kw) {
			return true
		}
	}
	return false
}
