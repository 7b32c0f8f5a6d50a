// Package quota enforces the daily article limits and fair distribution
// across categories.
package quota

import (
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/briefwire/briefwire/pkg/config"
	"github.com/briefwire/briefwire/pkg/dedup"
	"github.com/briefwire/briefwire/pkg/domain"
)

// Distributor selects which unique articles get stored for the day, honoring
// the total daily limit and per-category caps with an even target split.
type Distributor struct {
	dailyLimit     int
	perCategoryMax int
	now            func() time.Time
}

// NewDistributor creates a distributor from quota configuration
func NewDistributor(cfg config.QuotaConfig) *Distributor {
	return &Distributor{
		dailyLimit:     cfg.DailyLimit,
		perCategoryMax: cfg.PerCategoryMax,
		now:            time.Now,
	}
}

// Selection is the outcome of one distribution pass
type Selection struct {
	Selected          []domain.Article
	Skipped           int
	CategoriesAtLimit []domain.Category
}

// Distribute ranks unique articles per category and takes the top entries up
// to each category's effective cap, then truncates the union round-robin if it
// still exceeds the daily limit. alreadyToday carries per-category counts of
// articles stored since local midnight.
func (d *Distributor) Distribute(unique []domain.Article, alreadyToday map[domain.Category]int) Selection {
	now := d.now()
	categories := domain.Categories()
	split := len(categories)

	byCategory := make(map[domain.Category][]domain.Article)
	for _, a := range unique {
		byCategory[a.Category] = append(byCategory[a.Category], a)
	}

	sel := Selection{}
	perCategory := make(map[domain.Category][]domain.Article)
	for _, cat := range categories {
		articles := byCategory[cat]
		if len(articles) == 0 {
			continue
		}

		remaining := d.dailyLimit/split - alreadyToday[cat]
		if remaining < 0 {
			remaining = 0
		}
		quotaCap := d.perCategoryMax
		if remaining < quotaCap {
			quotaCap = remaining
		}

		dedup.SortByScore(articles, now)
		if len(articles) >= quotaCap {
			sel.CategoriesAtLimit = append(sel.CategoriesAtLimit, cat)
		}
		if len(articles) > quotaCap {
			sel.Skipped += len(articles) - quotaCap
			articles = articles[:quotaCap]
		}
		perCategory[cat] = articles
	}

	// union may still exceed the daily total; drop lowest-scored items last
	// in category round-robin order
	total := 0
	for _, articles := range perCategory {
		total += len(articles)
	}
	for total > d.dailyLimit {
		for _, cat := range categories {
			if total <= d.dailyLimit {
				break
			}
			articles := perCategory[cat]
			if len(articles) == 0 {
				continue
			}
			perCategory[cat] = articles[:len(articles)-1]
			sel.Skipped++
			total--
		}
	}

	for _, cat := range categories {
		sel.Selected = append(sel.Selected, perCategory[cat]...)
	}

	if sel.Skipped > 0 {
		lgr.Printf("[INFO] quota distribution kept %d articles, skipped %d, at limit: %v",
			len(sel.Selected), sel.Skipped, sel.CategoriesAtLimit)
	}
	return sel
}

// DailyLimits builds a quota snapshot from per-category counts stored today
func (d *Distributor) DailyLimits(counts map[domain.Category]int) domain.DailyLimits {
	split := len(domain.Categories())
	snap := domain.DailyLimits{
		Limit:     d.dailyLimit,
		PerCat:    make(map[domain.Category]int),
		Remaining: make(map[domain.Category]int),
	}
	for _, cat := range domain.Categories() {
		snap.PerCat[cat] = counts[cat]
		snap.Total += counts[cat]
		remaining := d.dailyLimit/split - counts[cat]
		if remaining < 0 {
			remaining = 0
		}
		if remaining > d.perCategoryMax {
			remaining = d.perCategoryMax
		}
		snap.Remaining[cat] = remaining
	}
	return snap
}
