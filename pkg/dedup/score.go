package dedup

import (
	"time"

	"github.com/briefwire/briefwire/pkg/domain"
)

// officialSources get a ranking bonus when choosing a cluster representative
var officialSources = map[string]bool{
	"white-house":     true,
	"state-dept":      true,
	"defense-dept":    true,
	"federal-reserve": true,
	"un-news":         true,
}

// Score ranks an article for cluster selection and quota distribution:
// content depth (capped), official-source bonus, and recency decay over the
// first five hours since publish.
func Score(a domain.Article, now time.Time) float64 {
	depth := float64(len(a.Content)) / 1000
	if depth > 2.0 {
		depth = 2.0
	}

	official := 0.0
	if officialSources[a.SourceID] {
		official = 3.0
	}

	recency := 5 - now.Sub(a.PublishedAt).Hours()
	if recency < 0 {
		recency = 0
	}

	return depth + official + recency
}

// IsOfficial reports whether the source id is in the fixed official set
func IsOfficial(sourceID string) bool {
	return officialSources[sourceID]
}
