package domain

import (
	"sort"
	"strings"
)

// tagDictionary maps lowercase keywords found in title+description to tags.
// Fixed at build time; matching is case-insensitive substring.
var tagDictionary = map[string]string{
	"election":        "elections",
	"vote":            "elections",
	"ballot":          "elections",
	"congress":        "congress",
	"senate":          "congress",
	"white house":     "white-house",
	"president":       "executive",
	"supreme court":   "courts",
	"court":           "courts",
	"lawsuit":         "courts",
	"federal reserve": "fed",
	"interest rate":   "rates",
	"inflation":       "inflation",
	"tariff":          "trade",
	"trade":           "trade",
	"gdp":             "economy",
	"unemployment":    "labor",
	"jobs report":     "labor",
	"stock":           "markets",
	"market":          "markets",
	"treasury":        "treasury",
	"military":        "military",
	"war":             "conflict",
	"ceasefire":       "conflict",
	"sanctions":       "sanctions",
	"united nations":  "un",
	"nato":            "nato",
	"climate":         "climate",
	"energy":          "energy",
	"oil":             "energy",
	"immigration":     "immigration",
	"border":          "immigration",
	"health":          "health",
	"pandemic":        "health",
	"technology":      "technology",
	"cyber":           "cybersecurity",
}

// TagsFor derives the tag set for an article from its title and description
// by keyword match against the fixed dictionary. Result is sorted for
// deterministic ids and stable storage.
func TagsFor(title, description string) []string {
	text := strings.ToLower(title + " " + description)
	seen := make(map[string]bool)
	var tags []string
	for keyword, tag := range tagDictionary {
		if strings.Contains(text, keyword) && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// TopTags returns the most frequent tags across contributing articles,
// limited to max entries. Frequency ties break lexicographically.
func TopTags(articles []Article, max int) []string {
	counts := make(map[string]int)
	for _, a := range articles {
		for _, t := range a.Tags {
			counts[t]++
		}
	}
	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > max {
		tags = tags[:max]
	}
	return tags
}
