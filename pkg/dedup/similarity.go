package dedup

import (
	"net/url"
	"strings"
)

// similarityThreshold above which two articles are considered duplicates
const similarityThreshold = 0.82

// wordSet splits text into a lowercased set of whitespace-separated words
func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = true
	}
	return set
}

// jaccard computes |A∩B| / |A∪B| over two word sets
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// urlSimilarity compares two URLs by host and path segments: 0 when hosts
// differ, 1 when both paths are empty, 0.5 when exactly one is empty,
// otherwise the shared segment fraction of the longer path.
func urlSimilarity(rawA, rawB string) float64 {
	ua, errA := url.Parse(rawA)
	ub, errB := url.Parse(rawB)
	if errA != nil || errB != nil {
		return 0
	}
	if !strings.EqualFold(ua.Host, ub.Host) {
		return 0
	}

	segsA := pathSegments(ua.Path)
	segsB := pathSegments(ub.Path)
	switch {
	case len(segsA) == 0 && len(segsB) == 0:
		return 1
	case len(segsA) == 0 || len(segsB) == 0:
		return 0.5
	}

	common := 0
	for _, s := range segsA {
		for _, t := range segsB {
			if s == t {
				common++
				break
			}
		}
	}
	longest := len(segsA)
	if len(segsB) > longest {
		longest = len(segsB)
	}
	return float64(common) / float64(longest)
}

func sameHost(rawA, rawB string) bool {
	ua, errA := url.Parse(rawA)
	ub, errB := url.Parse(rawB)
	return errA == nil && errB == nil && strings.EqualFold(ua.Host, ub.Host)
}

func pathSegments(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// weightedSimilarity combines title, content and URL similarity with weights
// 0.4/0.4/0.2, renormalised over the applicable factors. A factor is skipped
// when a field is missing on either side; the URL factor is also skipped when
// hosts differ, so syndicated copies on different outlets can still merge on
// title and content alone.
func weightedSimilarity(titleA, contentA, urlA, titleB, contentB, urlB string) float64 {
	var sum, weights float64

	if titleA != "" && titleB != "" {
		sum += jaccard(wordSet(titleA), wordSet(titleB)) * 0.4
		weights += 0.4
	}
	if contentA != "" && contentB != "" {
		sum += jaccard(wordSet(contentA), wordSet(contentB)) * 0.4
		weights += 0.4
	}
	if urlA != "" && urlB != "" && sameHost(urlA, urlB) {
		sum += urlSimilarity(urlA, urlB) * 0.2
		weights += 0.2
	}

	if weights == 0 {
		return 0
	}
	return sum / weights
}
