package llm

import (
	"regexp"
	"strings"
)

// biasLexicon holds loaded terms that trigger a neutral-rewrite revision
var biasLexicon = []string{
	"brutal", "shocking", "stunning", "devastating", "savage", "terrorist",
	"regime", "strongman", "dictator", "rogue", "aggressive", "unprovoked",
	"innocent", "victims", "heroes", "extremist", "radical", "militant",
	"thugs", "cronies",
}

var biasPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(biasLexicon))
	for i, term := range biasLexicon {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
	}
	return out
}()

var wordPattern = regexp.MustCompile(`\b\w+\b`)

// findBiasedTerms returns the lexicon terms present in the text, with the
// number of occurrences across all of them
func findBiasedTerms(text string) (terms []string, occurrences int) {
	for i, p := range biasPatterns {
		if hits := p.FindAllStringIndex(text, -1); len(hits) > 0 {
			terms = append(terms, biasLexicon[i])
			occurrences += len(hits)
		}
	}
	return terms, occurrences
}

// wordCount tokenizes the body the same way the length gate does
func wordCount(text string) int {
	return len(wordPattern.FindAllString(text, -1))
}

// subjectivity is |biased term occurrences| / |body words|, clipped to 1
func subjectivity(body string) float64 {
	words := wordCount(body)
	if words == 0 {
		return 0
	}
	_, occurrences := findBiasedTerms(body)
	s := float64(occurrences) / float64(words)
	if s > 1 {
		s = 1
	}
	return s
}

// truncateWords cuts text at max words and appends an ellipsis
func truncateWords(text string, max int) string {
	locs := wordPattern.FindAllStringIndex(text, -1)
	if len(locs) <= max {
		return text
	}
	return strings.TrimSpace(text[:locs[max-1][1]]) + "..."
}
