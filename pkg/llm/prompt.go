package llm

import (
	"fmt"
	"strings"

	"github.com/briefwire/briefwire/pkg/domain"
)

// systemPrompt establishes the fact-checking rubric. The output markup is a
// hard contract: the sectional parser depends on the five delimiters below.
const systemPrompt = `You are a fact-checking journalist producing neutral news briefs.

For the article provided:
- Parse the factual claims and verify them against the cited material.
- When legislation or legal action is referenced, cite the law by name and year.
- Situate the story in a five-to-ten-year timeline of relevant events.
- Cite at least one source, including a primary document (government publication, court record, official statistics, or equivalent) where available.
- Note any material economic interests held by the actors involved.
- Write a neutral brief within the requested word range.
- Avoid loaded labels (e.g. "regime", "terrorist") unless the designation is legally established.

Respond with EXACTLY these five sections, in this order:

==HEADLINE==
<a neutral headline>

==BRIEF==
<the brief body within the requested word range>

==CONTEXT==
<one paragraph of historical context, or None>

==SOURCES==
<one URL per line>

==SIDE-CAR==
<a JSON object with any machine-readable notes, or {}>`

// buildUserPayload renders the article for the draft call
func buildUserPayload(a domain.Article, minWords, maxWords int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title: %s\n", a.Title))
	sb.WriteString(fmt.Sprintf("Source: %s\n", a.SourceID))
	sb.WriteString(fmt.Sprintf("URL: %s\n", a.URL))
	if a.Description != "" {
		sb.WriteString(fmt.Sprintf("Description: %s\n", a.Description))
	}
	sb.WriteString(fmt.Sprintf("Content:\n%s\n\n", a.Content))
	sb.WriteString(fmt.Sprintf("Write the brief body between %d and %d words.", minWords, maxWords))
	return sb.String()
}

// buildRevisionPayload asks for a neutral rewrite after a bias scan hit
func buildRevisionPayload(draft string, terms []string) string {
	return fmt.Sprintf(`The following brief contains loaded language: %s.
Rewrite it in neutral wording. Preserve all citations and keep the exact section markup (==HEADLINE==, ==BRIEF==, ==CONTEXT==, ==SOURCES==, ==SIDE-CAR==).

%s`, strings.Join(terms, ", "), draft)
}

// buildExpansionPayload asks for a longer body when the draft came in short
func buildExpansionPayload(draft string, currentWords, minWords int) string {
	return fmt.Sprintf(`The brief body below is %d words; it must be at least %d words.
Expand the ==BRIEF== section with additional verified detail and keep the exact section markup.

%s`, currentWords, minWords, draft)
}
