package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// BriefStatus is the editorial lifecycle state of a brief. The pipeline
// persists briefs with a configured initial status; transitions after that
// are made by external collaborators only.
type BriefStatus string

// brief statuses
const (
	BriefPending     BriefStatus = "pending"
	BriefApproved    BriefStatus = "approved"
	BriefRejected    BriefStatus = "rejected"
	BriefPublished   BriefStatus = "published"
	BriefUnpublished BriefStatus = "unpublished"
	BriefArchived    BriefStatus = "archived"
)

// BriefMeta carries LLM accounting for a generated brief
type BriefMeta struct {
	Model         string
	PromptVersion string
	Tokens        int
	Cost          float64
	ProcessingMS  int64
	Subjectivity  float64 // |biased terms| / |body words|, clipped to 1
	Revisions     int
}

// Brief is a neutral rewrite of one or more source articles
type Brief struct {
	ID          string
	Headline    string
	Body        string
	SourceURLs  []string
	ArticleIDs  []string
	Category    Category
	PublishedAt time.Time
	Tags        []string
	Status      BriefStatus
	Meta        BriefMeta
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// BriefID builds the brief identity <category>-<slug3>-<epoch_ms> where slug3
// is the first three alphanumeric words of the headline.
func BriefID(category Category, headline string, ts time.Time) string {
	words := strings.Fields(nonAlnum.ReplaceAllString(strings.ToLower(headline), " "))
	if len(words) > 3 {
		words = words[:3]
	}
	slug := strings.Join(words, "-")
	if slug == "" {
		slug = "brief"
	}
	return fmt.Sprintf("%s-%s-%d", category, slug, ts.UnixMilli())
}
