package domain

import (
	"fmt"
	"hash/fnv"
	"time"
)

// Article is a single captured news item. Articles are immutable after capture
// except for the BriefGenerated flag.
type Article struct {
	ID             string
	SourceID       string
	GUID           string
	URL            string
	Title          string
	Description    string
	Content        string
	Category       Category
	PublishedAt    time.Time
	CapturedAt     time.Time
	Tags           []string
	BriefGenerated bool
}

// ArticleID derives a deterministic article identity from the source id, feed
// GUID and canonical URL. Each component is folded to 32 bits independently so
// equivalent items from a replayed feed collapse to the same id.
func ArticleID(sourceID, guid, url string) string {
	return fmt.Sprintf("%08x%08x%08x", fold32(sourceID), fold32(guid), fold32(url))
}

func fold32(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// HoldingItem is an article waiting in the holding queue between batches
type HoldingItem struct {
	Article    Article
	EnqueuedAt time.Time
}
