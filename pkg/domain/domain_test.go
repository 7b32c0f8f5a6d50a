package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArticleID(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		id1 := ArticleID("npr-news", "guid-1", "https://npr.org/a")
		id2 := ArticleID("npr-news", "guid-1", "https://npr.org/a")
		assert.Equal(t, id1, id2, "replayed feed items must collapse to the same id")
		assert.Len(t, id1, 24, "three folded 32-bit components, hex encoded")
	})

	t.Run("components independent", func(t *testing.T) {
		base := ArticleID("src", "guid", "url")
		assert.NotEqual(t, base, ArticleID("src2", "guid", "url"))
		assert.NotEqual(t, base, ArticleID("src", "guid2", "url"))
		assert.NotEqual(t, base, ArticleID("src", "guid", "url2"))
	})
}

func TestBriefID(t *testing.T) {
	ts := time.UnixMilli(1700000000000)

	id := BriefID(CategoryFinanceMacro, "Fed Holds Rates Steady at 5.25", ts)
	assert.Equal(t, "FINANCE_MACRO-fed-holds-rates-1700000000000", id)

	id = BriefID(CategoryUSNational, "Update", ts)
	assert.Equal(t, "US_NATIONAL-update-1700000000000", id)

	id = BriefID(CategoryInternational, "!!!", ts)
	assert.Equal(t, "INTERNATIONAL-brief-1700000000000", id)
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategoryUSNational.Valid())
	assert.True(t, CategoryInternational.Valid())
	assert.True(t, CategoryFinanceMacro.Valid())
	assert.False(t, Category("SPORTS").Valid())
}

func TestTagsFor(t *testing.T) {
	tags := TagsFor("Federal Reserve holds interest rate steady", "markets react to inflation data")
	assert.Equal(t, []string{"fed", "inflation", "markets", "rates"}, tags)

	assert.Empty(t, TagsFor("quiet news day", "nothing notable"))

	// case-insensitive matching
	tags = TagsFor("ELECTION results certified by Congress", "")
	assert.Equal(t, []string{"congress", "elections"}, tags)
}

func TestTopTags(t *testing.T) {
	articles := []Article{
		{Tags: []string{"fed", "rates", "markets"}},
		{Tags: []string{"fed", "rates"}},
		{Tags: []string{"fed", "inflation"}},
	}
	top := TopTags(articles, 2)
	assert.Equal(t, []string{"fed", "rates"}, top)

	top = TopTags(articles, 5)
	assert.Equal(t, []string{"fed", "rates", "inflation", "markets"}, top)
}
