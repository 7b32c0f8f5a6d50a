package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefwire/briefwire/pkg/domain"
)

func seedTestSource(t *testing.T, repos *Repositories) {
	t.Helper()
	require.NoError(t, repos.Source.SeedSources(context.Background(), []domain.Source{
		{ID: "test-wire", Name: "Test Wire", URL: "https://testwire.example.com/rss", Category: domain.CategoryUSNational, Active: true},
	}))
}

func makeArticle(n int, captured time.Time) domain.Article {
	url := fmt.Sprintf("https://testwire.example.com/story-%d", n)
	return domain.Article{
		ID:          domain.ArticleID("test-wire", fmt.Sprintf("guid-%d", n), url),
		SourceID:    "test-wire",
		GUID:        fmt.Sprintf("guid-%d", n),
		URL:         url,
		Title:       fmt.Sprintf("Test Story Number %d With Some Detail", n),
		Description: "short description",
		Content:     "full article content",
		Category:    domain.CategoryUSNational,
		PublishedAt: captured.Add(-time.Hour),
		CapturedAt:  captured,
		Tags:        []string{"congress"},
	}
}

func TestArticleRepository_UpsertIdempotent(t *testing.T) {
	repos := setupTestDB(t)
	seedTestSource(t, repos)
	ctx := context.Background()
	captured := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	batch := []domain.Article{makeArticle(1, captured), makeArticle(2, captured)}

	inserted, err := repos.Article.UpsertArticles(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// replaying the same batch inserts nothing and changes nothing
	inserted, err = repos.Article.UpsertArticles(ctx, batch)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	stored, err := repos.Article.ArticlesInWindow(ctx, captured.Add(-time.Minute), captured.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, stored, 2)
	ids := []string{stored[0].ID, stored[1].ID}
	assert.ElementsMatch(t, []string{batch[0].ID, batch[1].ID}, ids)
	assert.Equal(t, []string{"congress"}, stored[0].Tags)
}

func TestArticleRepository_UpsertDedupesBatch(t *testing.T) {
	repos := setupTestDB(t)
	seedTestSource(t, repos)
	ctx := context.Background()
	captured := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	a1 := makeArticle(1, captured)
	sameID := a1
	sameID.URL = "https://testwire.example.com/other-path"
	sameURL := makeArticle(3, captured)
	sameURL.URL = a1.URL

	inserted, err := repos.Article.UpsertArticles(ctx, []domain.Article{a1, sameID, sameURL, makeArticle(2, captured)})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted, "in-batch duplicates by id and url are dropped")
}

func TestArticleRepository_UpsertChunks(t *testing.T) {
	repos := setupTestDB(t)
	seedTestSource(t, repos)
	ctx := context.Background()
	captured := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	batch := make([]domain.Article, 120)
	for i := range batch {
		batch[i] = makeArticle(i, captured)
	}

	inserted, err := repos.Article.UpsertArticles(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 120, inserted)
}

func TestArticleRepository_URLExists(t *testing.T) {
	repos := setupTestDB(t)
	seedTestSource(t, repos)
	ctx := context.Background()

	a := makeArticle(1, time.Now())
	_, err := repos.Article.UpsertArticles(ctx, []domain.Article{a})
	require.NoError(t, err)

	exists, err := repos.Article.ArticleURLExists(ctx, a.URL)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repos.Article.ArticleURLExists(ctx, "https://testwire.example.com/unknown")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestArticleRepository_TitleWindow(t *testing.T) {
	repos := setupTestDB(t)
	seedTestSource(t, repos)
	ctx := context.Background()

	a := makeArticle(7, time.Now())
	a.Title = "Senate Passes Major Appropriations Bill After Lengthy Debate"
	_, err := repos.Article.UpsertArticles(ctx, []domain.Article{a})
	require.NoError(t, err)

	titles, err := repos.Article.ArticlesByTitleWindow(ctx, "Senate Passes Major", 5)
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, a.Title, titles[0])

	titles, err = repos.Article.ArticlesByTitleWindow(ctx, "No Such Window", 5)
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func TestArticleRepository_CountByCategorySince(t *testing.T) {
	repos := setupTestDB(t)
	seedTestSource(t, repos)
	ctx := context.Background()

	today := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	yesterday := today.Add(-6 * time.Hour)

	old := makeArticle(1, yesterday)
	fresh1 := makeArticle(2, today.Add(9*time.Hour))
	fresh2 := makeArticle(3, today.Add(10*time.Hour))
	_, err := repos.Article.UpsertArticles(ctx, []domain.Article{old, fresh1, fresh2})
	require.NoError(t, err)

	counts, err := repos.Article.CountByCategorySince(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, map[domain.Category]int{domain.CategoryUSNational: 2}, counts)
}

func TestArticleRepository_MarkBriefGenerated(t *testing.T) {
	repos := setupTestDB(t)
	seedTestSource(t, repos)
	ctx := context.Background()
	captured := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	a1, a2 := makeArticle(1, captured), makeArticle(2, captured)
	_, err := repos.Article.UpsertArticles(ctx, []domain.Article{a1, a2})
	require.NoError(t, err)

	require.NoError(t, repos.Article.MarkBriefGenerated(ctx, []string{a1.ID}))
	require.NoError(t, repos.Article.MarkBriefGenerated(ctx, nil)) // no-op

	stored, err := repos.Article.ArticlesInWindow(ctx, captured.Add(-time.Minute), captured.Add(time.Minute))
	require.NoError(t, err)
	byID := map[string]domain.Article{}
	for _, a := range stored {
		byID[a.ID] = a
	}
	assert.True(t, byID[a1.ID].BriefGenerated)
	assert.False(t, byID[a2.ID].BriefGenerated)
}
