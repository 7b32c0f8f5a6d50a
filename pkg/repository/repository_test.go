package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefwire/briefwire/pkg/domain"
)

func setupTestDB(t *testing.T) *Repositories {
	t.Helper()
	repos, err := NewRepositories(context.Background(), Config{
		DSN:             ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 30 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, repos.Close()) })
	return repos
}

func TestRepositories_Ping(t *testing.T) {
	repos := setupTestDB(t)
	require.NoError(t, repos.Ping(context.Background()))
}

func TestSourceRepository_SeedAndGet(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()

	seed := []domain.Source{
		{ID: "white-house", Name: "White House", URL: "https://www.whitehouse.gov/feed/", Category: domain.CategoryUSNational, Active: true},
		{ID: "un-news", Name: "UN News", URL: "https://news.un.org/feed/subscribe/en/news/all/rss.xml", Category: domain.CategoryInternational, Active: true},
		{ID: "old-wire", Name: "Old Wire", URL: "https://oldwire.example.com/rss", Category: domain.CategoryFinanceMacro, Active: false},
	}
	require.NoError(t, repos.Source.SeedSources(ctx, seed))

	src, err := repos.Source.GetSource(ctx, "white-house")
	require.NoError(t, err)
	assert.Equal(t, "White House", src.Name)
	assert.Equal(t, domain.CategoryUSNational, src.Category)
	assert.True(t, src.Active)
	assert.True(t, src.LastChecked.IsZero())

	_, err = repos.Source.GetSource(ctx, "nope")
	assert.Error(t, err)

	all, err := repos.Source.GetSources(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := repos.Source.GetSources(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestSourceRepository_ProbeSurvivesReseed(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()

	seed := []domain.Source{{ID: "un-news", Name: "UN News", URL: "https://news.un.org/rss", Category: domain.CategoryInternational, Active: true}}
	require.NoError(t, repos.Source.SeedSources(ctx, seed))

	probeTime := time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC)
	require.NoError(t, repos.Source.UpdateSourceProbe(ctx, "un-news", probeTime, "timeout: context deadline exceeded"))

	src, err := repos.Source.GetSource(ctx, "un-news")
	require.NoError(t, err)
	assert.WithinDuration(t, probeTime, src.LastChecked, time.Second)
	assert.Equal(t, "timeout: context deadline exceeded", src.LastError)

	// re-seeding with updated config keeps the probe state
	seed[0].Name = "UN News (renamed)"
	require.NoError(t, repos.Source.SeedSources(ctx, seed))

	src, err = repos.Source.GetSource(ctx, "un-news")
	require.NoError(t, err)
	assert.Equal(t, "UN News (renamed)", src.Name)
	assert.WithinDuration(t, probeTime, src.LastChecked, time.Second)

	// successful probe clears the error
	require.NoError(t, repos.Source.UpdateSourceProbe(ctx, "un-news", probeTime.Add(time.Minute), ""))
	src, err = repos.Source.GetSource(ctx, "un-news")
	require.NoError(t, err)
	assert.Empty(t, src.LastError)
}
