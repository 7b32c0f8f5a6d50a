package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefwire/briefwire/pkg/domain"
)

func TestLogRepository_AppendAndRecent(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()

	first := &domain.ProcessingLog{
		Success:           true,
		ArticlesProcessed: 12,
		BriefsGenerated:   10,
		Errors:            []string{"rewrite aabb: parse_error: response missing HEADLINE or BRIEF section"},
		ProcessingMS:      45000,
		Tokens:            18000,
		Cost:              0.0054,
		Model:             "gpt-4o-mini",
		PromptVersion:     "v2",
		Timestamp:         time.Date(2026, 2, 10, 12, 30, 0, 0, time.UTC),
	}
	require.NoError(t, repos.Log.Append(ctx, first))
	assert.NotZero(t, first.ID)

	second := &domain.ProcessingLog{
		Success:   false,
		Errors:    []string{"drain: context canceled"},
		Timestamp: time.Date(2026, 2, 10, 13, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repos.Log.Append(ctx, second))

	logs, err := repos.Log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, second.ID, logs[0].ID, "newest first")
	assert.False(t, logs[0].Success)
	assert.Equal(t, []string{"drain: context canceled"}, logs[0].Errors)

	assert.Equal(t, first.ID, logs[1].ID)
	assert.Equal(t, 12, logs[1].ArticlesProcessed)
	assert.Equal(t, 10, logs[1].BriefsGenerated)
	assert.Equal(t, 18000, logs[1].Tokens)
	assert.InDelta(t, 0.0054, logs[1].Cost, 1e-9)
}

func TestLogRepository_RecentCapped(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repos.Log.Append(ctx, &domain.ProcessingLog{Success: true, Timestamp: time.Now()}))
	}

	logs, err := repos.Log.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}
