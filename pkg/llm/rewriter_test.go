package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefwire/briefwire/pkg/config"
	"github.com/briefwire/briefwire/pkg/domain"
)

func testArticle() domain.Article {
	return domain.Article{
		ID:          "aabbccdd00112233aabbccdd",
		SourceID:    "reuters-world",
		URL:         "https://www.reuters.com/world/some-story",
		Title:       "Senate Passes Appropriations Bill",
		Description: "The Senate passed the annual appropriations bill on Tuesday.",
		Content:     "The Senate passed the annual appropriations bill on Tuesday by a vote of 68-31.",
		Category:    domain.CategoryUSNational,
		PublishedAt: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		Tags:        []string{"congress", "budget"},
	}
}

func testPolicy() config.BriefConfig {
	return config.BriefConfig{
		Profile:       "standard",
		MinWords:      10,
		MaxWords:      300,
		MinSources:    1,
		InitialStatus: "pending",
		MaxExpansions: 3,
	}
}

// newTestRewriter points a rewriter at an httptest server that replies with
// the given bodies, one per call, and returns the call counter
func newTestRewriter(t *testing.T, policy config.BriefConfig, bodies ...string) (*Rewriter, *int32) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		require.True(t, int(n) <= len(bodies), "unexpected call %d", n)
		w.Header().Set("Content-Type", "application/json")
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: bodies[n-1]}},
			},
			Usage: openai.Usage{PromptTokens: 100, CompletionTokens: 50},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)

	r := NewRewriter(config.LLMConfig{
		Endpoint:      server.URL + "/v1",
		APIKey:        "test-key",
		Model:         "gpt-4o-mini",
		Temperature:   0.2,
		MaxTokens:     1200,
		Timeout:       5 * time.Second,
		PromptVersion: "v2",
		InputRate:     0.15,
		OutputRate:    0.6,
	}, policy)
	r.now = func() time.Time { return time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC) }
	return r, &calls
}

func wordsN(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(parts, " ")
}

func response(headline, body, sources string) string {
	return fmt.Sprintf("==HEADLINE==\n%s\n\n==BRIEF==\n%s\n\n==CONTEXT==\nNone\n\n==SOURCES==\n%s\n\n==SIDE-CAR==\n{}\n",
		headline, body, sources)
}

func TestRewriter_Rewrite(t *testing.T) {
	body := wordsN(40)
	r, calls := newTestRewriter(t, testPolicy(),
		response("Senate Passes Spending Bill", body, "https://www.congress.gov/bill/hr1234"))

	brief, err := r.Rewrite(context.Background(), testArticle())
	require.NoError(t, err)
	assert.EqualValues(t, 1, *calls)

	assert.Equal(t, "Senate Passes Spending Bill", brief.Headline)
	assert.Equal(t, body, brief.Body)
	assert.Equal(t, domain.CategoryUSNational, brief.Category)
	assert.Equal(t, domain.BriefPending, brief.Status)
	assert.True(t, strings.HasPrefix(brief.ID, "US_NATIONAL-senate-passes-spending-"), "id %s", brief.ID)

	// originating article URL is always appended
	assert.Equal(t, []string{"https://www.congress.gov/bill/hr1234", "https://www.reuters.com/world/some-story"}, brief.SourceURLs)
	assert.Equal(t, []string{"aabbccdd00112233aabbccdd"}, brief.ArticleIDs)
	assert.Equal(t, []string{"budget", "congress"}, brief.Tags, "top tags of the contributing articles")

	assert.Equal(t, "gpt-4o-mini", brief.Meta.Model)
	assert.Equal(t, "v2", brief.Meta.PromptVersion)
	assert.Equal(t, 150, brief.Meta.Tokens)
	assert.InDelta(t, 100*0.15/1e6+50*0.6/1e6, brief.Meta.Cost, 1e-12)
	assert.Zero(t, brief.Meta.Revisions)
}

func TestRewriter_Rewrite_BiasRevision(t *testing.T) {
	loaded := "The brutal crackdown by the regime continued as officials " + wordsN(20)
	neutral := "The security operation continued as officials " + wordsN(20)
	r, calls := newTestRewriter(t, testPolicy(),
		response("Crackdown Continues", loaded, "https://www.reuters.com/a"),
		response("Security Operation Continues", neutral, "https://www.reuters.com/a"))

	brief, err := r.Rewrite(context.Background(), testArticle())
	require.NoError(t, err)
	assert.EqualValues(t, 2, *calls, "bias hit should trigger exactly one revision call")
	assert.Equal(t, "Security Operation Continues", brief.Headline)
	assert.Equal(t, 1, brief.Meta.Revisions)
	assert.Zero(t, brief.Meta.Subjectivity)
}

func TestRewriter_Rewrite_RevisionKeptOnlyWhenNotWorse(t *testing.T) {
	loaded := "A shocking result " + wordsN(20)
	worse := "A shocking and devastating result " + wordsN(20)
	r, calls := newTestRewriter(t, testPolicy(),
		response("Result", loaded, "https://www.reuters.com/a"),
		response("Result", worse, "https://www.reuters.com/a"))

	brief, err := r.Rewrite(context.Background(), testArticle())
	require.NoError(t, err)
	assert.EqualValues(t, 2, *calls)
	assert.Contains(t, brief.Body, "A shocking result", "worse revision must be discarded")
	assert.Zero(t, brief.Meta.Revisions)
}

func TestRewriter_Rewrite_ExpansionThenFiller(t *testing.T) {
	policy := testPolicy()
	policy.MinWords = 80
	policy.MaxExpansions = 2

	short := wordsN(20)
	slightlyLonger := wordsN(30)
	r, calls := newTestRewriter(t, policy,
		response("Short Story", short, "https://www.reuters.com/a"),
		response("Short Story", slightlyLonger, "https://www.reuters.com/a"),
		response("Short Story", slightlyLonger, "https://www.reuters.com/a")) // no growth, loop stops

	brief, err := r.Rewrite(context.Background(), testArticle())
	require.NoError(t, err)
	assert.EqualValues(t, 3, *calls)
	assert.GreaterOrEqual(t, wordCount(brief.Body), policy.MinWords)
	assert.Contains(t, brief.Body, "Further details on this development", "filler pads the remaining gap")
	assert.Equal(t, 1, brief.Meta.Revisions, "only the growing expansion counts")
}

func TestRewriter_Rewrite_ExpansionDiscardedWhenLoaded(t *testing.T) {
	policy := testPolicy()
	policy.MinWords = 40
	policy.MaxExpansions = 2

	short := wordsN(20)
	loaded := "The brutal escalation continued " + wordsN(25)
	r, calls := newTestRewriter(t, policy,
		response("Short Story", short, "https://www.reuters.com/a"),
		response("Short Story", loaded, "https://www.reuters.com/a"))

	brief, err := r.Rewrite(context.Background(), testArticle())
	require.NoError(t, err)
	assert.EqualValues(t, 2, *calls, "loaded expansion ends the loop")

	assert.NotContains(t, brief.Body, "brutal")
	assert.Contains(t, brief.Body, "Further details on this development", "filler covers the gap instead")
	assert.GreaterOrEqual(t, wordCount(brief.Body), policy.MinWords)
	assert.Zero(t, brief.Meta.Revisions)
	assert.Zero(t, brief.Meta.Subjectivity)
}

func TestRewriter_Rewrite_TruncatesOverlongBody(t *testing.T) {
	policy := testPolicy()
	policy.MaxWords = 50
	r, _ := newTestRewriter(t, policy,
		response("Long Story", wordsN(90), "https://www.reuters.com/a"))

	brief, err := r.Rewrite(context.Background(), testArticle())
	require.NoError(t, err)
	assert.Equal(t, 50, wordCount(brief.Body))
	assert.True(t, strings.HasSuffix(brief.Body, "..."))
}

func TestRewriter_Rewrite_InsufficientSources(t *testing.T) {
	policy := testPolicy()
	policy.MinSources = 2
	r, _ := newTestRewriter(t, policy, response("Story", wordsN(40), ""))

	_, err := r.Rewrite(context.Background(), testArticle())
	require.Error(t, err)
	var rwErr *RewriteError
	require.True(t, errors.As(err, &rwErr))
	assert.Equal(t, ErrInsufficientSources, rwErr.Kind)
}

func TestRewriter_Rewrite_ParseError(t *testing.T) {
	r, _ := newTestRewriter(t, testPolicy(), "I could not process this article, sorry.")

	_, err := r.Rewrite(context.Background(), testArticle())
	require.Error(t, err)
	var rwErr *RewriteError
	require.True(t, errors.As(err, &rwErr))
	assert.Equal(t, ErrParse, rwErr.Kind)
}

func TestRewriter_Rewrite_LLMUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer server.Close()

	r := NewRewriter(config.LLMConfig{
		Endpoint: server.URL + "/v1", APIKey: "k", Model: "gpt-4o-mini", Timeout: 5 * time.Second,
	}, testPolicy())

	_, err := r.Rewrite(context.Background(), testArticle())
	require.Error(t, err)
	var rwErr *RewriteError
	require.True(t, errors.As(err, &rwErr))
	assert.Equal(t, ErrLLMUnavailable, rwErr.Kind)
}

func TestRewriter_Fallback(t *testing.T) {
	r, _ := newTestRewriter(t, testPolicy())
	article := testArticle()

	brief := r.Fallback(article)
	require.NotNil(t, brief)
	assert.Equal(t, article.Title, brief.Headline)
	assert.Equal(t, "fallback", brief.Meta.Model)
	assert.Equal(t, []string{article.URL}, brief.SourceURLs)
	assert.GreaterOrEqual(t, wordCount(brief.Body), testPolicy().MinWords)
	assert.LessOrEqual(t, wordCount(brief.Body), testPolicy().MaxWords)
	assert.Contains(t, brief.Body, article.Description)
	assert.Equal(t, domain.BriefPending, brief.Status)

	// deterministic: a replay produces the identical brief
	again := r.Fallback(article)
	assert.Equal(t, brief, again)
}

func TestRewriter_Fallback_EmptyArticle(t *testing.T) {
	r, _ := newTestRewriter(t, testPolicy())
	brief := r.Fallback(domain.Article{ID: "x", Category: domain.CategoryFinanceMacro})
	assert.Equal(t, "News Update", brief.Headline)
	assert.GreaterOrEqual(t, wordCount(brief.Body), testPolicy().MinWords)
}
