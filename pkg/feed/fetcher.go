package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/briefwire/briefwire/pkg/config"
	"github.com/briefwire/briefwire/pkg/domain"
)

const acceptHeader = "application/rss+xml, application/xml, text/xml, */*"

// Fetcher retrieves and parses RSS/Atom feeds for a single source per call.
// Retry state is local to each Fetch invocation so concurrent fetches never
// share a backoff schedule.
type Fetcher struct {
	client      *http.Client
	sanitizer   *bluemonday.Policy
	userAgent   string
	maxAttempts int
	retryDelay  time.Duration
	retryMult   float64
	maxArticles int
	now         func() time.Time
}

// NewFetcher creates a feed fetcher from fetch configuration
func NewFetcher(cfg config.FetchConfig) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		sanitizer:   bluemonday.StrictPolicy(),
		userAgent:   cfg.UserAgent,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		retryMult:   cfg.RetryMultiplier,
		maxArticles: cfg.MaxArticles,
		now:         time.Now,
	}
}

// Fetch retrieves the source's feed and converts items to articles. The URL is
// validated before any network I/O. Transient failures retry up to the
// configured attempts with a growing inter-attempt delay; 4xx responses and
// parse failures do not retry.
func (f *Fetcher) Fetch(ctx context.Context, src domain.Source) ([]domain.Article, error) {
	parsed, err := url.Parse(src.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &FetchError{Kind: ErrInvalidURL, Err: fmt.Errorf("source %s url %q", src.ID, src.URL)}
	}

	delay := f.retryDelay
	var lastErr *FetchError
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &FetchError{Kind: ErrTimeout, Err: ctx.Err()}
			}
			delay = time.Duration(float64(delay) * f.retryMult)
		}

		feed, ferr := f.fetchOnce(ctx, src.URL)
		if ferr == nil {
			return f.toArticles(src, feed), nil
		}
		lastErr = ferr
		if !ferr.Retriable() {
			return nil, ferr
		}
		lgr.Printf("[DEBUG] fetch attempt %d/%d failed for %s: %v", attempt, f.maxAttempts, src.ID, ferr)
	}

	return nil, lastErr
}

// fetchOnce performs a single GET and parse
func (f *Fetcher) fetchOnce(ctx context.Context, feedURL string) (*gofeed.Feed, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, http.NoBody)
	if err != nil {
		return nil, &FetchError{Kind: ErrInvalidURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, &FetchError{Kind: ErrHTTPServer, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return nil, &FetchError{Kind: ErrHTTPClient, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: ErrParse, Err: err}
	}
	return feed, nil
}

// toArticles converts parsed feed items to domain articles, most recent first,
// capped at the configured per-feed maximum
func (f *Fetcher) toArticles(src domain.Source, feed *gofeed.Feed) []domain.Article {
	now := f.now()

	items := make([]*gofeed.Item, len(feed.Items))
	copy(items, feed.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return itemTime(items[i], now).After(itemTime(items[j], now))
	})
	if len(items) > f.maxArticles {
		items = items[:f.maxArticles]
	}

	articles := make([]domain.Article, 0, len(items))
	for _, item := range items {
		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}

		title := f.sanitizer.Sanitize(item.Title)
		description := f.sanitizer.Sanitize(item.Description)
		content := f.sanitizer.Sanitize(item.Content)

		articles = append(articles, domain.Article{
			ID:          domain.ArticleID(src.ID, guid, item.Link),
			SourceID:    src.ID,
			GUID:        guid,
			URL:         item.Link,
			Title:       title,
			Description: description,
			Content:     content,
			Category:    src.Category,
			PublishedAt: itemTime(item, now),
			CapturedAt:  now,
			Tags:        domain.TagsFor(title, description),
		})
	}
	return articles
}

// itemTime resolves an item's publish time with capture time as fallback
func itemTime(item *gofeed.Item, now time.Time) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return now
}
