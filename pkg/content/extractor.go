// Package content enriches articles whose feed entries carry only a stub by
// extracting the full text from the article page.
package content

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/markusmobius/go-trafilatura"

	"github.com/briefwire/briefwire/pkg/domain"
)

// Extractor pulls article text out of HTML pages using trafilatura
type Extractor struct {
	minTextLength int
	userAgent     string
	client        *http.Client
}

// NewExtractor creates an extractor. Articles whose content is at least
// minTextLength runes are left untouched by Enrich.
func NewExtractor(timeout time.Duration, minTextLength int, userAgent string) *Extractor {
	if userAgent == "" {
		userAgent = "briefwire/1.0"
	}
	return &Extractor{
		minTextLength: minTextLength,
		userAgent:     userAgent,
		client:        &http.Client{Timeout: timeout},
	}
}

// Enrich replaces the article content with the extracted page text when the
// feed entry was too short to rewrite from. Returns true if the content
// changed. Extraction failures leave the article as is.
func (e *Extractor) Enrich(ctx context.Context, article *domain.Article) bool {
	if len(article.Content) >= e.minTextLength {
		return false
	}

	text, err := e.Extract(ctx, article.URL)
	if err != nil {
		lgr.Printf("[DEBUG] enrichment skipped for %s: %v", article.ID, err)
		return false
	}
	if len(text) <= len(article.Content) {
		return false
	}

	lgr.Printf("[DEBUG] enriched %s, %d -> %d chars", article.ID, len(article.Content), len(text))
	article.Content = text
	return true
}

// Extract retrieves the page and returns its main text content
func (e *Extractor) Extract(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid url: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	result, err := trafilatura.Extract(resp.Body, trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		Deduplicate:     true,
		OriginalURL:     parsed,
	})
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", rawURL, err)
	}
	if result == nil || result.ContentText == "" {
		return "", fmt.Errorf("no text content in %s", rawURL)
	}

	return strings.TrimSpace(result.ContentText), nil
}
