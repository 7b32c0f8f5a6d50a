package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"github.com/briefwire/briefwire/pkg/domain"
)

// upsertChunkSize bounds a single insert statement
const upsertChunkSize = 50

// ArticleRepository handles article-related database operations
type ArticleRepository struct {
	db *sqlx.DB
}

// articleSQL represents an article for SQL operations
type articleSQL struct {
	ID             string     `db:"id"`
	SourceID       string     `db:"source_id"`
	GUID           string     `db:"guid"`
	URL            string     `db:"url"`
	Title          string     `db:"title"`
	Description    string     `db:"description"`
	Content        string     `db:"content"`
	Category       string     `db:"category"`
	PublishedAt    time.Time  `db:"published_at"`
	CapturedAt     time.Time  `db:"captured_at"`
	Tags           stringsSQL `db:"tags"`
	BriefGenerated bool       `db:"brief_generated"`
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(database *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: database}
}

// UpsertArticles stores articles in chunks. The batch is first deduplicated
// by id and by URL; rows already present are left untouched so a replayed
// batch converges to the same state. A failed chunk does not abort the rest.
// Returns the number of rows actually inserted.
func (r *ArticleRepository) UpsertArticles(ctx context.Context, articles []domain.Article) (int, error) {
	batch := dedupeBatch(articles)

	query := `
		INSERT INTO articles (
			id, source_id, guid, url, title, description, content,
			category, published_at, captured_at, tags, brief_generated
		) VALUES (
			:id, :source_id, :guid, :url, :title, :description, :content,
			:category, :published_at, :captured_at, :tags, :brief_generated
		)
		ON CONFLICT DO NOTHING
	`

	inserted := 0
	var firstErr error
	for start := 0; start < len(batch); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(batch) {
			end = len(batch)
		}

		retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
		chunkErr := retrier.Do(ctx, func() error {
			tx, err := r.db.BeginTxx(ctx, nil)
			if err != nil {
				if isLockError(err) {
					return err // retry
				}
				return &criticalError{err: fmt.Errorf("begin chunk: %w", err)}
			}
			count := 0
			for _, a := range batch[start:end] {
				res, err := tx.NamedExecContext(ctx, query, toArticleSQL(a))
				if err != nil {
					_ = tx.Rollback()
					if isLockError(err) {
						return err // retry
					}
					return &criticalError{err: fmt.Errorf("insert article %s: %w", a.ID, err)}
				}
				if n, err := res.RowsAffected(); err == nil {
					count += int(n)
				}
			}
			if err := tx.Commit(); err != nil {
				if isLockError(err) {
					return err // retry
				}
				return &criticalError{err: fmt.Errorf("commit chunk: %w", err)}
			}
			inserted += count
			return nil
		})
		if chunkErr != nil {
			lgr.Printf("[WARN] article chunk %d-%d failed: %v", start, end, chunkErr)
			if firstErr == nil {
				firstErr = chunkErr
			}
		}
	}

	return inserted, firstErr
}

// MarkBriefGenerated flips the brief-generated flag for the given article ids
func (r *ArticleRepository) MarkBriefGenerated(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE articles SET brief_generated = 1 WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("build mark query: %w", err)
	}

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	return retrier.Do(ctx, func() error {
		if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("mark brief generated: %w", err)}
		}
		return nil
	})
}

// ArticlesInWindow returns articles captured in [start, end)
func (r *ArticleRepository) ArticlesInWindow(ctx context.Context, start, end time.Time) ([]domain.Article, error) {
	var rows []articleSQL
	query := `SELECT id, source_id, guid, url, title, description, content, category,
		published_at, captured_at, tags, brief_generated
		FROM articles WHERE captured_at >= ? AND captured_at < ? ORDER BY captured_at`
	if err := r.db.SelectContext(ctx, &rows, query, start, end); err != nil {
		return nil, fmt.Errorf("articles in window: %w", err)
	}

	articles := make([]domain.Article, len(rows))
	for i, a := range rows {
		articles[i] = toDomainArticle(&a)
	}
	return articles, nil
}

// ArticleURLExists checks whether an article with the exact URL is stored
func (r *ArticleRepository) ArticleURLExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM articles WHERE url = ?)`, url)
	if err != nil {
		return false, fmt.Errorf("check article url: %w", err)
	}
	return exists, nil
}

// ArticlesByTitleWindow returns up to limit stored titles containing the
// given title window as a substring, most recent first
func (r *ArticleRepository) ArticlesByTitleWindow(ctx context.Context, window string, limit int) ([]string, error) {
	var titles []string
	query := `SELECT title FROM articles WHERE instr(title, ?) > 0 ORDER BY captured_at DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &titles, query, window, limit); err != nil {
		return nil, fmt.Errorf("articles by title window: %w", err)
	}
	return titles, nil
}

// CountByCategorySince counts stored articles per category captured at or
// after the given time, normally the start of the local day
func (r *ArticleRepository) CountByCategorySince(ctx context.Context, since time.Time) (map[domain.Category]int, error) {
	var rows []struct {
		Category string `db:"category"`
		Count    int    `db:"count"`
	}
	query := `SELECT category, COUNT(*) as count FROM articles WHERE captured_at >= ? GROUP BY category`
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}

	counts := make(map[domain.Category]int, len(rows))
	for _, row := range rows {
		counts[domain.Category(row.Category)] = row.Count
	}
	return counts, nil
}

// dedupeBatch drops in-batch duplicates by id and by URL, keeping first wins
func dedupeBatch(articles []domain.Article) []domain.Article {
	seenID := make(map[string]bool, len(articles))
	seenURL := make(map[string]bool, len(articles))
	out := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		if seenID[a.ID] || seenURL[a.URL] {
			continue
		}
		seenID[a.ID] = true
		seenURL[a.URL] = true
		out = append(out, a)
	}
	return out
}

func toArticleSQL(a domain.Article) *articleSQL {
	return &articleSQL{
		ID:             a.ID,
		SourceID:       a.SourceID,
		GUID:           a.GUID,
		URL:            a.URL,
		Title:          a.Title,
		Description:    a.Description,
		Content:        a.Content,
		Category:       string(a.Category),
		PublishedAt:    a.PublishedAt,
		CapturedAt:     a.CapturedAt,
		Tags:           stringsSQL(a.Tags),
		BriefGenerated: a.BriefGenerated,
	}
}

func toDomainArticle(a *articleSQL) domain.Article {
	return domain.Article{
		ID:             a.ID,
		SourceID:       a.SourceID,
		GUID:           a.GUID,
		URL:            a.URL,
		Title:          a.Title,
		Description:    a.Description,
		Content:        a.Content,
		Category:       domain.Category(a.Category),
		PublishedAt:    a.PublishedAt,
		CapturedAt:     a.CapturedAt,
		Tags:           a.Tags,
		BriefGenerated: a.BriefGenerated,
	}
}
