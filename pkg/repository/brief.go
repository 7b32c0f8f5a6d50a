package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"github.com/briefwire/briefwire/pkg/domain"
)

// BriefRepository handles brief-related database operations
type BriefRepository struct {
	db *sqlx.DB
}

// briefSQL represents a brief for SQL operations, with the LLM metadata
// flattened into columns
type briefSQL struct {
	ID            string     `db:"id"`
	Headline      string     `db:"headline"`
	Body          string     `db:"body"`
	SourceURLs    stringsSQL `db:"source_urls"`
	ArticleIDs    stringsSQL `db:"article_ids"`
	Category      string     `db:"category"`
	PublishedAt   time.Time  `db:"published_at"`
	Tags          stringsSQL `db:"tags"`
	Status        string     `db:"status"`
	Model         string     `db:"model"`
	PromptVersion string     `db:"prompt_version"`
	Tokens        int        `db:"tokens"`
	Cost          float64    `db:"cost"`
	ProcessingMS  int64      `db:"processing_ms"`
	Subjectivity  float64    `db:"subjectivity"`
	Revisions     int        `db:"revisions"`
}

// NewBriefRepository creates a new brief repository
func NewBriefRepository(database *sqlx.DB) *BriefRepository {
	return &BriefRepository{db: database}
}

// UpsertBriefs stores briefs with id as the single conflict key; existing
// rows are left untouched. Returns the number of rows inserted.
func (r *BriefRepository) UpsertBriefs(ctx context.Context, briefs []*domain.Brief) (int, error) {
	query := `
		INSERT INTO briefs (
			id, headline, body, source_urls, article_ids, category, published_at,
			tags, status, model, prompt_version, tokens, cost, processing_ms,
			subjectivity, revisions
		) VALUES (
			:id, :headline, :body, :source_urls, :article_ids, :category, :published_at,
			:tags, :status, :model, :prompt_version, :tokens, :cost, :processing_ms,
			:subjectivity, :revisions
		)
		ON CONFLICT(id) DO NOTHING
	`

	inserted := 0
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err := retrier.Do(ctx, func() error {
		count := 0
		for _, b := range briefs {
			res, err := r.db.NamedExecContext(ctx, query, toBriefSQL(b))
			if err != nil {
				if isLockError(err) {
					return err // retry
				}
				return &criticalError{err: fmt.Errorf("insert brief %s: %w", b.ID, err)}
			}
			if n, err := res.RowsAffected(); err == nil {
				count += int(n)
			}
		}
		inserted = count
		return nil
	})
	return inserted, err
}

// GetBrief retrieves a brief by id
func (r *BriefRepository) GetBrief(ctx context.Context, id string) (*domain.Brief, error) {
	var b briefSQL
	err := r.db.GetContext(ctx, &b, `SELECT id, headline, body, source_urls, article_ids,
		category, published_at, tags, status, model, prompt_version, tokens, cost,
		processing_ms, subjectivity, revisions FROM briefs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("brief %s not found", id)
		}
		return nil, fmt.Errorf("get brief: %w", err)
	}
	brief := toDomainBrief(&b)
	return &brief, nil
}

// ListBriefs returns briefs most recent first, optionally filtered by
// category, capped at limit
func (r *BriefRepository) ListBriefs(ctx context.Context, category domain.Category, limit int) ([]domain.Brief, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, headline, body, source_urls, article_ids, category, published_at,
		tags, status, model, prompt_version, tokens, cost, processing_ms, subjectivity, revisions
		FROM briefs`
	args := []interface{}{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY published_at DESC LIMIT ?`
	args = append(args, limit)

	var rows []briefSQL
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list briefs: %w", err)
	}

	briefs := make([]domain.Brief, len(rows))
	for i, b := range rows {
		briefs[i] = toDomainBrief(&b)
	}
	return briefs, nil
}

func toBriefSQL(b *domain.Brief) *briefSQL {
	return &briefSQL{
		ID:            b.ID,
		Headline:      b.Headline,
		Body:          b.Body,
		SourceURLs:    stringsSQL(b.SourceURLs),
		ArticleIDs:    stringsSQL(b.ArticleIDs),
		Category:      string(b.Category),
		PublishedAt:   b.PublishedAt,
		Tags:          stringsSQL(b.Tags),
		Status:        string(b.Status),
		Model:         b.Meta.Model,
		PromptVersion: b.Meta.PromptVersion,
		Tokens:        b.Meta.Tokens,
		Cost:          b.Meta.Cost,
		ProcessingMS:  b.Meta.ProcessingMS,
		Subjectivity:  b.Meta.Subjectivity,
		Revisions:     b.Meta.Revisions,
	}
}

func toDomainBrief(b *briefSQL) domain.Brief {
	return domain.Brief{
		ID:          b.ID,
		Headline:    b.Headline,
		Body:        b.Body,
		SourceURLs:  b.SourceURLs,
		ArticleIDs:  b.ArticleIDs,
		Category:    domain.Category(b.Category),
		PublishedAt: b.PublishedAt,
		Tags:        b.Tags,
		Status:      domain.BriefStatus(b.Status),
		Meta: domain.BriefMeta{
			Model:         b.Model,
			PromptVersion: b.PromptVersion,
			Tokens:        b.Tokens,
			Cost:          b.Cost,
			ProcessingMS:  b.ProcessingMS,
			Subjectivity:  b.Subjectivity,
			Revisions:     b.Revisions,
		},
	}
}
