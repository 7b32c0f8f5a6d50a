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

// SourceRepository handles source-related database operations
type SourceRepository struct {
	db *sqlx.DB
}

// sourceSQL represents a source for SQL operations
type sourceSQL struct {
	ID          string       `db:"id"`
	Name        string       `db:"name"`
	URL         string       `db:"url"`
	Category    string       `db:"category"`
	Active      bool         `db:"active"`
	LastChecked sql.NullTime `db:"last_checked"`
	LastError   string       `db:"last_error"`
}

// NewSourceRepository creates a new source repository
func NewSourceRepository(database *sqlx.DB) *SourceRepository {
	return &SourceRepository{db: database}
}

// SeedSources inserts configured sources, updating name, url, category and
// active flag for ids that already exist. Probe state is preserved.
func (r *SourceRepository) SeedSources(ctx context.Context, sources []domain.Source) error {
	query := `
		INSERT INTO sources (id, name, url, category, active)
		VALUES (:id, :name, :url, :category, :active)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			category = excluded.category,
			active = excluded.active,
			updated_at = CURRENT_TIMESTAMP
	`
	for _, src := range sources {
		s := sourceSQL{ID: src.ID, Name: src.Name, URL: src.URL, Category: string(src.Category), Active: src.Active}
		if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
			return fmt.Errorf("seed source %s: %w", src.ID, err)
		}
	}
	return nil
}

// GetSource retrieves a source by id
func (r *SourceRepository) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	var s sourceSQL
	err := r.db.GetContext(ctx, &s, `SELECT id, name, url, category, active, last_checked, last_error FROM sources WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("source %s not found", id)
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	src := r.toDomain(&s)
	return &src, nil
}

// GetSources retrieves sources, optionally active only, in id order
func (r *SourceRepository) GetSources(ctx context.Context, activeOnly bool) ([]domain.Source, error) {
	query := `SELECT id, name, url, category, active, last_checked, last_error FROM sources ORDER BY id`
	if activeOnly {
		query = `SELECT id, name, url, category, active, last_checked, last_error FROM sources WHERE active = 1 ORDER BY id`
	}

	var rows []sourceSQL
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("get sources: %w", err)
	}

	sources := make([]domain.Source, len(rows))
	for i, s := range rows {
		sources[i] = r.toDomain(&s)
	}
	return sources, nil
}

// UpdateSourceProbe records the outcome of a fetch attempt. An empty errMsg
// marks success.
func (r *SourceRepository) UpdateSourceProbe(ctx context.Context, id string, ts time.Time, errMsg string) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `
			UPDATE sources
			SET last_checked = ?,
			    last_error = ?,
			    updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`
		_, err := r.db.ExecContext(ctx, query, ts, errMsg, id)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("update source probe: %w", err)}
		}
		return nil
	})
}

func (r *SourceRepository) toDomain(s *sourceSQL) domain.Source {
	src := domain.Source{
		ID:        s.ID,
		Name:      s.Name,
		URL:       s.URL,
		Category:  domain.Category(s.Category),
		Active:    s.Active,
		LastError: s.LastError,
	}
	if s.LastChecked.Valid {
		src.LastChecked = s.LastChecked.Time
	}
	return src
}
