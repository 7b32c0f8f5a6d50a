package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"github.com/briefwire/briefwire/pkg/domain"
)

// LogRepository handles the append-only processing log
type LogRepository struct {
	db *sqlx.DB
}

// logSQL represents a processing log entry for SQL operations
type logSQL struct {
	ID                int64      `db:"id"`
	Success           bool       `db:"success"`
	ArticlesProcessed int        `db:"articles_processed"`
	BriefsGenerated   int        `db:"briefs_generated"`
	Errors            stringsSQL `db:"errors"`
	ProcessingMS      int64      `db:"processing_ms"`
	Tokens            int        `db:"tokens"`
	Cost              float64    `db:"cost"`
	Model             string     `db:"model"`
	PromptVersion     string     `db:"prompt_version"`
	Timestamp         time.Time  `db:"timestamp"`
}

// NewLogRepository creates a new log repository
func NewLogRepository(database *sqlx.DB) *LogRepository {
	return &LogRepository{db: database}
}

// Append stores one batch outcome record
func (r *LogRepository) Append(ctx context.Context, record *domain.ProcessingLog) error {
	query := `
		INSERT INTO processing_logs (
			success, articles_processed, briefs_generated, errors,
			processing_ms, tokens, cost, model, prompt_version, timestamp
		) VALUES (
			:success, :articles_processed, :briefs_generated, :errors,
			:processing_ms, :tokens, :cost, :model, :prompt_version, :timestamp
		)
	`
	entry := &logSQL{
		Success:           record.Success,
		ArticlesProcessed: record.ArticlesProcessed,
		BriefsGenerated:   record.BriefsGenerated,
		Errors:            stringsSQL(record.Errors),
		ProcessingMS:      record.ProcessingMS,
		Tokens:            record.Tokens,
		Cost:              record.Cost,
		Model:             record.Model,
		PromptVersion:     record.PromptVersion,
		Timestamp:         record.Timestamp,
	}

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	return retrier.Do(ctx, func() error {
		res, err := r.db.NamedExecContext(ctx, query, entry)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("append processing log: %w", err)}
		}
		if id, err := res.LastInsertId(); err == nil {
			record.ID = id
		}
		return nil
	})
}

// Recent returns the latest n log entries, newest first
func (r *LogRepository) Recent(ctx context.Context, n int) ([]domain.ProcessingLog, error) {
	if n <= 0 {
		n = 20
	}

	var rows []logSQL
	query := `SELECT id, success, articles_processed, briefs_generated, errors,
		processing_ms, tokens, cost, model, prompt_version, timestamp
		FROM processing_logs ORDER BY id DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &rows, query, n); err != nil {
		return nil, fmt.Errorf("recent logs: %w", err)
	}

	logs := make([]domain.ProcessingLog, len(rows))
	for i, l := range rows {
		logs[i] = domain.ProcessingLog{
			ID:                l.ID,
			Success:           l.Success,
			ArticlesProcessed: l.ArticlesProcessed,
			BriefsGenerated:   l.BriefsGenerated,
			Errors:            l.Errors,
			ProcessingMS:      l.ProcessingMS,
			Tokens:            l.Tokens,
			Cost:              l.Cost,
			Model:             l.Model,
			PromptVersion:     l.PromptVersion,
			Timestamp:         l.Timestamp,
		}
	}
	return logs, nil
}
