package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/langbot/internal/progression"
	"github.com/example/langbot/pkg/models"
)

// GrammarRepository handles database operations for grammar topic progress
type GrammarRepository struct {
	db sqlx.ExtContext
}

// NewGrammarRepository creates a new repository instance
func NewGrammarRepository(db sqlx.ExtContext) *GrammarRepository {
	return &GrammarRepository{db: db}
}

// GetGrammarProgress returns the progress of a user on one topic
func (r *GrammarRepository) GetGrammarProgress(ctx context.Context, userID int64, topic string) (*models.GrammarTopicProgress, error) {
	var p models.GrammarTopicProgress
	query := r.db.Rebind("SELECT * FROM grammar_progress WHERE user_id = ? AND topic = ?")
	err := sqlx.GetContext(ctx, r.db, &p, query, userID, topic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, progression.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grammar progress: %w", err)
	}
	return &p, nil
}

// SaveGrammarProgress inserts or updates the (user, topic) row
func (r *GrammarRepository) SaveGrammarProgress(ctx context.Context, p *models.GrammarTopicProgress) error {
	query := `
		INSERT INTO grammar_progress (user_id, topic, score, attempts, last_practiced)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, topic) DO UPDATE SET
			score = excluded.score,
			attempts = excluded.attempts,
			last_practiced = excluded.last_practiced
		RETURNING id`
	err := sqlx.GetContext(ctx, r.db, &p.ID, r.db.Rebind(query),
		p.UserID, p.Topic, p.Score, p.Attempts, ts(p.LastPracticed),
	)
	if err != nil {
		return fmt.Errorf("failed to save grammar progress: %w", err)
	}
	return nil
}

// ListGrammarProgress returns all topics of a user
func (r *GrammarRepository) ListGrammarProgress(ctx context.Context, userID int64) ([]models.GrammarTopicProgress, error) {
	var list []models.GrammarTopicProgress
	query := r.db.Rebind("SELECT * FROM grammar_progress WHERE user_id = ? ORDER BY id")
	if err := sqlx.SelectContext(ctx, r.db, &list, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get grammar progress: %w", err)
	}
	return list, nil
}

// DeleteUserGrammarProgress removes every topic of a user
func (r *GrammarRepository) DeleteUserGrammarProgress(ctx context.Context, userID int64) (int, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM grammar_progress WHERE user_id = ?"), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete grammar progress: %w", err)
	}
	return rowsAffected(res)
}
