package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/langbot/internal/progression"
	"github.com/example/langbot/pkg/models"
)

// VocabularyRepository handles database operations for vocabulary items
type VocabularyRepository struct {
	db sqlx.ExtContext
}

// NewVocabularyRepository creates a new repository instance
func NewVocabularyRepository(db sqlx.ExtContext) *VocabularyRepository {
	return &VocabularyRepository{db: db}
}

// CreateVocabularyItem inserts a new item and sets its ID
func (r *VocabularyRepository) CreateVocabularyItem(ctx context.Context, item *models.VocabularyItem) error {
	query := `
		INSERT INTO vocabulary (user_id, word, translation, example, level, learned, review_count, next_review, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	err := sqlx.GetContext(ctx, r.db, &item.ID, r.db.Rebind(query),
		item.UserID, item.Word, item.Translation, item.Example, item.Level,
		item.Learned, item.ReviewCount, ts(item.NextReview), ts(item.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create vocabulary item: %w", err)
	}
	return nil
}

// GetVocabularyItem returns an item by ID
func (r *VocabularyRepository) GetVocabularyItem(ctx context.Context, id int64) (*models.VocabularyItem, error) {
	var item models.VocabularyItem
	err := sqlx.GetContext(ctx, r.db, &item, r.db.Rebind("SELECT * FROM vocabulary WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, progression.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vocabulary item: %w", err)
	}
	return &item, nil
}

// UpdateVocabularyItem stores the review state of an item
func (r *VocabularyRepository) UpdateVocabularyItem(ctx context.Context, item *models.VocabularyItem) error {
	query := `
		UPDATE vocabulary SET
			word = ?, translation = ?, example = ?, level = ?, learned = ?, review_count = ?, next_review = ?
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		item.Word, item.Translation, item.Example, item.Level, item.Learned,
		item.ReviewCount, ts(item.NextReview), item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update vocabulary item: %w", err)
	}
	return nil
}

// ListDueVocabulary returns items due at now, earliest first
func (r *VocabularyRepository) ListDueVocabulary(ctx context.Context, userID int64, now time.Time, limit int) ([]models.VocabularyItem, error) {
	query := "SELECT * FROM vocabulary WHERE user_id = ? AND next_review <= ? ORDER BY next_review, id"
	args := []interface{}{userID, ts(now)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var items []models.VocabularyItem
	if err := sqlx.SelectContext(ctx, r.db, &items, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get due vocabulary: %w", err)
	}
	return items, nil
}

// ListRecentVocabulary returns the newest items first
func (r *VocabularyRepository) ListRecentVocabulary(ctx context.Context, userID int64, limit int) ([]models.VocabularyItem, error) {
	query := "SELECT * FROM vocabulary WHERE user_id = ? ORDER BY id DESC"
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var items []models.VocabularyItem
	if err := sqlx.SelectContext(ctx, r.db, &items, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get vocabulary: %w", err)
	}
	return items, nil
}

// CountVocabulary counts all or only learned items of a user
func (r *VocabularyRepository) CountVocabulary(ctx context.Context, userID int64, learnedOnly bool) (int, error) {
	query := "SELECT COUNT(*) FROM vocabulary WHERE user_id = ?"
	args := []interface{}{userID}
	if learnedOnly {
		query += " AND learned = ?"
		args = append(args, true)
	}

	var n int
	if err := sqlx.GetContext(ctx, r.db, &n, r.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("failed to count vocabulary: %w", err)
	}
	return n, nil
}

// DeleteUserVocabulary removes every item of a user
func (r *VocabularyRepository) DeleteUserVocabulary(ctx context.Context, userID int64) (int, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM vocabulary WHERE user_id = ?"), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete vocabulary: %w", err)
	}
	return rowsAffected(res)
}
