package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/langbot/pkg/models"
)

// AchievementRepository handles database operations for earned achievements
type AchievementRepository struct {
	db sqlx.ExtContext
}

// NewAchievementRepository creates a new repository instance
func NewAchievementRepository(db sqlx.ExtContext) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// HasAchievement reports whether the user already holds key
func (r *AchievementRepository) HasAchievement(ctx context.Context, userID int64, key string) (bool, error) {
	var n int
	query := r.db.Rebind("SELECT COUNT(*) FROM achievements WHERE user_id = ? AND achievement_key = ?")
	if err := sqlx.GetContext(ctx, r.db, &n, query, userID, key); err != nil {
		return false, fmt.Errorf("failed to check achievement: %w", err)
	}
	return n > 0, nil
}

// CreateAchievement inserts an earned achievement
func (r *AchievementRepository) CreateAchievement(ctx context.Context, a *models.Achievement) error {
	query := `
		INSERT INTO achievements (user_id, achievement_key, title, description, earned_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`
	err := sqlx.GetContext(ctx, r.db, &a.ID, r.db.Rebind(query),
		a.UserID, a.Key, a.Title, a.Description, ts(a.EarnedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create achievement: %w", err)
	}
	return nil
}

// ListAchievements returns the user's achievements in the order earned
func (r *AchievementRepository) ListAchievements(ctx context.Context, userID int64) ([]models.Achievement, error) {
	var list []models.Achievement
	query := r.db.Rebind("SELECT * FROM achievements WHERE user_id = ? ORDER BY earned_at, id")
	if err := sqlx.SelectContext(ctx, r.db, &list, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	return list, nil
}

// DeleteUserAchievements removes every achievement of a user
func (r *AchievementRepository) DeleteUserAchievements(ctx context.Context, userID int64) (int, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM achievements WHERE user_id = ?"), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete achievements: %w", err)
	}
	return rowsAffected(res)
}
