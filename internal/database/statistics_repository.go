package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/langbot/pkg/models"
)

// StatisticsRepository handles database operations for the activity log
type StatisticsRepository struct {
	db sqlx.ExtContext
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db sqlx.ExtContext) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// CreateActivity inserts a completed activity
func (r *StatisticsRepository) CreateActivity(ctx context.Context, a *models.Activity) error {
	query := `
		INSERT INTO activities (user_id, activity_type, score, completed_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`
	err := sqlx.GetContext(ctx, r.db, &a.ID, r.db.Rebind(query),
		a.UserID, a.ActivityType, a.Score, ts(a.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// ActivityStats aggregates the user's activities by type.
// Activities without a score do not count towards the average.
func (r *StatisticsRepository) ActivityStats(ctx context.Context, userID int64) ([]models.ActivityStat, error) {
	query := `
		SELECT activity_type, COUNT(*) AS count, COALESCE(AVG(score), 0) AS average_score
		FROM activities
		WHERE user_id = ?
		GROUP BY activity_type
		ORDER BY activity_type`
	var stats []models.ActivityStat
	if err := sqlx.SelectContext(ctx, r.db, &stats, r.db.Rebind(query), userID); err != nil {
		return nil, fmt.Errorf("failed to get activity statistics: %w", err)
	}
	return stats, nil
}

// DeleteUserActivities removes the user's activity log
func (r *StatisticsRepository) DeleteUserActivities(ctx context.Context, userID int64) (int, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM activities WHERE user_id = ?"), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete activities: %w", err)
	}
	return rowsAffected(res)
}
