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

// UserRepository handles database operations for users
type UserRepository struct {
	db sqlx.ExtContext
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db sqlx.ExtContext) *UserRepository {
	return &UserRepository{db: db}
}

// GetUser returns a user by Telegram ID
func (r *UserRepository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := sqlx.GetContext(ctx, r.db, &user, r.db.Rebind("SELECT * FROM users WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, progression.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return &user, nil
}

// CreateUser inserts a new user
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			id, username, language, level, xp, xp_target, total_xp, daily_xp, daily_goal,
			streak_days, last_active, notifications_enabled, total_minutes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		user.ID, user.Username, user.Language, user.Level, user.XP, user.XPTarget, user.TotalXP,
		user.DailyXP, user.DailyGoal, user.StreakDays, ts(user.LastActive), user.NotificationsEnabled,
		user.TotalMinutes, ts(user.CreatedAt), ts(user.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdateUser writes every mutable field of the user
func (r *UserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			username = ?, language = ?, level = ?, xp = ?, xp_target = ?, total_xp = ?,
			daily_xp = ?, daily_goal = ?, streak_days = ?, last_active = ?,
			notifications_enabled = ?, total_minutes = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		user.Username, user.Language, user.Level, user.XP, user.XPTarget, user.TotalXP,
		user.DailyXP, user.DailyGoal, user.StreakDays, ts(user.LastActive),
		user.NotificationsEnabled, user.TotalMinutes, ts(user.UpdatedAt), user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n == 0 {
		return progression.ErrNotFound
	}
	return nil
}

// ListUsers returns all users ordered by ID
func (r *UserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := sqlx.SelectContext(ctx, r.db, &users, "SELECT * FROM users ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

// ListUsersWithNotifications returns users that opted into reminders
func (r *UserRepository) ListUsersWithNotifications(ctx context.Context) ([]models.User, error) {
	var users []models.User
	query := r.db.Rebind("SELECT * FROM users WHERE notifications_enabled = ? ORDER BY id")
	if err := sqlx.SelectContext(ctx, r.db, &users, query, true); err != nil {
		return nil, fmt.Errorf("failed to get users with notifications: %w", err)
	}
	return users, nil
}
