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

// LeaderboardRepository handles database operations for leaderboard entries
type LeaderboardRepository struct {
	db sqlx.ExtContext
}

// NewLeaderboardRepository creates a new repository instance
func NewLeaderboardRepository(db sqlx.ExtContext) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// UpsertLeaderboardEntry inserts the entry or refreshes its projection.
// The stored rank is kept on update.
func (r *LeaderboardRepository) UpsertLeaderboardEntry(ctx context.Context, e *models.LeaderboardEntry) error {
	query := `
		INSERT INTO leaderboard (user_id, username, total_xp, level, rank, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			total_xp = excluded.total_xp,
			level = excluded.level,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		e.UserID, e.Username, e.TotalXP, e.Level, e.Rank, ts(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert leaderboard entry: %w", err)
	}
	return nil
}

// ListLeaderboardEntries returns all entries
func (r *LeaderboardRepository) ListLeaderboardEntries(ctx context.Context) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	if err := sqlx.SelectContext(ctx, r.db, &entries, "SELECT * FROM leaderboard ORDER BY user_id"); err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return entries, nil
}

// UpdateLeaderboardRank sets the rank of one entry
func (r *LeaderboardRepository) UpdateLeaderboardRank(ctx context.Context, userID int64, rank int) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind("UPDATE leaderboard SET rank = ? WHERE user_id = ?"), rank, userID)
	if err != nil {
		return fmt.Errorf("failed to update rank: %w", err)
	}
	return nil
}

// TopLeaderboard returns the best entries first; limit <= 0 returns all
func (r *LeaderboardRepository) TopLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	query := "SELECT * FROM leaderboard ORDER BY total_xp DESC, user_id ASC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var entries []models.LeaderboardEntry
	if err := sqlx.SelectContext(ctx, r.db, &entries, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get top leaderboard: %w", err)
	}
	return entries, nil
}

// GetLeaderboardEntry returns the entry of one user
func (r *LeaderboardRepository) GetLeaderboardEntry(ctx context.Context, userID int64) (*models.LeaderboardEntry, error) {
	var e models.LeaderboardEntry
	err := sqlx.GetContext(ctx, r.db, &e, r.db.Rebind("SELECT * FROM leaderboard WHERE user_id = ?"), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, progression.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard entry: %w", err)
	}
	return &e, nil
}
