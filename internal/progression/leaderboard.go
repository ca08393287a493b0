package progression

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/example/langbot/pkg/models"
)

// SortLeaderboard orders entries by total XP descending; equal totals keep
// the lower user id first.
func SortLeaderboard(entries []models.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalXP != entries[j].TotalXP {
			return entries[i].TotalXP > entries[j].TotalXP
		}
		return entries[i].UserID < entries[j].UserID
	})
}

// refreshUserRank upserts the user's entry and re-ranks everyone.
// The caller must hold rankMu.
func (e *Engine) refreshUserRank(ctx context.Context, tx Tx, u *models.User, now time.Time) error {
	if err := tx.UpsertLeaderboardEntry(ctx, entryFor(u, now)); err != nil {
		return fmt.Errorf("failed to upsert leaderboard entry: %w", err)
	}
	return e.rerank(ctx, tx)
}

func entryFor(u *models.User, now time.Time) *models.LeaderboardEntry {
	return &models.LeaderboardEntry{
		UserID:    u.ID,
		Username:  u.DisplayName(),
		TotalXP:   u.TotalXP,
		Level:     u.Level,
		UpdatedAt: now,
	}
}

func (e *Engine) rerank(ctx context.Context, tx Tx) error {
	entries, err := tx.ListLeaderboardEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list leaderboard: %w", err)
	}
	SortLeaderboard(entries)

	for i, entry := range entries {
		rank := i + 1
		if entry.Rank == rank {
			continue
		}
		if err := tx.UpdateLeaderboardRank(ctx, entry.UserID, rank); err != nil {
			return fmt.Errorf("failed to update rank for user %d: %w", entry.UserID, err)
		}
	}
	return nil
}

// RefreshRanks rebuilds every entry from the user records and re-ranks them
func (e *Engine) RefreshRanks(ctx context.Context) error {
	e.rankMu.Lock()
	defer e.rankMu.Unlock()

	now := e.now()
	err := e.store.Do(ctx, func(tx Tx) error {
		users, err := tx.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		for i := range users {
			if err := tx.UpsertLeaderboardEntry(ctx, entryFor(&users[i], now)); err != nil {
				return fmt.Errorf("failed to upsert leaderboard entry: %w", err)
			}
		}
		return e.rerank(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("failed to refresh ranks: %w", err)
	}
	return nil
}

// GetLeaderboard returns the top limit entries, best first
func (e *Engine) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	err := e.store.Do(ctx, func(tx Tx) error {
		var err error
		entries, err = tx.TopLeaderboard(ctx, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return entries, nil
}

// GetRank returns the user's entry or nil when the user is not ranked
func (e *Engine) GetRank(ctx context.Context, userID int64) (*models.LeaderboardEntry, error) {
	var entry *models.LeaderboardEntry
	err := e.store.Do(ctx, func(tx Tx) error {
		var err error
		entry, err = tx.GetLeaderboardEntry(ctx, userID)
		return err
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rank: %w", err)
	}
	return entry, nil
}
