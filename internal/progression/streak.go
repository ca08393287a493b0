package progression

import (
	"context"
	"fmt"

	"github.com/example/langbot/internal/clock"
)

// advanceStreak applies the day transition for the session user
func (s *session) advanceStreak() {
	u := s.user
	days := clock.DaysBetween(u.LastActive, s.now, s.now.Location())
	switch {
	case days == 1:
		u.StreakDays++
		if key, ok := s.e.rules.StreakMilestones[u.StreakDays]; ok {
			s.checkAchievement(key)
		}
	case days > 1:
		u.StreakDays = 0
	}
	if days > 0 {
		u.DailyXP = 0
	}
	u.LastActive = s.now
	s.userDirty = true
}

// UpdateStreak records a session start for the user. Calling it several
// times on the same day leaves the streak unchanged.
func (e *Engine) UpdateStreak(ctx context.Context, userID int64) (Result, error) {
	res, err := e.withUser(ctx, userID, func(s *session) error {
		s.advanceStreak()
		return nil
	})
	if isNotFound(err) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to update streak: %w", err)
	}
	return res, nil
}

// CheckIn is UpdateStreak for an interactive session: the first check-in of a
// new day also grants the daily login reward.
func (e *Engine) CheckIn(ctx context.Context, userID int64) (Result, error) {
	res, err := e.withUser(ctx, userID, func(s *session) error {
		newDay := clock.DaysBetween(s.user.LastActive, s.now, s.now.Location()) > 0
		s.advanceStreak()
		if newDay {
			s.awardXP(e.rules.Reward(RewardDailyLogin))
		}
		return nil
	})
	if isNotFound(err) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to check in: %w", err)
	}
	return res, nil
}

// SweepStreaks resets broken streaks and stale daily XP for every user.
// It does not count as activity so last_active is left alone.
func (e *Engine) SweepStreaks(ctx context.Context) (int, error) {
	now := e.now()
	changed := 0
	err := e.store.Do(ctx, func(tx Tx) error {
		users, err := tx.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		for i := range users {
			u := &users[i]
			days := clock.DaysBetween(u.LastActive, now, now.Location())
			dirty := false
			if days > 1 && u.StreakDays != 0 {
				u.StreakDays = 0
				dirty = true
			}
			if days > 0 && u.DailyXP != 0 {
				u.DailyXP = 0
				dirty = true
			}
			if !dirty {
				continue
			}
			u.UpdatedAt = now
			if err := tx.UpdateUser(ctx, u); err != nil {
				return fmt.Errorf("failed to update user %d: %w", u.ID, err)
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sweep streaks: %w", err)
	}
	return changed, nil
}
