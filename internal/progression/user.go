package progression

import (
	"context"
	"fmt"

	"github.com/example/langbot/internal/clock"
	"github.com/example/langbot/pkg/models"
)

// DefaultLanguage is the UI language of new users
const DefaultLanguage = "en"

// GetOrCreateUser returns the user, creating and ranking it on first contact.
// A non-empty username replaces a stale stored one.
func (e *Engine) GetOrCreateUser(ctx context.Context, userID int64, username string) (*models.User, error) {
	e.rankMu.Lock()
	defer e.rankMu.Unlock()

	now := e.now()
	var user *models.User
	err := e.store.Do(ctx, func(tx Tx) error {
		u, err := tx.GetUser(ctx, userID)
		if err == nil {
			if username != "" && u.Username != username {
				u.Username = username
				u.UpdatedAt = now
				if err := tx.UpdateUser(ctx, u); err != nil {
					return err
				}
				if err := tx.UpsertLeaderboardEntry(ctx, entryFor(u, now)); err != nil {
					return err
				}
			}
			user = u
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		u = &models.User{
			ID:                   userID,
			Username:             username,
			Language:             DefaultLanguage,
			Level:                models.LevelA1,
			XPTarget:             e.rules.InitialXPTarget,
			DailyGoal:            e.rules.DailyGoal,
			LastActive:           now,
			NotificationsEnabled: true,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		if err := e.refreshUserRank(ctx, tx, u, now); err != nil {
			return err
		}
		e.log.Info("New user", "user_id", userID, "username", username)
		user = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}
	return user, nil
}

// GetUser returns the user or nil when unknown
func (e *Engine) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var user *models.User
	err := e.store.Do(ctx, func(tx Tx) error {
		var err error
		user, err = tx.GetUser(ctx, userID)
		return err
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (e *Engine) updateUser(ctx context.Context, userID int64, mutate func(u *models.User)) error {
	now := e.now()
	err := e.store.Do(ctx, func(tx Tx) error {
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		mutate(u)
		u.UpdatedAt = now
		return tx.UpdateUser(ctx, u)
	})
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// SetLanguage changes the UI language
func (e *Engine) SetLanguage(ctx context.Context, userID int64, language string) error {
	return e.updateUser(ctx, userID, func(u *models.User) {
		u.Language = language
	})
}

// SetNotifications toggles daily reminders
func (e *Engine) SetNotifications(ctx context.Context, userID int64, enabled bool) error {
	return e.updateUser(ctx, userID, func(u *models.User) {
		u.NotificationsEnabled = enabled
	})
}

// UsersForReminder returns opted-in users who have not been active today
func (e *Engine) UsersForReminder(ctx context.Context) ([]models.User, error) {
	now := e.now()
	var users []models.User
	err := e.store.Do(ctx, func(tx Tx) error {
		var err error
		users, err = tx.ListUsersWithNotifications(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users for reminder: %w", err)
	}

	var idle []models.User
	for _, u := range users {
		if clock.DaysBetween(u.LastActive, now, now.Location()) > 0 {
			idle = append(idle, u)
		}
	}
	return idle, nil
}
