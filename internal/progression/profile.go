package progression

import (
	"context"
	"fmt"

	"github.com/example/langbot/pkg/models"
)

// Profile aggregates everything shown on the profile screen
type Profile struct {
	User         models.User
	TotalWords   int
	LearnedWords int
	Achievements []models.Achievement
	Rank         *models.LeaderboardEntry
	Grammar      []models.GrammarTopicProgress
	Activity     []models.ActivityStat
}

// ResetSummary counts the records removed by ResetProgress
type ResetSummary struct {
	Vocabulary   int
	Achievements int
	Grammar      int
	Activities   int
}

// Profile loads the profile of the user, nil when unknown
func (e *Engine) Profile(ctx context.Context, userID int64) (*Profile, error) {
	p := &Profile{}
	err := e.store.Do(ctx, func(tx Tx) error {
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		p.User = *u

		if p.TotalWords, err = tx.CountVocabulary(ctx, userID, false); err != nil {
			return err
		}
		if p.LearnedWords, err = tx.CountVocabulary(ctx, userID, true); err != nil {
			return err
		}
		if p.Achievements, err = tx.ListAchievements(ctx, userID); err != nil {
			return err
		}
		if p.Grammar, err = tx.ListGrammarProgress(ctx, userID); err != nil {
			return err
		}
		if p.Activity, err = tx.ActivityStats(ctx, userID); err != nil {
			return err
		}
		p.Rank, err = tx.GetLeaderboardEntry(ctx, userID)
		if isNotFound(err) {
			return nil
		}
		return err
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, nil
}

// ResetProgress wipes the user's learning history while keeping the account
// and its settings.
func (e *Engine) ResetProgress(ctx context.Context, userID int64) (ResetSummary, error) {
	e.rankMu.Lock()
	defer e.rankMu.Unlock()

	now := e.now()
	var sum ResetSummary
	err := e.store.Do(ctx, func(tx Tx) error {
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if sum.Vocabulary, err = tx.DeleteUserVocabulary(ctx, userID); err != nil {
			return err
		}
		if sum.Achievements, err = tx.DeleteUserAchievements(ctx, userID); err != nil {
			return err
		}
		if sum.Grammar, err = tx.DeleteUserGrammarProgress(ctx, userID); err != nil {
			return err
		}
		if sum.Activities, err = tx.DeleteUserActivities(ctx, userID); err != nil {
			return err
		}

		u.Level = models.LevelA1
		u.XP = 0
		u.XPTarget = e.rules.InitialXPTarget
		u.TotalXP = 0
		u.DailyXP = 0
		u.StreakDays = 0
		u.TotalMinutes = 0
		u.UpdatedAt = now
		if err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}
		return e.refreshUserRank(ctx, tx, u, now)
	})
	if isNotFound(err) {
		return ResetSummary{}, nil
	}
	if err != nil {
		return ResetSummary{}, fmt.Errorf("failed to reset progress: %w", err)
	}
	e.log.Info("Progress reset", "user_id", userID, "words", sum.Vocabulary, "achievements", sum.Achievements)
	return sum, nil
}
