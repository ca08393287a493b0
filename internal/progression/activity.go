package progression

import (
	"context"
	"fmt"

	"github.com/example/langbot/pkg/models"
)

// Activity types stored in the activity log
const (
	ActivityVocabulary = "vocabulary"
	ActivityFlashcards = "flashcards"
	ActivityGrammar    = "grammar"
	ActivityListening  = "listening"
	ActivityPractice   = "practice"
	ActivityVoice      = "voice"
	ActivityDuel       = "duel"
	ActivityMission    = "mission"
	ActivityWordGame   = "word_game"

	// Logged alongside ActivityDuel/ActivityMission for successful rounds
	ActivityDuelWin         = "duel_win"
	ActivityMissionComplete = "mission_complete"
)

// RecordActivity appends an entry to the activity log. score may be nil.
func (e *Engine) RecordActivity(ctx context.Context, userID int64, activityType string, score *float64) error {
	activity := &models.Activity{
		UserID:       userID,
		ActivityType: activityType,
		Score:        score,
		CompletedAt:  e.now(),
	}
	err := e.store.Do(ctx, func(tx Tx) error {
		return tx.CreateActivity(ctx, activity)
	})
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// ActivitySummary returns per-type counts and average scores
func (e *Engine) ActivitySummary(ctx context.Context, userID int64) ([]models.ActivityStat, error) {
	var stats []models.ActivityStat
	err := e.store.Do(ctx, func(tx Tx) error {
		var err error
		stats, err = tx.ActivityStats(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to summarize activities: %w", err)
	}
	return stats, nil
}

// CountActivities returns how many times the user completed activityType
func (e *Engine) CountActivities(ctx context.Context, userID int64, activityType string) (int, error) {
	stats, err := e.ActivitySummary(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, s := range stats {
		if s.ActivityType == activityType {
			return s.Count, nil
		}
	}
	return 0, nil
}

// AddStudyMinutes adds engaged time to the user's total
func (e *Engine) AddStudyMinutes(ctx context.Context, userID int64, minutes int) error {
	if minutes <= 0 {
		return nil
	}
	return e.updateUser(ctx, userID, func(u *models.User) {
		u.TotalMinutes += minutes
	})
}
