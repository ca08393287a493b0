package progression

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/langbot/pkg/models"
)

// ErrInvalidTopic is returned for an empty grammar topic
var ErrInvalidTopic = errors.New("grammar topic is required")

const maxGrammarScore = 10

// UpdateGrammarTopic folds score into the running mean for the topic.
// Scores are clamped to 0..10.
func (e *Engine) UpdateGrammarTopic(ctx context.Context, userID int64, topic string, score float64) (*models.GrammarTopicProgress, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrInvalidTopic
	}
	if score < 0 {
		score = 0
	}
	if score > maxGrammarScore {
		score = maxGrammarScore
	}

	now := e.now()
	var progress *models.GrammarTopicProgress
	err := e.store.Do(ctx, func(tx Tx) error {
		p, err := tx.GetGrammarProgress(ctx, userID, topic)
		switch {
		case isNotFound(err):
			p = &models.GrammarTopicProgress{UserID: userID, Topic: topic, Score: score, Attempts: 1}
		case err != nil:
			return err
		default:
			p.Score = (p.Score*float64(p.Attempts) + score) / float64(p.Attempts+1)
			p.Attempts++
		}
		p.LastPracticed = now
		if err := tx.SaveGrammarProgress(ctx, p); err != nil {
			return err
		}
		progress = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update grammar progress: %w", err)
	}
	return progress, nil
}

// GrammarProgress lists the user's topics
func (e *Engine) GrammarProgress(ctx context.Context, userID int64) ([]models.GrammarTopicProgress, error) {
	var list []models.GrammarTopicProgress
	err := e.store.Do(ctx, func(tx Tx) error {
		var err error
		list, err = tx.ListGrammarProgress(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list grammar progress: %w", err)
	}
	return list, nil
}
