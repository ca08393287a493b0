package progression

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/langbot/internal/spaced_repetition"
	"github.com/example/langbot/pkg/models"
)

// ErrInvalidVocabulary is returned when a word or its translation is empty
var ErrInvalidVocabulary = errors.New("word and translation are required")

// AddVocabularyItem stores a new word for the user, due for review immediately.
// An unknown user is a no-op returning nil.
func (e *Engine) AddVocabularyItem(ctx context.Context, userID int64, word, translation, example string, level models.Level) (*models.VocabularyItem, Result, error) {
	word = strings.TrimSpace(word)
	translation = strings.TrimSpace(translation)
	if word == "" || translation == "" {
		return nil, Result{}, ErrInvalidVocabulary
	}

	var item *models.VocabularyItem
	res, err := e.withUser(ctx, userID, func(s *session) error {
		lvl := level
		if !lvl.IsValid() {
			lvl = s.user.Level
		}
		item = &models.VocabularyItem{
			UserID:      userID,
			Word:        word,
			Translation: translation,
			Example:     strings.TrimSpace(example),
			Level:       lvl,
			NextReview:  s.now,
			CreatedAt:   s.now,
		}
		if err := s.tx.CreateVocabularyItem(ctx, item); err != nil {
			return fmt.Errorf("failed to create vocabulary item: %w", err)
		}
		return s.checkWordMilestones(ctx)
	})
	if isNotFound(err) {
		return nil, Result{}, nil
	}
	if err != nil {
		return nil, Result{}, fmt.Errorf("failed to add vocabulary: %w", err)
	}
	return item, res, nil
}

// MarkReviewed reschedules the item after a successful review.
// An unknown item id is a no-op returning nil.
func (e *Engine) MarkReviewed(ctx context.Context, itemID int64) (*models.VocabularyItem, Result, error) {
	var item *models.VocabularyItem
	load := func(tx Tx) (*models.User, error) {
		var err error
		item, err = tx.GetVocabularyItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		return tx.GetUser(ctx, item.UserID)
	}

	res, err := e.runSession(ctx, load, func(s *session) error {
		e.scheduler.Review(item, s.now)
		if err := s.tx.UpdateVocabularyItem(ctx, item); err != nil {
			return fmt.Errorf("failed to update vocabulary item %d: %w", item.ID, err)
		}
		return s.checkWordMilestones(ctx)
	})
	if isNotFound(err) {
		return nil, Result{}, nil
	}
	if err != nil {
		return nil, Result{}, fmt.Errorf("failed to mark reviewed: %w", err)
	}
	return item, res, nil
}

// GetDueReviews returns up to limit items due now, earliest due date first
func (e *Engine) GetDueReviews(ctx context.Context, userID int64, limit int) ([]models.VocabularyItem, error) {
	now := e.now()
	var items []models.VocabularyItem
	err := e.store.Do(ctx, func(tx Tx) error {
		var err error
		items, err = tx.ListDueVocabulary(ctx, userID, now, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get due reviews: %w", err)
	}
	return spaced_repetition.DueItems(items, now, limit), nil
}

// GetVocabularyItem returns one item or nil when it does not exist
func (e *Engine) GetVocabularyItem(ctx context.Context, itemID int64) (*models.VocabularyItem, error) {
	var item *models.VocabularyItem
	err := e.store.Do(ctx, func(tx Tx) error {
		var err error
		item, err = tx.GetVocabularyItem(ctx, itemID)
		return err
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vocabulary item: %w", err)
	}
	return item, nil
}

// ListVocabulary returns the user's most recently added words
func (e *Engine) ListVocabulary(ctx context.Context, userID int64, limit int) ([]models.VocabularyItem, error) {
	var items []models.VocabularyItem
	err := e.store.Do(ctx, func(tx Tx) error {
		var err error
		items, err = tx.ListRecentVocabulary(ctx, userID, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list vocabulary: %w", err)
	}
	return items, nil
}

// CountVocabulary counts the user's words, or only the learned ones
func (e *Engine) CountVocabulary(ctx context.Context, userID int64, learnedOnly bool) (int, error) {
	var n int
	err := e.store.Do(ctx, func(tx Tx) error {
		var err error
		n, err = tx.CountVocabulary(ctx, userID, learnedOnly)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count vocabulary: %w", err)
	}
	return n, nil
}
