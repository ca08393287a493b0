package models

import "time"

// VocabularyItem represents a word in a user's personal vocabulary
type VocabularyItem struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	Word        string    `json:"word" db:"word"`
	Translation string    `json:"translation" db:"translation"`
	Example     string    `json:"example" db:"example"`
	Level       Level     `json:"level" db:"level"`
	Learned     bool      `json:"learned" db:"learned"`
	ReviewCount int       `json:"review_count" db:"review_count"`
	NextReview  time.Time `json:"next_review" db:"next_review"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
