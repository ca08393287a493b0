package models

import "time"

// GrammarTopicProgress tracks a user's average score on a grammar topic
type GrammarTopicProgress struct {
	ID            int64     `json:"id" db:"id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	Topic         string    `json:"topic" db:"topic"`
	Score         float64   `json:"score" db:"score"` // Mean of all attempt scores, 0-10
	Attempts      int       `json:"attempts" db:"attempts"`
	LastPracticed time.Time `json:"last_practiced" db:"last_practiced"`
}
