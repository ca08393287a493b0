package models

import "time"

// Activity records a completed learning exercise
type Activity struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	ActivityType string    `json:"activity_type" db:"activity_type"` // e.g. "grammar", "listening", "word_game"
	Score        *float64  `json:"score,omitempty" db:"score"`
	CompletedAt  time.Time `json:"completed_at" db:"completed_at"`
}

// ActivityStat aggregates activities of one type
type ActivityStat struct {
	ActivityType string  `json:"activity_type" db:"activity_type"`
	Count        int     `json:"count" db:"count"`
	AverageScore float64 `json:"average_score" db:"average_score"`
}
