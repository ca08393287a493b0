package models

import "time"

// Achievement is a one-time badge earned by a user
type Achievement struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	Key         string    `json:"key" db:"achievement_key"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	EarnedAt    time.Time `json:"earned_at" db:"earned_at"`
}
