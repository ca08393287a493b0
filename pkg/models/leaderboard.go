package models

import "time"

// LeaderboardEntry is the ranked projection of a user's progress
type LeaderboardEntry struct {
	UserID    int64     `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	TotalXP   int       `json:"total_xp" db:"total_xp"`
	Level     Level     `json:"level" db:"level"`
	Rank      int       `json:"rank" db:"rank"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
