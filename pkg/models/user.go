package models

import "time"

// User represents a Telegram user learning with the bot
type User struct {
	ID                   int64     `json:"id" db:"id"` // Telegram User ID
	Username             string    `json:"username" db:"username"`
	Language             string    `json:"language" db:"language"` // UI language: en, ru, uz
	Level                Level     `json:"level" db:"level"`
	XP                   int       `json:"xp" db:"xp"`                 // XP inside the current level
	XPTarget             int       `json:"xp_target" db:"xp_target"`   // XP needed for the next level
	TotalXP              int       `json:"total_xp" db:"total_xp"`     // Lifetime XP, drives the leaderboard
	DailyXP              int       `json:"daily_xp" db:"daily_xp"`     // XP earned since the start of the day
	DailyGoal            int       `json:"daily_goal" db:"daily_goal"` // Daily XP target
	StreakDays           int       `json:"streak_days" db:"streak_days"`
	LastActive           time.Time `json:"last_active" db:"last_active"`
	NotificationsEnabled bool      `json:"notifications_enabled" db:"notifications_enabled"`
	TotalMinutes         int       `json:"total_minutes" db:"total_minutes"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName returns the username or a stable placeholder
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return "User" + itoa(u.ID)
}
