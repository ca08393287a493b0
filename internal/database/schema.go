package database

import (
	"context"
	"fmt"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT 'en',
		level TEXT NOT NULL DEFAULT 'A1',
		xp INTEGER NOT NULL DEFAULT 0,
		xp_target INTEGER NOT NULL DEFAULT 2000,
		total_xp INTEGER NOT NULL DEFAULT 0,
		daily_xp INTEGER NOT NULL DEFAULT 0,
		daily_goal INTEGER NOT NULL DEFAULT 50,
		streak_days INTEGER NOT NULL DEFAULT 0,
		last_active TIMESTAMP NOT NULL,
		notifications_enabled BOOLEAN NOT NULL DEFAULT 1,
		total_minutes INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vocabulary (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		word TEXT NOT NULL,
		translation TEXT NOT NULL,
		example TEXT NOT NULL DEFAULT '',
		level TEXT NOT NULL DEFAULT 'A1',
		learned BOOLEAN NOT NULL DEFAULT 0,
		review_count INTEGER NOT NULL DEFAULT 0,
		next_review TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vocabulary_due ON vocabulary(user_id, next_review)`,
	`CREATE TABLE IF NOT EXISTS achievements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		achievement_key TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		earned_at TIMESTAMP NOT NULL,
		UNIQUE(user_id, achievement_key)
	)`,
	`CREATE TABLE IF NOT EXISTS leaderboard (
		user_id INTEGER PRIMARY KEY REFERENCES users(id),
		username TEXT NOT NULL DEFAULT '',
		total_xp INTEGER NOT NULL DEFAULT 0,
		level TEXT NOT NULL DEFAULT 'A1',
		rank INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS grammar_progress (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		topic TEXT NOT NULL,
		score REAL NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_practiced TIMESTAMP NOT NULL,
		UNIQUE(user_id, topic)
	)`,
	`CREATE TABLE IF NOT EXISTS activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		activity_type TEXT NOT NULL,
		score REAL,
		completed_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_user ON activities(user_id, activity_type)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT 'en',
		level TEXT NOT NULL DEFAULT 'A1',
		xp INTEGER NOT NULL DEFAULT 0,
		xp_target INTEGER NOT NULL DEFAULT 2000,
		total_xp INTEGER NOT NULL DEFAULT 0,
		daily_xp INTEGER NOT NULL DEFAULT 0,
		daily_goal INTEGER NOT NULL DEFAULT 50,
		streak_days INTEGER NOT NULL DEFAULT 0,
		last_active TIMESTAMPTZ NOT NULL,
		notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		total_minutes INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vocabulary (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		word TEXT NOT NULL,
		translation TEXT NOT NULL,
		example TEXT NOT NULL DEFAULT '',
		level TEXT NOT NULL DEFAULT 'A1',
		learned BOOLEAN NOT NULL DEFAULT FALSE,
		review_count INTEGER NOT NULL DEFAULT 0,
		next_review TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vocabulary_due ON vocabulary(user_id, next_review)`,
	`CREATE TABLE IF NOT EXISTS achievements (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		achievement_key TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		earned_at TIMESTAMPTZ NOT NULL,
		UNIQUE(user_id, achievement_key)
	)`,
	`CREATE TABLE IF NOT EXISTS leaderboard (
		user_id BIGINT PRIMARY KEY REFERENCES users(id),
		username TEXT NOT NULL DEFAULT '',
		total_xp INTEGER NOT NULL DEFAULT 0,
		level TEXT NOT NULL DEFAULT 'A1',
		rank INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS grammar_progress (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		topic TEXT NOT NULL,
		score DOUBLE PRECISION NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_practiced TIMESTAMPTZ NOT NULL,
		UNIQUE(user_id, topic)
	)`,
	`CREATE TABLE IF NOT EXISTS activities (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		activity_type TEXT NOT NULL,
		score DOUBLE PRECISION,
		completed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_user ON activities(user_id, activity_type)`,
}

// migrate creates necessary tables if they don't exist
func (s *Store) migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if s.db.DriverName() == driverPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
