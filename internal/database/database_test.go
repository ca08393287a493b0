package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/langbot/internal/clock"
	"github.com/example/langbot/internal/logger"
	"github.com/example/langbot/internal/progression"
	"github.com/example/langbot/pkg/models"
)

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(driverSQLite, ":memory:", logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		in     string
		driver string
		dsn    string
	}{
		{"", driverSQLite, defaultSQLitePath},
		{"sqlite:///russian_learner.db", driverSQLite, "russian_learner.db"},
		{"sqlite://data/bot.db", driverSQLite, "data/bot.db"},
		{":memory:", driverSQLite, ":memory:"},
		{"postgres://u:p@localhost/bot", driverPostgres, "postgres://u:p@localhost/bot"},
		{"postgresql://localhost/bot", driverPostgres, "postgresql://localhost/bot"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			driver, dsn := ParseURL(tt.in)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}

func TestStore_DoRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Do(ctx, func(tx progression.Tx) error {
		require.NoError(t, tx.CreateUser(ctx, &models.User{ID: 1, Level: models.LevelA1, LastActive: t0, CreatedAt: t0, UpdatedAt: t0}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.Do(ctx, func(tx progression.Tx) error {
		_, err := tx.GetUser(ctx, 1)
		return err
	})
	assert.ErrorIs(t, err, progression.ErrNotFound)
}

func TestUserRepository(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Do(ctx, func(tx progression.Tx) error {
		u := &models.User{
			ID: 7, Username: "ivan", Language: "ru", Level: models.LevelB1,
			XP: 5, XPTarget: 4500, TotalXP: 5005, DailyGoal: 50, StreakDays: 3,
			LastActive: t0.Add(123 * time.Millisecond), NotificationsEnabled: true,
			CreatedAt: t0, UpdatedAt: t0,
		}
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, &models.User{ID: 8, Level: models.LevelA1, LastActive: t0, CreatedAt: t0, UpdatedAt: t0}); err != nil {
			return err
		}

		got, err := tx.GetUser(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "ivan", got.Username)
		assert.Equal(t, models.LevelB1, got.Level)
		assert.Equal(t, 5005, got.TotalXP)
		assert.True(t, got.NotificationsEnabled)
		assert.True(t, got.LastActive.Equal(t0), "timestamps are truncated to seconds")

		got.StreakDays = 4
		require.NoError(t, tx.UpdateUser(ctx, got))

		all, err := tx.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, 4, all[0].StreakDays)

		notified, err := tx.ListUsersWithNotifications(ctx)
		require.NoError(t, err)
		require.Len(t, notified, 1)
		assert.Equal(t, int64(7), notified[0].ID)

		assert.ErrorIs(t, tx.UpdateUser(ctx, &models.User{ID: 99}), progression.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestVocabularyRepository(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Do(ctx, func(tx progression.Tx) error {
		require.NoError(t, tx.CreateUser(ctx, &models.User{ID: 1, Level: models.LevelA1, LastActive: t0, CreatedAt: t0, UpdatedAt: t0}))

		late := &models.VocabularyItem{UserID: 1, Word: "кот", Translation: "cat", Level: models.LevelA1, NextReview: t0.Add(time.Hour), CreatedAt: t0}
		early := &models.VocabularyItem{UserID: 1, Word: "дом", Translation: "house", Level: models.LevelA1, NextReview: t0.Add(-time.Hour), CreatedAt: t0}
		future := &models.VocabularyItem{UserID: 1, Word: "лес", Translation: "forest", Level: models.LevelA2, NextReview: t0.AddDate(0, 0, 3), CreatedAt: t0, Learned: true}
		for _, item := range []*models.VocabularyItem{late, early, future} {
			require.NoError(t, tx.CreateVocabularyItem(ctx, item))
			assert.NotZero(t, item.ID)
		}

		due, err := tx.ListDueVocabulary(ctx, 1, t0.Add(2*time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, early.ID, due[0].ID)
		assert.Equal(t, late.ID, due[1].ID)

		due, err = tx.ListDueVocabulary(ctx, 1, t0.Add(2*time.Hour), 1)
		require.NoError(t, err)
		assert.Len(t, due, 1)

		early.Learned = true
		early.ReviewCount = 1
		early.NextReview = t0.AddDate(0, 0, 1)
		require.NoError(t, tx.UpdateVocabularyItem(ctx, early))
		got, err := tx.GetVocabularyItem(ctx, early.ID)
		require.NoError(t, err)
		assert.True(t, got.Learned)
		assert.Equal(t, 1, got.ReviewCount)
		assert.True(t, got.NextReview.Equal(t0.AddDate(0, 0, 1)))

		total, err := tx.CountVocabulary(ctx, 1, false)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		learned, err := tx.CountVocabulary(ctx, 1, true)
		require.NoError(t, err)
		assert.Equal(t, 2, learned)

		recent, err := tx.ListRecentVocabulary(ctx, 1, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, future.ID, recent[0].ID)

		_, err = tx.GetVocabularyItem(ctx, 999)
		assert.ErrorIs(t, err, progression.ErrNotFound)

		n, err := tx.DeleteUserVocabulary(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		return nil
	})
	require.NoError(t, err)
}

func TestLeaderboardAndGrammar(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Do(ctx, func(tx progression.Tx) error {
		for _, id := range []int64{1, 2} {
			require.NoError(t, tx.CreateUser(ctx, &models.User{ID: id, Level: models.LevelA1, LastActive: t0, CreatedAt: t0, UpdatedAt: t0}))
		}
		require.NoError(t, tx.UpsertLeaderboardEntry(ctx, &models.LeaderboardEntry{UserID: 1, Username: "a", TotalXP: 10, Level: models.LevelA1, Rank: 2, UpdatedAt: t0}))
		require.NoError(t, tx.UpsertLeaderboardEntry(ctx, &models.LeaderboardEntry{UserID: 2, Username: "b", TotalXP: 20, Level: models.LevelA1, Rank: 1, UpdatedAt: t0}))
		require.NoError(t, tx.UpsertLeaderboardEntry(ctx, &models.LeaderboardEntry{UserID: 1, Username: "a2", TotalXP: 30, Level: models.LevelA1, UpdatedAt: t0}))

		e, err := tx.GetLeaderboardEntry(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "a2", e.Username)
		assert.Equal(t, 30, e.TotalXP)
		assert.Equal(t, 2, e.Rank, "upsert keeps the stored rank")

		top, err := tx.TopLeaderboard(ctx, 1)
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, int64(1), top[0].UserID)

		require.NoError(t, tx.UpdateLeaderboardRank(ctx, 1, 1))
		all, err := tx.ListLeaderboardEntries(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		_, err = tx.GetLeaderboardEntry(ctx, 5)
		assert.ErrorIs(t, err, progression.ErrNotFound)

		p := &models.GrammarTopicProgress{UserID: 1, Topic: "cases", Score: 6, Attempts: 1, LastPracticed: t0}
		require.NoError(t, tx.SaveGrammarProgress(ctx, p))
		firstID := p.ID
		p.Score, p.Attempts = 7, 2
		require.NoError(t, tx.SaveGrammarProgress(ctx, p))
		assert.Equal(t, firstID, p.ID)

		got, err := tx.GetGrammarProgress(ctx, 1, "cases")
		require.NoError(t, err)
		assert.Equal(t, 7.0, got.Score)
		assert.Equal(t, 2, got.Attempts)

		_, err = tx.GetGrammarProgress(ctx, 1, "verbs")
		assert.ErrorIs(t, err, progression.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestStatisticsRepository(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	score := func(v float64) *float64 { return &v }

	err := s.Do(ctx, func(tx progression.Tx) error {
		require.NoError(t, tx.CreateUser(ctx, &models.User{ID: 1, Level: models.LevelA1, LastActive: t0, CreatedAt: t0, UpdatedAt: t0}))
		for _, a := range []*models.Activity{
			{UserID: 1, ActivityType: "grammar", Score: score(6), CompletedAt: t0},
			{UserID: 1, ActivityType: "grammar", Score: score(9), CompletedAt: t0},
			{UserID: 1, ActivityType: "flashcards", CompletedAt: t0},
		} {
			require.NoError(t, tx.CreateActivity(ctx, a))
		}

		stats, err := tx.ActivityStats(ctx, 1)
		require.NoError(t, err)
		require.Len(t, stats, 2)
		assert.Equal(t, "flashcards", stats[0].ActivityType)
		assert.Equal(t, 1, stats[0].Count)
		assert.Equal(t, 0.0, stats[0].AverageScore)
		assert.Equal(t, 2, stats[1].Count)
		assert.InDelta(t, 7.5, stats[1].AverageScore, 1e-9)

		n, err := tx.DeleteUserActivities(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		return nil
	})
	require.NoError(t, err)
}

// TestEngineOnSQLite runs the progression flow against the real schema
func TestEngineOnSQLite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	clk := &clock.Fixed{T: t0}
	e := progression.NewEngine(s, clk, progression.DefaultRules(), logger.Nop())

	for _, id := range []int64{1, 2} {
		_, err := e.GetOrCreateUser(ctx, id, "")
		require.NoError(t, err)
	}

	item, _, err := e.AddVocabularyItem(ctx, 1, "дом", "house", "", models.LevelA1)
	require.NoError(t, err)

	reviewed, res, err := e.MarkReviewed(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, reviewed.NextReview.Equal(t0.AddDate(0, 0, 1)))
	require.Len(t, res.Achievements, 1)

	_, err = e.AwardXP(ctx, 2, 2000)
	require.NoError(t, err)

	u, err := e.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.LevelA2, u.Level)
	assert.Equal(t, 3000, u.XPTarget)

	rank, err := e.GetRank(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, rank.Rank)
	rank, err = e.GetRank(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, rank.Rank)

	clk.Advance(24 * time.Hour)
	_, err = e.UpdateStreak(ctx, 1)
	require.NoError(t, err)
	due, err := e.GetDueReviews(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, due, 1)

	sum, err := e.ResetProgress(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Achievements)
}
