package progression

import (
	"context"
	"errors"
	"time"

	"github.com/example/langbot/pkg/models"
)

// ErrNotFound is returned by a Tx when the requested record does not exist
var ErrNotFound = errors.New("record not found")

// Store hands out units of work. fn runs inside one transaction which is
// committed when fn returns nil and rolled back otherwise.
type Store interface {
	Do(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the record access available inside a unit of work
type Tx interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
	ListUsersWithNotifications(ctx context.Context) ([]models.User, error)

	CreateVocabularyItem(ctx context.Context, item *models.VocabularyItem) error
	GetVocabularyItem(ctx context.Context, id int64) (*models.VocabularyItem, error)
	UpdateVocabularyItem(ctx context.Context, item *models.VocabularyItem) error
	ListDueVocabulary(ctx context.Context, userID int64, now time.Time, limit int) ([]models.VocabularyItem, error)
	ListRecentVocabulary(ctx context.Context, userID int64, limit int) ([]models.VocabularyItem, error)
	CountVocabulary(ctx context.Context, userID int64, learnedOnly bool) (int, error)
	DeleteUserVocabulary(ctx context.Context, userID int64) (int, error)

	HasAchievement(ctx context.Context, userID int64, key string) (bool, error)
	CreateAchievement(ctx context.Context, achievement *models.Achievement) error
	ListAchievements(ctx context.Context, userID int64) ([]models.Achievement, error)
	DeleteUserAchievements(ctx context.Context, userID int64) (int, error)

	UpsertLeaderboardEntry(ctx context.Context, entry *models.LeaderboardEntry) error
	ListLeaderboardEntries(ctx context.Context) ([]models.LeaderboardEntry, error)
	UpdateLeaderboardRank(ctx context.Context, userID int64, rank int) error
	TopLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	GetLeaderboardEntry(ctx context.Context, userID int64) (*models.LeaderboardEntry, error)

	GetGrammarProgress(ctx context.Context, userID int64, topic string) (*models.GrammarTopicProgress, error)
	SaveGrammarProgress(ctx context.Context, progress *models.GrammarTopicProgress) error
	ListGrammarProgress(ctx context.Context, userID int64) ([]models.GrammarTopicProgress, error)
	DeleteUserGrammarProgress(ctx context.Context, userID int64) (int, error)

	CreateActivity(ctx context.Context, activity *models.Activity) error
	ActivityStats(ctx context.Context, userID int64) ([]models.ActivityStat, error)
	DeleteUserActivities(ctx context.Context, userID int64) (int, error)
}
