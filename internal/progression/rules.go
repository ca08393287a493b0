package progression

import (
	"strings"

	"github.com/example/langbot/internal/spaced_repetition"
	"github.com/example/langbot/pkg/models"
)

// Reward table keys
const (
	RewardVocabularyAdd      = "vocabulary_add"
	RewardVocabularyReview   = "vocabulary_review"
	RewardFlashcardCorrect   = "flashcard_correct"
	RewardGrammarExercise    = "grammar_exercise"
	RewardListeningExercise  = "listening_exercise"
	RewardPracticeSession    = "practice_session"
	RewardSpeakingDuelWin    = "speaking_duel_win"
	RewardSpyMissionComplete = "spy_mission_complete"
	RewardWordGameCorrect    = "word_game_correct"
	RewardDailyLogin         = "daily_login"
	RewardVoiceMessage       = "voice_message"
)

// AchievementDef describes a catalog entry
type AchievementDef struct {
	Key         string
	Title       string
	Description string
	XP          int
}

type milestone struct {
	count int
	key   string
}

// Rules is the static configuration of the progression engine
type Rules struct {
	Rewards          map[string]int
	Catalog          map[string]AchievementDef
	CatalogOrder     []string
	Intervals        []int
	InitialXPTarget  int
	LevelUpFactor    float64
	DailyGoal        int
	StreakMilestones map[int]string
	WordMilestones   []milestone
}

// DefaultRules returns the production rule set
func DefaultRules() Rules {
	catalog := []AchievementDef{
		{Key: "first_word", Title: "🌟 First Word", Description: "Learn your first word", XP: 10},
		{Key: "word_master_10", Title: "📚 Word Collector", Description: "Learn 10 words", XP: 50},
		{Key: "word_master_50", Title: "📖 Vocabulary Expert", Description: "Learn 50 words", XP: 200},
		{Key: "word_master_100", Title: "🎓 Word Master", Description: "Learn 100 words", XP: 500},
		{Key: "streak_3", Title: "🔥 On Fire", Description: "3 day streak", XP: 30},
		{Key: "streak_7", Title: "⚡ Committed", Description: "7 day streak", XP: 100},
		{Key: "streak_30", Title: "💎 Dedicated", Description: "30 day streak", XP: 500},
		{Key: "level_a2", Title: "📈 Progress", Description: "Reach A2 level", XP: 100},
		{Key: "level_b1", Title: "🎯 Intermediate", Description: "Reach B1 level", XP: 300},
		{Key: "level_b2", Title: "⭐ Advanced", Description: "Reach B2 level", XP: 600},
		{Key: "level_c1", Title: "🏅 Expert", Description: "Reach C1 level", XP: 800},
		{Key: "level_c2", Title: "👑 Mastery", Description: "Reach C2 level", XP: 1000},
		{Key: "duel_win_10", Title: "⚔️ Duelist", Description: "Win 10 duels", XP: 150},
		{Key: "mission_complete_5", Title: "🕵️ Agent", Description: "Complete 5 missions", XP: 200},
	}

	r := Rules{
		Rewards: map[string]int{
			RewardVocabularyAdd:      10,
			RewardVocabularyReview:   5,
			RewardFlashcardCorrect:   5,
			RewardGrammarExercise:    20,
			RewardListeningExercise:  30,
			RewardPracticeSession:    25,
			RewardSpeakingDuelWin:    50,
			RewardSpyMissionComplete: 50,
			RewardWordGameCorrect:    15,
			RewardDailyLogin:         10,
			RewardVoiceMessage:       20,
		},
		Catalog:         make(map[string]AchievementDef, len(catalog)),
		Intervals:       spaced_repetition.DefaultIntervals,
		InitialXPTarget: 2000,
		LevelUpFactor:   1.5,
		DailyGoal:       50,
		StreakMilestones: map[int]string{
			3:  "streak_3",
			7:  "streak_7",
			30: "streak_30",
		},
		WordMilestones: []milestone{
			{count: 1, key: "first_word"},
			{count: 10, key: "word_master_10"},
			{count: 50, key: "word_master_50"},
			{count: 100, key: "word_master_100"},
		},
	}
	for _, def := range catalog {
		r.Catalog[def.Key] = def
		r.CatalogOrder = append(r.CatalogOrder, def.Key)
	}
	return r
}

// Reward returns the XP granted for an activity, zero for unknown activities
func (r Rules) Reward(activity string) int {
	return r.Rewards[activity]
}

// Achievement looks up a catalog entry
func (r Rules) Achievement(key string) (AchievementDef, bool) {
	def, ok := r.Catalog[key]
	return def, ok
}

// LevelAchievementKey is the catalog key awarded when a level is reached
func LevelAchievementKey(level models.Level) string {
	return "level_" + strings.ToLower(string(level))
}
