// Package games scores the mini-games and exercises that are judged outside
// the AI evaluator: word game, listening dictation, speaking duel and spy
// mission.
package games

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/example/langbot/internal/logger"
	"github.com/example/langbot/internal/progression"
)

const (
	DuelRounds        = 3
	PassScore         = 7.0
	ConsolationXP     = 30
	WordGameMissXP    = 5
	ListeningMissXP   = 15
	ListeningMinMatch = 0.6

	duelWinsForBadge         = 10
	missionsCompleteForBadge = 5
)

// Progress is the part of the progression engine games report to
type Progress interface {
	AwardXP(ctx context.Context, userID int64, amount int) (progression.Result, error)
	RecordActivity(ctx context.Context, userID int64, activityType string, score *float64) error
	CountActivities(ctx context.Context, userID int64, activityType string) (int, error)
	CheckAndAward(ctx context.Context, userID int64, key string) (bool, error)
}

// Outcome is what a finished round earned
type Outcome struct {
	Score    float64
	Passed   bool
	XP       int
	Progress progression.Result
}

// Duel tracks the rounds of a speaking duel
type Duel struct {
	Scores []float64
}

// Round is the 1-based number of the round being played
func (d *Duel) Round() int {
	return len(d.Scores) + 1
}

// Record stores a round score and reports whether the duel is over
func (d *Duel) Record(score float64) bool {
	d.Scores = append(d.Scores, score)
	return len(d.Scores) >= DuelRounds
}

// Mean is the average round score, 0 before the first round
func (d *Duel) Mean() float64 {
	if len(d.Scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range d.Scores {
		sum += s
	}
	return sum / float64(len(d.Scores))
}

// Similarity compares two sentences by shared words, ignoring case and
// punctuation. The result is in [0, 1].
func Similarity(answer, expected string) float64 {
	a := wordSet(answer)
	b := wordSet(expected)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	common := 0
	for w := range a {
		if b[w] {
			common++
		}
	}
	return float64(common) / float64(max(len(a), len(b)))
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if w != "" {
			set[strings.ReplaceAll(w, "ё", "е")] = true
		}
	}
	return set
}

// Service awards XP and achievements for game results
type Service struct {
	progress Progress
	rules    progression.Rules
	log      *logger.Logger
}

// NewService creates a new games service
func NewService(progress Progress, rules progression.Rules, log *logger.Logger) *Service {
	return &Service{
		progress: progress,
		rules:    rules,
		log:      log.With("component", "games"),
	}
}

// FinishDuel scores a completed duel by its mean round score
func (s *Service) FinishDuel(ctx context.Context, userID int64, duel *Duel) (*Outcome, error) {
	out := s.judge(duel.Mean(), progression.RewardSpeakingDuelWin)
	return out, s.settle(ctx, userID, out, progression.ActivityDuel, progression.ActivityDuelWin,
		"duel_win_10", duelWinsForBadge)
}

// FinishMission scores a spy mission answer
func (s *Service) FinishMission(ctx context.Context, userID int64, score float64) (*Outcome, error) {
	out := s.judge(score, progression.RewardSpyMissionComplete)
	return out, s.settle(ctx, userID, out, progression.ActivityMission, progression.ActivityMissionComplete,
		"mission_complete_5", missionsCompleteForBadge)
}

// AnswerWordGame scores the chosen option of a word game question
func (s *Service) AnswerWordGame(ctx context.Context, userID int64, q *WordQuestion, choice int) (*Outcome, error) {
	out := &Outcome{Passed: q.IsCorrect(choice), XP: WordGameMissXP}
	if out.Passed {
		out.Score = 10
		out.XP = s.rules.Reward(progression.RewardWordGameCorrect)
	}
	return out, s.settle(ctx, userID, out, progression.ActivityWordGame, "", "", 0)
}

// CheckListening compares a dictation answer with the spoken sentence
func (s *Service) CheckListening(ctx context.Context, userID int64, answer, expected string) (*Outcome, error) {
	sim := Similarity(answer, expected)
	out := &Outcome{Score: sim * 10, Passed: sim > ListeningMinMatch, XP: ListeningMissXP}
	if out.Passed {
		out.XP = s.rules.Reward(progression.RewardListeningExercise)
	}
	return out, s.settle(ctx, userID, out, progression.ActivityListening, "", "", 0)
}

func (s *Service) judge(score float64, reward string) *Outcome {
	out := &Outcome{Score: score, Passed: score >= PassScore, XP: ConsolationXP}
	if out.Passed {
		out.XP = s.rules.Reward(reward)
	}
	return out
}

// settle applies XP, logs the activity and, for passed rounds, counts wins
// toward the badge.
func (s *Service) settle(ctx context.Context, userID int64, out *Outcome, activity, winActivity, badge string, badgeAt int) error {
	res, err := s.progress.AwardXP(ctx, userID, out.XP)
	if err != nil {
		return fmt.Errorf("failed to award game XP: %w", err)
	}
	out.Progress = res

	score := out.Score
	if err := s.progress.RecordActivity(ctx, userID, activity, &score); err != nil {
		return err
	}
	if !out.Passed || winActivity == "" {
		return nil
	}

	if err := s.progress.RecordActivity(ctx, userID, winActivity, nil); err != nil {
		return err
	}
	wins, err := s.progress.CountActivities(ctx, userID, winActivity)
	if err != nil {
		return err
	}
	if wins < badgeAt {
		return nil
	}
	awarded, err := s.progress.CheckAndAward(ctx, userID, badge)
	if err != nil {
		return err
	}
	if awarded {
		if def, ok := s.rules.Achievement(badge); ok {
			out.Progress.Achievements = append(out.Progress.Achievements, def)
		}
		s.log.Info("Game achievement unlocked", "user_id", userID, "key", badge)
	}
	return nil
}
