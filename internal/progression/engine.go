// Package progression implements XP, levels, streaks, achievements and the
// leaderboard on top of a transactional record store.
package progression

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/example/langbot/internal/clock"
	"github.com/example/langbot/internal/logger"
	"github.com/example/langbot/internal/metrics"
	"github.com/example/langbot/internal/spaced_repetition"
	"github.com/example/langbot/pkg/models"
)

// maxCascadeSteps bounds the event loop of one operation. The catalog is
// finite and every key is awarded once, so real cascades stop far earlier.
const maxCascadeSteps = 64

// Engine is the façade used by the conversational layer
type Engine struct {
	store     Store
	clock     clock.Clock
	rules     Rules
	scheduler *spaced_repetition.Scheduler
	log       *logger.Logger

	// serialises every unit of work that re-ranks the leaderboard
	rankMu sync.Mutex
}

// NewEngine creates a progression engine
func NewEngine(store Store, clk clock.Clock, rules Rules, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		store:     store,
		clock:     clk,
		rules:     rules,
		scheduler: &spaced_repetition.Scheduler{Intervals: rules.Intervals},
		log:       log.With("component", "progression"),
	}
}

// Rules returns the static rule set the engine was built with
func (e *Engine) Rules() Rules {
	return e.rules
}

// Result describes what a mutating operation changed, for display
type Result struct {
	XPAwarded    int
	LevelUps     []models.Level
	Achievements []AchievementDef
}

// LeveledUp reports whether at least one level was gained
func (r Result) LeveledUp() bool {
	return len(r.LevelUps) > 0
}

// Level returns the last level reached, or "" when nothing changed
func (r Result) Level() models.Level {
	if len(r.LevelUps) == 0 {
		return ""
	}
	return r.LevelUps[len(r.LevelUps)-1]
}

type eventKind int

const (
	eventAwardXP eventKind = iota
	eventCheckAchievement
)

type event struct {
	kind   eventKind
	amount int
	key    string
}

// session is the state of one logical operation against one user
type session struct {
	e      *Engine
	tx     Tx
	user   *models.User
	now    time.Time
	queue  []event
	result Result

	userDirty bool
	xpChanged bool
}

func (e *Engine) newSession(tx Tx, user *models.User) *session {
	return &session{e: e, tx: tx, user: user, now: e.now()}
}

func (e *Engine) now() time.Time {
	return e.clock.Now()
}

func (s *session) awardXP(amount int) {
	s.queue = append(s.queue, event{kind: eventAwardXP, amount: amount})
}

func (s *session) checkAchievement(key string) {
	s.queue = append(s.queue, event{kind: eventCheckAchievement, key: key})
}

// run drains the queue until nothing is pending
func (s *session) run(ctx context.Context) error {
	for steps := 0; len(s.queue) > 0; steps++ {
		if steps >= maxCascadeSteps {
			s.e.log.Warn("Cascade limit reached", "user_id", s.user.ID, "pending", len(s.queue))
			s.queue = nil
			break
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]

		switch ev.kind {
		case eventAwardXP:
			s.applyXP(ev.amount)
		case eventCheckAchievement:
			if _, err := s.grantAchievement(ctx, ev.key); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *session) applyXP(amount int) {
	if amount < 0 {
		amount = 0
	}
	u := s.user
	u.XP += amount
	u.DailyXP += amount
	u.TotalXP += amount
	s.result.XPAwarded += amount
	s.userDirty = true
	s.xpChanged = true

	if u.XP < u.XPTarget {
		return
	}
	next, ok := u.Level.Next()
	if !ok {
		// C2 keeps accumulating
		return
	}
	u.Level = next
	u.XP = 0
	u.XPTarget = int(math.Floor(float64(u.XPTarget) * s.e.rules.LevelUpFactor))
	s.result.LevelUps = append(s.result.LevelUps, next)
	s.checkAchievement(LevelAchievementKey(next))
}

func (s *session) grantAchievement(ctx context.Context, key string) (bool, error) {
	def, ok := s.e.rules.Achievement(key)
	if !ok {
		return false, nil
	}
	has, err := s.tx.HasAchievement(ctx, s.user.ID, key)
	if err != nil {
		return false, fmt.Errorf("failed to check achievement %s: %w", key, err)
	}
	if has {
		return false, nil
	}

	err = s.tx.CreateAchievement(ctx, &models.Achievement{
		UserID:      s.user.ID,
		Key:         def.Key,
		Title:       def.Title,
		Description: def.Description,
		EarnedAt:    s.now,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create achievement %s: %w", key, err)
	}
	s.result.Achievements = append(s.result.Achievements, def)
	s.awardXP(def.XP)
	return true, nil
}

// checkWordMilestones queues every word milestone the learned count has passed
func (s *session) checkWordMilestones(ctx context.Context) error {
	learned, err := s.tx.CountVocabulary(ctx, s.user.ID, true)
	if err != nil {
		return fmt.Errorf("failed to count learned words: %w", err)
	}
	for _, m := range s.e.rules.WordMilestones {
		if learned >= m.count {
			s.checkAchievement(m.key)
		}
	}
	return nil
}

// finish drains pending events and persists the user and leaderboard
func (s *session) finish(ctx context.Context) error {
	if err := s.run(ctx); err != nil {
		return err
	}
	if !s.userDirty {
		return nil
	}
	s.user.UpdatedAt = s.now
	if err := s.tx.UpdateUser(ctx, s.user); err != nil {
		return fmt.Errorf("failed to update user %d: %w", s.user.ID, err)
	}
	if s.xpChanged {
		if err := s.e.refreshUserRank(ctx, s.tx, s.user, s.now); err != nil {
			return err
		}
	}
	return nil
}

// report publishes metrics once the unit of work has committed
func (r Result) report() {
	if r.XPAwarded > 0 {
		metrics.XPAwarded.Add(float64(r.XPAwarded))
	}
	for _, lvl := range r.LevelUps {
		metrics.LevelUps.WithLabelValues(string(lvl)).Inc()
	}
	for _, a := range r.Achievements {
		metrics.AchievementsAwarded.WithLabelValues(a.Key).Inc()
	}
}

// runSession opens one unit of work while holding the leaderboard lock, loads
// the user through load and hands a session to fn. Pending events are drained
// and the user persisted before commit. A missing record yields ErrNotFound.
func (e *Engine) runSession(ctx context.Context, load func(tx Tx) (*models.User, error), fn func(s *session) error) (Result, error) {
	e.rankMu.Lock()
	defer e.rankMu.Unlock()

	var result Result
	err := e.store.Do(ctx, func(tx Tx) error {
		user, err := load(tx)
		if err != nil {
			return err
		}
		s := e.newSession(tx, user)
		if err := fn(s); err != nil {
			return err
		}
		if err := s.finish(ctx); err != nil {
			return err
		}
		result = s.result
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	result.report()
	return result, nil
}

func (e *Engine) withUser(ctx context.Context, userID int64, fn func(s *session) error) (Result, error) {
	return e.runSession(ctx, func(tx Tx) (*models.User, error) {
		return tx.GetUser(ctx, userID)
	}, fn)
}

// AwardXP grants amount XP to the user, levelling up when the target is reached
func (e *Engine) AwardXP(ctx context.Context, userID int64, amount int) (Result, error) {
	res, err := e.withUser(ctx, userID, func(s *session) error {
		s.awardXP(amount)
		return nil
	})
	if isNotFound(err) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to award xp: %w", err)
	}
	if res.LeveledUp() {
		e.log.Info("Level up", "user_id", userID, "level", res.Level())
	}
	return res, nil
}

// AwardActivity grants the reward table value for activity
func (e *Engine) AwardActivity(ctx context.Context, userID int64, activity string) (Result, error) {
	return e.AwardXP(ctx, userID, e.rules.Reward(activity))
}

// CheckAndAward grants the achievement key once; it reports whether it was newly earned
func (e *Engine) CheckAndAward(ctx context.Context, userID int64, key string) (bool, error) {
	var awarded bool
	_, err := e.withUser(ctx, userID, func(s *session) error {
		var err error
		awarded, err = s.grantAchievement(ctx, key)
		return err
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to award achievement: %w", err)
	}
	return awarded, nil
}

// Achievements lists the achievements held by the user
func (e *Engine) Achievements(ctx context.Context, userID int64) ([]models.Achievement, error) {
	var list []models.Achievement
	err := e.store.Do(ctx, func(tx Tx) error {
		var err error
		list, err = tx.ListAchievements(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return list, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
