package progression

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/example/langbot/internal/spaced_repetition"
	"github.com/example/langbot/pkg/models"
)

// memStore is an in-memory Store used by the engine tests
type memStore struct {
	mu sync.Mutex
	memState

	failNext error
}

type memState struct {
	users        map[int64]models.User
	vocab        map[int64]models.VocabularyItem
	achievements []models.Achievement
	leaderboard  map[int64]models.LeaderboardEntry
	grammar      []models.GrammarTopicProgress
	activities   []models.Activity
	nextID       int64
}

func newMemStore() *memStore {
	return &memStore{memState: memState{
		users:       map[int64]models.User{},
		vocab:       map[int64]models.VocabularyItem{},
		leaderboard: map[int64]models.LeaderboardEntry{},
	}}
}

func (s memState) clone() memState {
	c := memState{
		users:        make(map[int64]models.User, len(s.users)),
		vocab:        make(map[int64]models.VocabularyItem, len(s.vocab)),
		leaderboard:  make(map[int64]models.LeaderboardEntry, len(s.leaderboard)),
		achievements: append([]models.Achievement(nil), s.achievements...),
		grammar:      append([]models.GrammarTopicProgress(nil), s.grammar...),
		activities:   append([]models.Activity(nil), s.activities...),
		nextID:       s.nextID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.vocab {
		c.vocab[k] = v
	}
	for k, v := range s.leaderboard {
		c.leaderboard[k] = v
	}
	return c
}

func (s *memStore) Do(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	snapshot := s.memState.clone()
	if err := fn(&memTx{s: &s.memState}); err != nil {
		s.memState = snapshot
		return err
	}
	return nil
}

type memTx struct {
	s *memState
}

func (t *memTx) id() int64 {
	t.s.nextID++
	return t.s.nextID
}

func (t *memTx) GetUser(_ context.Context, id int64) (*models.User, error) {
	u, ok := t.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (t *memTx) CreateUser(_ context.Context, u *models.User) error {
	if _, ok := t.s.users[u.ID]; ok {
		return errors.New("duplicate user")
	}
	t.s.users[u.ID] = *u
	return nil
}

func (t *memTx) UpdateUser(_ context.Context, u *models.User) error {
	if _, ok := t.s.users[u.ID]; !ok {
		return ErrNotFound
	}
	t.s.users[u.ID] = *u
	return nil
}

func (t *memTx) sortedUsers(filter func(models.User) bool) []models.User {
	var out []models.User
	for _, u := range t.s.users {
		if filter == nil || filter(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *memTx) ListUsers(context.Context) ([]models.User, error) {
	return t.sortedUsers(nil), nil
}

func (t *memTx) ListUsersWithNotifications(context.Context) ([]models.User, error) {
	return t.sortedUsers(func(u models.User) bool { return u.NotificationsEnabled }), nil
}

func (t *memTx) CreateVocabularyItem(_ context.Context, item *models.VocabularyItem) error {
	item.ID = t.id()
	t.s.vocab[item.ID] = *item
	return nil
}

func (t *memTx) GetVocabularyItem(_ context.Context, id int64) (*models.VocabularyItem, error) {
	item, ok := t.s.vocab[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (t *memTx) UpdateVocabularyItem(_ context.Context, item *models.VocabularyItem) error {
	t.s.vocab[item.ID] = *item
	return nil
}

func (t *memTx) userVocab(userID int64) []models.VocabularyItem {
	var out []models.VocabularyItem
	for _, item := range t.s.vocab {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *memTx) ListDueVocabulary(_ context.Context, userID int64, now time.Time, limit int) ([]models.VocabularyItem, error) {
	return spaced_repetition.DueItems(t.userVocab(userID), now, limit), nil
}

func (t *memTx) ListRecentVocabulary(_ context.Context, userID int64, limit int) ([]models.VocabularyItem, error) {
	items := t.userVocab(userID)
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (t *memTx) CountVocabulary(_ context.Context, userID int64, learnedOnly bool) (int, error) {
	n := 0
	for _, item := range t.userVocab(userID) {
		if !learnedOnly || item.Learned {
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteUserVocabulary(_ context.Context, userID int64) (int, error) {
	n := 0
	for id, item := range t.s.vocab {
		if item.UserID == userID {
			delete(t.s.vocab, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) HasAchievement(_ context.Context, userID int64, key string) (bool, error) {
	for _, a := range t.s.achievements {
		if a.UserID == userID && a.Key == key {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreateAchievement(_ context.Context, a *models.Achievement) error {
	a.ID = t.id()
	t.s.achievements = append(t.s.achievements, *a)
	return nil
}

func (t *memTx) ListAchievements(_ context.Context, userID int64) ([]models.Achievement, error) {
	var out []models.Achievement
	for _, a := range t.s.achievements {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *memTx) DeleteUserAchievements(_ context.Context, userID int64) (int, error) {
	kept := t.s.achievements[:0]
	n := 0
	for _, a := range t.s.achievements {
		if a.UserID == userID {
			n++
			continue
		}
		kept = append(kept, a)
	}
	t.s.achievements = kept
	return n, nil
}

func (t *memTx) UpsertLeaderboardEntry(_ context.Context, e *models.LeaderboardEntry) error {
	if old, ok := t.s.leaderboard[e.UserID]; ok {
		old.Username = e.Username
		old.TotalXP = e.TotalXP
		old.Level = e.Level
		old.UpdatedAt = e.UpdatedAt
		t.s.leaderboard[e.UserID] = old
		return nil
	}
	t.s.leaderboard[e.UserID] = *e
	return nil
}

func (t *memTx) ListLeaderboardEntries(context.Context) ([]models.LeaderboardEntry, error) {
	var out []models.LeaderboardEntry
	for _, e := range t.s.leaderboard {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (t *memTx) UpdateLeaderboardRank(_ context.Context, userID int64, rank int) error {
	e, ok := t.s.leaderboard[userID]
	if !ok {
		return ErrNotFound
	}
	e.Rank = rank
	t.s.leaderboard[userID] = e
	return nil
}

func (t *memTx) TopLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	entries, _ := t.ListLeaderboardEntries(ctx)
	SortLeaderboard(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (t *memTx) GetLeaderboardEntry(_ context.Context, userID int64) (*models.LeaderboardEntry, error) {
	e, ok := t.s.leaderboard[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (t *memTx) GetGrammarProgress(_ context.Context, userID int64, topic string) (*models.GrammarTopicProgress, error) {
	for _, p := range t.s.grammar {
		if p.UserID == userID && p.Topic == topic {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) SaveGrammarProgress(_ context.Context, p *models.GrammarTopicProgress) error {
	for i, old := range t.s.grammar {
		if old.UserID == p.UserID && old.Topic == p.Topic {
			p.ID = old.ID
			t.s.grammar[i] = *p
			return nil
		}
	}
	p.ID = t.id()
	t.s.grammar = append(t.s.grammar, *p)
	return nil
}

func (t *memTx) ListGrammarProgress(_ context.Context, userID int64) ([]models.GrammarTopicProgress, error) {
	var out []models.GrammarTopicProgress
	for _, p := range t.s.grammar {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *memTx) DeleteUserGrammarProgress(_ context.Context, userID int64) (int, error) {
	kept := t.s.grammar[:0]
	n := 0
	for _, p := range t.s.grammar {
		if p.UserID == userID {
			n++
			continue
		}
		kept = append(kept, p)
	}
	t.s.grammar = kept
	return n, nil
}

func (t *memTx) CreateActivity(_ context.Context, a *models.Activity) error {
	a.ID = t.id()
	t.s.activities = append(t.s.activities, *a)
	return nil
}

func (t *memTx) ActivityStats(_ context.Context, userID int64) ([]models.ActivityStat, error) {
	byType := map[string]*models.ActivityStat{}
	sums := map[string]float64{}
	scored := map[string]int{}
	var order []string
	for _, a := range t.s.activities {
		if a.UserID != userID {
			continue
		}
		st, ok := byType[a.ActivityType]
		if !ok {
			st = &models.ActivityStat{ActivityType: a.ActivityType}
			byType[a.ActivityType] = st
			order = append(order, a.ActivityType)
		}
		st.Count++
		if a.Score != nil {
			sums[a.ActivityType] += *a.Score
			scored[a.ActivityType]++
		}
	}
	sort.Strings(order)
	var out []models.ActivityStat
	for _, k := range order {
		st := *byType[k]
		if scored[k] > 0 {
			st.AverageScore = sums[k] / float64(scored[k])
		}
		out = append(out, st)
	}
	return out, nil
}

func (t *memTx) DeleteUserActivities(_ context.Context, userID int64) (int, error) {
	kept := t.s.activities[:0]
	n := 0
	for _, a := range t.s.activities {
		if a.UserID == userID {
			n++
			continue
		}
		kept = append(kept, a)
	}
	t.s.activities = kept
	return n, nil
}
