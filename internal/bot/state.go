package bot

import (
	"sync"
	"time"

	"github.com/example/langbot/internal/ai"
	"github.com/example/langbot/internal/games"
	"github.com/example/langbot/pkg/models"
)

// Conversation states
const (
	stateFlashcards = "flashcards"
	stateGrammar    = "grammar"
	stateListening  = "listening"
	statePractice   = "practice"
	stateDuel       = "duel"
	stateMission    = "mission"
	stateWordGame   = "word_game"
	stateImport     = "import"
)

// UserState represents the current state of user interaction
type UserState struct {
	Action  string
	Started time.Time

	Answer   string // expected grammar answer or listening sentence
	Topic    string
	Cards    []models.VocabularyItem
	Card     int
	CardBack bool
	Known    int
	Duel     *games.Duel
	Question *games.WordQuestion
	Mission  *ai.Mission
}

type stateStore struct {
	mu     sync.Mutex
	states map[int64]*UserState
}

func newStateStore() *stateStore {
	return &stateStore{states: make(map[int64]*UserState)}
}

// Get returns the state of the user or nil
func (s *stateStore) Get(userID int64) *UserState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[userID]
}

// Set replaces the state of the user
func (s *stateStore) Set(userID int64, st *UserState) {
	if st.Started.IsZero() {
		st.Started = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = st
}

func (s *stateStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}

// in reports whether the user is in the given state
func (s *stateStore) in(userID int64, action string) (*UserState, bool) {
	st := s.Get(userID)
	if st == nil || st.Action != action {
		return nil, false
	}
	return st, true
}
