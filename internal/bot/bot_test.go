package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/langbot/internal/ai"
	"github.com/example/langbot/internal/clock"
	"github.com/example/langbot/internal/database"
	"github.com/example/langbot/internal/logger"
	"github.com/example/langbot/internal/progression"
	"github.com/example/langbot/internal/ratelimit"
	"github.com/example/langbot/pkg/models"
)

const testUser int64 = 1001

type fakeMessenger struct {
	mu        sync.Mutex
	sent      []tgbotapi.Chattable
	callbacks []tgbotapi.CallbackConfig
}

func (f *fakeMessenger) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeMessenger) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.callbacks = append(f.callbacks, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeMessenger) GetFileDirectURL(fileID string) (string, error) {
	return "https://files.example/" + fileID, nil
}

func (f *fakeMessenger) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeMessenger) StopReceivingUpdates() {}

// texts returns message texts and audio captions in send order
func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.AudioConfig:
			out = append(out, m.Caption)
		}
	}
	return out
}

func (f *fakeMessenger) last() string {
	t := f.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

func (f *fakeMessenger) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.callbacks = nil
}

type fakeSpeech struct {
	transcript string
	download   func(dst string) error
	removed    []string
}

func (s *fakeSpeech) Synthesize(_ context.Context, _, filename string) (string, error) {
	return filepath.Join(os.TempDir(), filename), nil
}

func (s *fakeSpeech) Transcribe(context.Context, string) (string, error) {
	return s.transcript, nil
}

func (s *fakeSpeech) Download(_ context.Context, _, dst string) error {
	if s.download != nil {
		return s.download(dst)
	}
	return nil
}

func (s *fakeSpeech) Remove(path string) {
	s.removed = append(s.removed, path)
}

// fakeTutor fails every call except grammar exercises
type fakeTutor struct {
	exercise *ai.GrammarExercise
}

var errOffline = errors.New("offline")

func (f *fakeTutor) GenerateVocabulary(context.Context, models.Level, string, int, string) ([]ai.Word, error) {
	return nil, errOffline
}

func (f *fakeTutor) EvaluateText(context.Context, string, models.Level, string) (*ai.Evaluation, error) {
	return &ai.Evaluation{GrammarScore: 8, VocabularyScore: 8, Feedback: "Good"}, nil
}

func (f *fakeTutor) GenerateGrammarExercise(context.Context, models.Level, string) (*ai.GrammarExercise, error) {
	if f.exercise == nil {
		return nil, errOffline
	}
	return f.exercise, nil
}

func (f *fakeTutor) GenerateListeningText(context.Context, models.Level) (string, error) {
	return "Я люблю чай.", nil
}

func (f *fakeTutor) GenerateConversationPrompt(context.Context, models.Level, int, string) (string, error) {
	return "Как дела?", nil
}

func (f *fakeTutor) GenerateConversationResponse(context.Context, string, models.Level) (string, error) {
	return "Отлично!", nil
}

func (f *fakeTutor) GenerateSpyMission(context.Context, models.Level, string) (*ai.Mission, error) {
	return nil, errOffline
}

type harness struct {
	bot    *Bot
	api    *fakeMessenger
	speech *fakeSpeech
	engine *progression.Engine
	clock  *clock.Fixed
}

func newHarness(t *testing.T, tutor ai.Generator, limiter ratelimit.Limiter) *harness {
	t.Helper()
	store, err := database.Connect(":memory:", logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clk := &clock.Fixed{T: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	engine := progression.NewEngine(store, clk, progression.DefaultRules(), logger.Nop())
	api := &fakeMessenger{}
	speech := &fakeSpeech{}
	b := New(api, Deps{Engine: engine, Tutor: tutor, Speech: speech, Limiter: limiter},
		Options{AdminIDs: []int64{7}, TempDir: t.TempDir()}, logger.Nop())
	return &harness{bot: b, api: api, speech: speech, engine: engine, clock: clk}
}

func (h *harness) command(cmd string) {
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: testUser, UserName: "tester"},
		Chat:     &tgbotapi.Chat{ID: testUser},
		Text:     "/" + cmd,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd) + 1}},
	}})
}

func (h *harness) text(s string) {
	h.message(&tgbotapi.Message{Text: s})
}

func (h *harness) message(m *tgbotapi.Message) {
	m.From = &tgbotapi.User{ID: testUser, UserName: "tester"}
	m.Chat = &tgbotapi.Chat{ID: testUser}
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: m})
}

func (h *harness) press(data string) {
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: testUser, UserName: "tester"},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testUser}},
		Data:    data,
	}})
}

func (h *harness) user(t *testing.T) *models.User {
	t.Helper()
	u, err := h.engine.GetUser(context.Background(), testUser)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func (h *harness) addWords(t *testing.T, pairs ...string) {
	t.Helper()
	_, err := h.engine.GetOrCreateUser(context.Background(), testUser, "tester")
	require.NoError(t, err)
	for i := 0; i+1 < len(pairs); i += 2 {
		_, _, err := h.engine.AddVocabularyItem(context.Background(), testUser, pairs[i], pairs[i+1], "", models.LevelA1)
		require.NoError(t, err)
	}
}

func TestStartAndLanguage(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.command("start")
	assert.Contains(t, h.api.last(), "Welcome")

	h.press(prefixLanguage + "ru")
	assert.Equal(t, "ru", h.user(t).Language)
	assert.Equal(t, T("ru", "main_menu"), h.api.last())

	h.press(prefixLanguage + "de")
	assert.Equal(t, "ru", h.user(t).Language)
	require.NotEmpty(t, h.api.callbacks)
	assert.Equal(t, "Invalid language!", h.api.callbacks[len(h.api.callbacks)-1].Text)
}

func TestDailyLoginBonus(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.command("menu")
	assert.NotContains(t, strings.Join(h.api.texts(), "\n"), "Daily login bonus")

	h.clock.Advance(24 * time.Hour)
	h.api.reset()
	h.command("menu")
	assert.Contains(t, h.api.texts()[0], "Daily login bonus")

	u := h.user(t)
	assert.Equal(t, 1, u.StreakDays)
	assert.Equal(t, 10, u.TotalXP)
}

func TestAddWordsUsesFallbackVocabulary(t *testing.T) {
	h := newHarness(t, &fakeTutor{}, nil)

	h.press(cbVocabAdd)

	n, err := h.engine.CountVocabulary(context.Background(), testUser, false)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Contains(t, h.api.last(), "дом")
	assert.Equal(t, 10, h.user(t).TotalXP)
}

func TestReviewWithNothingDue(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.press(cbVocabReview)
	require.NotEmpty(t, h.api.callbacks)
	assert.Contains(t, h.api.callbacks[0].Text, "No words to review")
	assert.Empty(t, h.api.texts())
}

func TestGrammarExactAnswer(t *testing.T) {
	tutor := &fakeTutor{exercise: &ai.GrammarExercise{Topic: "accusative", Question: "Я вижу ___ (мама).", Answer: "маму"}}
	h := newHarness(t, tutor, nil)

	h.press(cbGrammar)
	_, ok := h.bot.states.in(testUser, stateGrammar)
	require.True(t, ok)

	h.text("Маму!")
	assert.Nil(t, h.bot.states.Get(testUser))
	assert.Contains(t, h.api.last(), "10/10")

	progress, err := h.engine.GrammarProgress(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, "accusative", progress[0].Topic)
	assert.Equal(t, 10.0, progress[0].Score)
	assert.Equal(t, 20, h.user(t).TotalXP)
	assert.Equal(t, 1, h.user(t).TotalMinutes)
}

func TestGrammarWrongAnswerIsEvaluated(t *testing.T) {
	tutor := &fakeTutor{exercise: &ai.GrammarExercise{Topic: "accusative", Answer: "маму"}}
	h := newHarness(t, tutor, nil)

	h.press(cbGrammar)
	h.text("мама")
	assert.Contains(t, h.api.last(), "8/10")
	assert.Contains(t, h.api.last(), "маму")
}

func TestWordGameCorrectAnswer(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.addWords(t, "дом", "house", "кот", "cat", "вода", "water", "хлеб", "bread")
	before := h.user(t).TotalXP

	h.press(cbWordGame)
	st, ok := h.bot.states.in(testUser, stateWordGame)
	require.True(t, ok)
	require.NotNil(t, st.Question)

	h.press(prefixWordGame + strconv.Itoa(st.Question.CorrectIndex))
	assert.Equal(t, before+15, h.user(t).TotalXP)

	next, ok := h.bot.states.in(testUser, stateWordGame)
	require.True(t, ok)
	assert.NotNil(t, next.Question)
}

func TestWordGameNeedsWords(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.addWords(t, "дом", "house")
	h.press(cbWordGame)
	assert.Contains(t, h.api.last(), "at least 4 words")
}

func TestFlashcardSession(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.addWords(t, "дом", "house")

	h.press(cbFlashcards)
	assert.Contains(t, h.api.last(), "дом")
	h.press(cbFlashcardFlip)
	assert.Contains(t, h.api.last(), "house")

	before := h.user(t).TotalXP
	h.press(cbFlashcardKnow)
	// 5 for the card and 10 for the first learned word
	assert.Equal(t, before+15, h.user(t).TotalXP)
	assert.Contains(t, strings.Join(h.api.texts(), "\n"), "First Word")
	assert.Nil(t, h.bot.states.Get(testUser))
	assert.Contains(t, h.api.last(), "You knew 1 of 1")

	count, err := h.engine.CountActivities(context.Background(), testUser, progression.ActivityFlashcards)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestListeningRound(t *testing.T) {
	h := newHarness(t, &fakeTutor{}, nil)

	h.press(cbListening)
	require.Len(t, h.api.sent, 1)
	_, isAudio := h.api.sent[0].(tgbotapi.AudioConfig)
	assert.True(t, isAudio)
	assert.Len(t, h.speech.removed, 1)

	h.text("я люблю чай")
	assert.Contains(t, h.api.last(), "Excellent")
	assert.Equal(t, 30, h.user(t).TotalXP)
}

func TestSpeakingDuel(t *testing.T) {
	h := newHarness(t, &fakeTutor{}, nil)

	h.press(cbDuel)
	assert.Contains(t, h.api.last(), "Round 1/3")
	h.text("Хорошо")
	h.text("Спасибо")
	assert.Contains(t, h.api.last(), "Round 3/3")
	h.text("Пока")
	assert.Contains(t, h.api.last(), "Victory")
	assert.Nil(t, h.bot.states.Get(testUser))

	wins, err := h.engine.CountActivities(context.Background(), testUser, progression.ActivityDuelWin)
	require.NoError(t, err)
	assert.Equal(t, 1, wins)
}

func TestVoiceMessageWithoutExercise(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.speech.transcript = "Привет, как дела?"

	h.message(&tgbotapi.Message{Voice: &tgbotapi.Voice{FileID: "v1"}})

	texts := h.api.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "Привет, как дела?")
	assert.Contains(t, texts[1], "Evaluation")
	assert.Len(t, h.speech.removed, 1)

	count, err := h.engine.CountActivities(context.Background(), testUser, progression.ActivityVoice)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 20, h.user(t).TotalXP)
}

func TestImportDocument(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.speech.download = func(dst string) error {
		return os.WriteFile(dst, []byte("word,translation\nдом,house\nкот,cat\n"), 0o644)
	}

	h.message(&tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d1", FileName: "words.csv"}})
	assert.Contains(t, h.api.last(), "/import")

	h.command("import")
	h.message(&tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d1", FileName: "words.csv", FileSize: 100}})
	assert.Contains(t, h.api.last(), "Added: 2")
	assert.Nil(t, h.bot.states.Get(testUser))

	n, err := h.engine.CountVocabulary(context.Background(), testUser, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestResetProgress(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.addWords(t, "дом", "house")

	h.press(cbResetConfirm)
	assert.Contains(t, h.api.last(), "1 vocabulary words")

	n, err := h.engine.CountVocabulary(context.Background(), testUser, false)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScreens(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.addWords(t, "дом", "house")

	h.press(cbProfile)
	assert.Contains(t, h.api.last(), "Words: <b>1</b>")

	h.press(cbLeaderboard)
	assert.Contains(t, h.api.last(), "🥇 <b>tester</b>")

	h.press(cbAchievements)
	assert.Contains(t, h.api.last(), "First Word")
	assert.Contains(t, h.api.last(), "🔒")

	h.press(cbSettingNotif)
	assert.False(t, h.user(t).NotificationsEnabled)
}

func TestAdminStatsRequiresAdmin(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.command("admin_stats")
	assert.Contains(t, h.api.last(), "only available for administrators")
}

func TestRateLimited(t *testing.T) {
	h := newHarness(t, nil, ratelimit.NewMemory(1, time.Hour))

	h.command("menu")
	h.command("menu")
	assert.Equal(t, T("en", "rate_limited"), h.api.last())
}

func TestSendReminder(t *testing.T) {
	h := newHarness(t, nil, nil)
	err := h.bot.SendReminder(context.Background(), models.User{ID: 5, Language: "en", StreakDays: 4, DailyGoal: 50})
	require.NoError(t, err)

	require.Len(t, h.api.sent, 1)
	msg, ok := h.api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(5), msg.ChatID)
	assert.Contains(t, msg.Text, "<b>4</b>")
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock(1)

	acquired := make(chan struct{})
	go func() {
		u := k.Lock(1)
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired

	// other keys are independent
	k.Lock(2)()

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "□□□□□□□□□□", progressBar(0, 100, 10))
	assert.Equal(t, "■■■■■□□□□□", progressBar(50, 100, 10))
	assert.Equal(t, "■■■■■■■■■■", progressBar(150, 100, 10))
	assert.Equal(t, "□□□", progressBar(5, 0, 3))
}

func TestStreakEmoji(t *testing.T) {
	assert.Equal(t, "🔵", streakEmoji(0))
	assert.Equal(t, "🔥", streakEmoji(2))
	assert.Equal(t, "🔥🔥", streakEmoji(3))
	assert.Equal(t, "🔥🔥🔥", streakEmoji(7))
	assert.Equal(t, "💎🔥💎", streakEmoji(30))
}

func TestStudyMinutes(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, studyMinutes(start, start.Add(10*time.Second)))
	assert.Equal(t, 12, studyMinutes(start, start.Add(12*time.Minute)))
	assert.Equal(t, 60, studyMinutes(start, start.Add(3*time.Hour)))
}
