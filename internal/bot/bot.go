package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/langbot/internal/ai"
	"github.com/example/langbot/internal/games"
	"github.com/example/langbot/internal/logger"
	"github.com/example/langbot/internal/metrics"
	"github.com/example/langbot/internal/progression"
	"github.com/example/langbot/internal/ratelimit"
	"github.com/example/langbot/pkg/models"
)

const updateTimeout = 60

// messenger is the subset of *tgbotapi.BotAPI the bot uses
type messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Speech converts text to audio and back, and fetches Telegram files
type Speech interface {
	Synthesize(ctx context.Context, text, filename string) (string, error)
	Transcribe(ctx context.Context, path string) (string, error)
	Download(ctx context.Context, url, dst string) error
	Remove(path string)
}

// Options tunes lesson sizes and file locations
type Options struct {
	AdminIDs       []int64
	WordsPerLesson int
	ReviewLimit    int
	TempDir        string
	MaxUploadBytes int
}

// Deps are the services handlers call into. Tutor may be nil, in which case
// built-in exercises are used.
type Deps struct {
	Engine  *progression.Engine
	Tutor   ai.Generator
	Speech  Speech
	Limiter ratelimit.Limiter
}

// Bot represents the Telegram bot application
type Bot struct {
	api       messenger
	engine    *progression.Engine
	tutor     ai.Generator
	speech    Speech
	limiter   ratelimit.Limiter
	games     *games.Service
	questions *games.QuestionBuilder
	opts      Options
	admins    map[int64]bool
	states    *stateStore
	locks     *keyedMutex
	log       *logger.Logger
	wg        sync.WaitGroup
}

// New creates a new bot instance
func New(api messenger, deps Deps, opts Options, log *logger.Logger) *Bot {
	if opts.WordsPerLesson <= 0 {
		opts.WordsPerLesson = 5
	}
	if opts.ReviewLimit <= 0 {
		opts.ReviewLimit = 20
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NewRedisWithClient(nil, 0, time.Hour, log)
	}

	b := &Bot{
		api:       api,
		engine:    deps.Engine,
		tutor:     deps.Tutor,
		speech:    deps.Speech,
		limiter:   deps.Limiter,
		games:     games.NewService(deps.Engine, deps.Engine.Rules(), log),
		questions: games.NewQuestionBuilder(0),
		opts:      opts,
		admins:    make(map[int64]bool, len(opts.AdminIDs)),
		states:    newStateStore(),
		locks:     newKeyedMutex(),
		log:       log.With("component", "bot"),
	}
	for _, id := range opts.AdminIDs {
		b.admins[id] = true
	}
	return b
}

// Start polls for updates until ctx is cancelled, then waits for in-flight
// handlers to finish.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = updateTimeout
	updates := b.api.GetUpdatesChan(updateConfig)
	b.log.Info("Bot started, polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.log.Info("Bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return errors.New("updates channel closed")
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// request carries the per-update context handlers need
type request struct {
	user       *models.User
	chatID     int64
	callbackID string
	notice     string
}

func (r *request) lang() string {
	return r.user.Language
}

// HandleUpdate handles incoming updates from Telegram. Updates of one user
// are processed one at a time.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var (
		from   *tgbotapi.User
		chatID int64
		kind   string
	)
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		from, chatID = update.Message.From, update.Message.Chat.ID
		kind = messageKind(update.Message)
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		from, chatID = update.CallbackQuery.From, update.CallbackQuery.Message.Chat.ID
		kind = "callback"
	default:
		return
	}
	if from == nil {
		return
	}
	metrics.Updates.WithLabelValues(kind).Inc()

	unlock := b.locks.Lock(from.ID)
	defer unlock()

	user, err := b.engine.GetOrCreateUser(ctx, from.ID, from.UserName)
	if err != nil {
		b.log.Error("Failed to load user", "user_id", from.ID, "error", err)
		return
	}
	r := &request{user: user, chatID: chatID}
	if update.CallbackQuery != nil {
		r.callbackID = update.CallbackQuery.ID
	}

	if !b.allow(ctx, user.ID) {
		r.notice = T(r.lang(), "rate_limited")
		if r.callbackID == "" {
			b.sendText(r, r.notice, nil)
		}
		b.answerCallback(r)
		return
	}

	b.checkIn(ctx, r)

	if update.Message != nil {
		err = b.handleMessage(ctx, r, update.Message)
	} else {
		err = b.handleCallback(ctx, r, update.CallbackQuery.Data)
	}
	if err != nil {
		b.log.Error("Failed to handle update", "user_id", user.ID, "kind", kind, "error", err)
		b.states.Clear(user.ID)
		b.sendText(r, T(r.lang(), "error"), backKeyboard(r.lang(), cbMainMenu))
	}
	b.answerCallback(r)
}

func messageKind(m *tgbotapi.Message) string {
	switch {
	case m.IsCommand():
		return "command"
	case m.Voice != nil:
		return "voice"
	case m.Document != nil:
		return "document"
	default:
		return "message"
	}
}

func (b *Bot) allow(ctx context.Context, userID int64) bool {
	ok, err := b.limiter.Allow(ctx, userID)
	if err != nil {
		b.log.Warn("Rate limiter unavailable", "user_id", userID, "error", err)
	}
	return ok
}

// checkIn advances the streak and announces the daily bonus
func (b *Bot) checkIn(ctx context.Context, r *request) {
	res, err := b.engine.CheckIn(ctx, r.user.ID)
	if err != nil {
		b.log.Warn("Failed to check in", "user_id", r.user.ID, "error", err)
		return
	}
	if res.XPAwarded > 0 {
		b.sendText(r, "🌅 Daily login bonus!"+progressText(res), nil)
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.admins[userID]
}

// sendText sends an HTML message; markup may be nil
func (b *Bot) sendText(r *request, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("Failed to send message", "chat_id", r.chatID, "error", err)
	}
}

// notify sets the toast shown for the current callback
func (b *Bot) notify(r *request, text string) {
	r.notice = text
}

func (b *Bot) answerCallback(r *request) {
	if r.callbackID == "" {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(r.callbackID, r.notice)); err != nil {
		b.log.Debug("Failed to answer callback", "error", err)
	}
	r.callbackID = ""
}

// SendReminder implements the scheduler.Notifier interface
func (b *Bot) SendReminder(_ context.Context, user models.User) error {
	lang := user.Language
	text := fmt.Sprintf("🔔 <b>Daily Reminder!</b>\n\n%s: <b>%d</b> %s\n%s: %d/%d XP\n\nKeep your streak alive! 🔥\nPractice Russian today! 📚",
		T(lang, "streak"), user.StreakDays, T(lang, "days"),
		T(lang, "daily_goal"), user.DailyXP, user.DailyGoal)

	msg := tgbotapi.NewMessage(user.ID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = createKeyboard(MainMenuButtons(lang))
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder to %d: %w", user.ID, err)
	}
	return nil
}

// keyedMutex serialises work per user id
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*refLock)}
}

// Lock blocks until id is free and returns the matching unlock
func (k *keyedMutex) Lock(id int64) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &refLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
