package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	leaderboardSize = 10
	lockedShown     = 5
)

func (b *Bot) handleMessage(ctx context.Context, r *request, message *tgbotapi.Message) error {
	switch {
	case message.IsCommand():
		return b.handleCommand(ctx, r, message)
	case message.Document != nil:
		return b.handleDocument(ctx, r, message.Document)
	case message.Voice != nil:
		return b.handleVoice(ctx, r, message.Voice)
	case strings.TrimSpace(message.Text) != "":
		return b.handleText(ctx, r, strings.TrimSpace(message.Text))
	}
	return nil
}

// handleCommand handles bot commands
func (b *Bot) handleCommand(ctx context.Context, r *request, message *tgbotapi.Message) error {
	switch message.Command() {
	case "start":
		return b.handleStart(r)
	case "help":
		return b.handleHelp(r)
	case "menu":
		b.states.Clear(r.user.ID)
		return b.showMainMenu(r)
	case "profile":
		return b.showProfile(ctx, r)
	case "leaderboard":
		return b.showLeaderboard(ctx, r)
	case "achievements":
		return b.showAchievements(ctx, r)
	case "settings":
		return b.showSettings(r)
	case "import":
		return b.startImport(r)
	case "cancel":
		b.states.Clear(r.user.ID)
		return b.showMainMenu(r)
	case "admin_stats":
		if !b.isAdmin(r.user.ID) {
			b.sendText(r, "This command is only available for administrators.", createKeyboard(MainMenuButtons(r.lang())))
			return nil
		}
		return b.handleAdminStats(ctx, r)
	default:
		b.sendText(r, "Unknown command. Use /menu to show the main menu.", createKeyboard(MainMenuButtons(r.lang())))
		return nil
	}
}

// handleText routes free text to the exercise the user is in
func (b *Bot) handleText(ctx context.Context, r *request, text string) error {
	st := b.states.Get(r.user.ID)
	if st == nil {
		b.sendText(r, "I don't understand. Use /menu to show the main menu.", createKeyboard(MainMenuButtons(r.lang())))
		return nil
	}
	switch st.Action {
	case stateGrammar:
		return b.checkGrammar(ctx, r, st, text)
	case stateListening:
		return b.checkListening(ctx, r, st, text)
	case statePractice:
		return b.evaluatePractice(ctx, r, st, text)
	case stateDuel:
		return b.duelTurn(ctx, r, st, text)
	case stateMission:
		return b.completeMission(ctx, r, st, text)
	case stateImport:
		b.sendText(r, "Please send an .xlsx or .csv file, or /cancel.", nil)
		return nil
	default:
		b.sendText(r, "Use the buttons above or /menu.", nil)
		return nil
	}
}

// handleCallback routes button presses
func (b *Bot) handleCallback(ctx context.Context, r *request, data string) error {
	switch data {
	case cbMainMenu:
		b.states.Clear(r.user.ID)
		return b.showMainMenu(r)
	case cbProfile:
		return b.showProfile(ctx, r)
	case cbLeaderboard:
		return b.showLeaderboard(ctx, r)
	case cbAchievements:
		return b.showAchievements(ctx, r)
	case cbVocabulary:
		b.states.Clear(r.user.ID)
		b.sendText(r, fmt.Sprintf("📖 <b>%s</b>\n\nChoose an option:", T(r.lang(), "vocabulary")), vocabularyKeyboard(r.lang()))
		return nil
	case cbVocabAdd:
		return b.addWords(ctx, r)
	case cbVocabReview:
		return b.reviewWords(ctx, r)
	case cbVocabList:
		return b.showWordList(ctx, r)
	case cbVocabImport:
		return b.startImport(r)
	case cbFlashcards:
		return b.startFlashcards(ctx, r)
	case cbFlashcardFlip:
		return b.flipFlashcard(r)
	case cbFlashcardKnow:
		return b.answerFlashcard(ctx, r, true)
	case cbFlashcardDont:
		return b.answerFlashcard(ctx, r, false)
	case cbGrammar:
		return b.startGrammar(ctx, r)
	case cbListening:
		return b.startListening(ctx, r, "")
	case cbListeningAgain:
		if st, ok := b.states.in(r.user.ID, stateListening); ok {
			return b.startListening(ctx, r, st.Answer)
		}
		return b.startListening(ctx, r, "")
	case cbPractice:
		return b.startPractice(r)
	case cbGames:
		b.states.Clear(r.user.ID)
		b.sendText(r, "🎮 <b>Games</b>\n\nChoose a game:", gamesKeyboard(r.lang()))
		return nil
	case cbDuel:
		return b.startDuel(ctx, r)
	case cbMission:
		return b.startMission(ctx, r)
	case cbWordGame:
		return b.startWordGame(ctx, r)
	case cbSettings:
		return b.showSettings(r)
	case cbSettingLang:
		b.sendText(r, "🌐 Choose Language / Tilni tanlang / Выберите язык:", languageKeyboard())
		return nil
	case cbSettingNotif:
		return b.toggleNotifications(ctx, r)
	case cbSettingReset:
		b.sendText(r, resetWarning, confirmationKeyboard(cbResetConfirm, cbSettings))
		return nil
	case cbResetConfirm:
		return b.resetProgress(ctx, r)
	}

	switch {
	case strings.HasPrefix(data, prefixLanguage):
		return b.setLanguage(ctx, r, strings.TrimPrefix(data, prefixLanguage))
	case strings.HasPrefix(data, prefixWordGame):
		return b.checkWordGame(ctx, r, strings.TrimPrefix(data, prefixWordGame))
	}
	b.log.Debug("Unknown callback", "data", data)
	return nil
}

func (b *Bot) handleStart(r *request) error {
	b.states.Clear(r.user.ID)
	b.sendText(r, T(r.lang(), "welcome")+"\n\n"+T(r.lang(), "choose_language"), languageKeyboard())
	b.log.Info("User started the bot", "user_id", r.user.ID)
	return nil
}

func (b *Bot) handleHelp(r *request) error {
	lang := r.lang()
	text := fmt.Sprintf(`🤖 <b>Russian Learner Bot</b>

📖 <b>%s</b> - add words, flashcards, spaced review, import from .xlsx/.csv
📝 <b>%s</b> - AI exercises with instant feedback
🎧 <b>%s</b> - listen and write what you hear
✍️ <b>%s</b> - free writing and voice messages
🎮 <b>%s</b> - Speaking Duel, Spy Mission, Word Game
👤 <b>%s</b> - level, XP, streak and achievements
🏆 <b>%s</b> - global ranking

<b>Commands:</b>
/start - Start the bot
/menu - Show main menu
/profile - Your progress
/leaderboard - Top learners
/import - Import words from a file
/cancel - Leave the current exercise
/help - Show this help`,
		T(lang, "vocabulary"), T(lang, "grammar"), T(lang, "listening"), T(lang, "practice"),
		T(lang, "games"), T(lang, "profile"), T(lang, "leaderboard"))
	b.sendText(r, text, createKeyboard(MainMenuButtons(lang)))
	return nil
}

// showMainMenu shows the main menu
func (b *Bot) showMainMenu(r *request) error {
	b.sendText(r, T(r.lang(), "main_menu"), createKeyboard(MainMenuButtons(r.lang())))
	return nil
}

func (b *Bot) setLanguage(ctx context.Context, r *request, lang string) error {
	if !isSupportedLanguage(lang) {
		b.notify(r, "Invalid language!")
		return nil
	}
	if err := b.engine.SetLanguage(ctx, r.user.ID, lang); err != nil {
		return err
	}
	r.user.Language = lang
	b.log.Info("User selected language", "user_id", r.user.ID, "language", lang)
	return b.showMainMenu(r)
}

func (b *Bot) showProfile(ctx context.Context, r *request) error {
	p, err := b.engine.Profile(ctx, r.user.ID)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	lang := r.lang()
	u := p.User

	rank := "-"
	if p.Rank != nil {
		rank = fmt.Sprintf("#%d", p.Rank.Rank)
	}
	text := fmt.Sprintf(`👤 <b>Profile</b>

📊 %s: <b>%s</b>
⚡ %s:
[%s] %d/%d XP

🎯 %s:
[%s] %d/%d XP

%s %s: <b>%d</b> %s
📚 Words: <b>%d</b> (learned <b>%d</b>)
🏆 Achievements: <b>%d/%d</b>
🏅 %s: <b>%s</b>
⏱️ Total Time: <b>%d</b> min
💎 Total XP: <b>%d</b>`,
		T(lang, "your_level"), u.Level,
		T(lang, "xp_progress"), progressBar(u.XP, u.XPTarget, 10), u.XP, u.XPTarget,
		T(lang, "daily_goal"), progressBar(u.DailyXP, u.DailyGoal, 10), u.DailyXP, u.DailyGoal,
		streakEmoji(u.StreakDays), T(lang, "streak"), u.StreakDays, T(lang, "days"),
		p.TotalWords, p.LearnedWords,
		len(p.Achievements), len(b.engine.Rules().CatalogOrder),
		T(lang, "your_rank"), rank,
		u.TotalMinutes, u.TotalXP)

	if len(p.Activity) > 0 {
		text += "\n\n📈 <b>Activity:</b>"
		for _, s := range p.Activity {
			text += fmt.Sprintf("\n• %s: %d (avg %.1f)", s.ActivityType, s.Count, s.AverageScore)
		}
	}
	b.sendText(r, text, backKeyboard(lang, cbMainMenu))
	return nil
}

func (b *Bot) showLeaderboard(ctx context.Context, r *request) error {
	top, err := b.engine.GetLeaderboard(ctx, leaderboardSize)
	if err != nil {
		return err
	}
	mine, err := b.engine.GetRank(ctx, r.user.ID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("🏆 <b>Leaderboard</b>\n\n")
	for _, e := range top {
		name := e.Username
		if name == "" {
			name = fmt.Sprintf("User%d", e.UserID)
		}
		fmt.Fprintf(&sb, "%s <b>%s</b> - %s (%d XP)\n", medal(e.Rank), html.EscapeString(name), e.Level, e.TotalXP)
	}
	if mine != nil {
		if mine.Rank > leaderboardSize {
			fmt.Fprintf(&sb, "\n...\n📍 %s: <b>#%d</b> (%d XP)", T(r.lang(), "your_rank"), mine.Rank, mine.TotalXP)
		} else {
			fmt.Fprintf(&sb, "\n%s: <b>#%d</b>", T(r.lang(), "your_rank"), mine.Rank)
		}
	}
	b.sendText(r, sb.String(), backKeyboard(r.lang(), cbMainMenu))
	return nil
}

func (b *Bot) showAchievements(ctx context.Context, r *request) error {
	earned, err := b.engine.Achievements(ctx, r.user.ID)
	if err != nil {
		return err
	}
	rules := b.engine.Rules()
	unlocked := make(map[string]bool, len(earned))

	var sb strings.Builder
	sb.WriteString("🎖️ <b>Achievements</b>\n\n")
	if len(earned) > 0 {
		sb.WriteString("<b>Unlocked:</b>\n")
		for _, a := range earned {
			unlocked[a.Key] = true
			fmt.Fprintf(&sb, "%s\n<i>%s</i>\n\n", html.EscapeString(a.Title), html.EscapeString(a.Description))
		}
	}

	shown := 0
	for _, key := range rules.CatalogOrder {
		if unlocked[key] || shown >= lockedShown {
			continue
		}
		if shown == 0 {
			sb.WriteString("\n<b>Locked:</b>\n")
		}
		def, _ := rules.Achievement(key)
		fmt.Fprintf(&sb, "🔒 %s - %s\n", def.Title, def.Description)
		shown++
	}
	fmt.Fprintf(&sb, "\n<b>Progress:</b> %d/%d", len(earned), len(rules.CatalogOrder))
	b.sendText(r, sb.String(), backKeyboard(r.lang(), cbMainMenu))
	return nil
}

func (b *Bot) showSettings(r *request) error {
	lang := r.lang()
	u := r.user
	status := T(lang, "off")
	if u.NotificationsEnabled {
		status = T(lang, "on")
	}
	text := fmt.Sprintf("⚙️ <b>Settings</b>\n\n<b>Language:</b> %s\n<b>Level:</b> %s\n<b>Notifications:</b> %s\n<b>Total XP:</b> %d\n<b>Created:</b> %s",
		strings.ToUpper(u.Language), u.Level, status, u.TotalXP, u.CreatedAt.Format("2006-01-02"))
	b.sendText(r, text, settingsKeyboard(lang, u.NotificationsEnabled))
	return nil
}

func (b *Bot) toggleNotifications(ctx context.Context, r *request) error {
	enabled := !r.user.NotificationsEnabled
	if err := b.engine.SetNotifications(ctx, r.user.ID, enabled); err != nil {
		return err
	}
	r.user.NotificationsEnabled = enabled
	if enabled {
		b.notify(r, "Notifications enabled ✅")
	} else {
		b.notify(r, "Notifications disabled ❌")
	}
	return b.showSettings(r)
}

const resetWarning = `⚠️ <b>DANGER ZONE</b>

This will <b>permanently delete</b>:
- All vocabulary words
- All achievements
- All progress statistics
- Grammar history

<b>This action CANNOT be undone!</b>
Are you absolutely sure?`

func (b *Bot) resetProgress(ctx context.Context, r *request) error {
	summary, err := b.engine.ResetProgress(ctx, r.user.ID)
	if err != nil {
		return err
	}
	b.states.Clear(r.user.ID)
	text := fmt.Sprintf(`✅ <b>Progress Reset Complete</b>

<b>Deleted:</b>
- %d vocabulary words
- %d achievements
- %d grammar records
- %d activity records

Your account has been reset to A1 level.`,
		summary.Vocabulary, summary.Achievements, summary.Grammar, summary.Activities)
	b.sendText(r, text, createKeyboard(MainMenuButtons(r.lang())))
	b.notify(r, "✅ Progress reset successfully!")
	b.log.Info("User reset their progress", "user_id", r.user.ID)
	return nil
}

func (b *Bot) handleAdminStats(ctx context.Context, r *request) error {
	entries, err := b.engine.GetLeaderboard(ctx, 0)
	if err != nil {
		return err
	}
	totalXP := 0
	for _, e := range entries {
		totalXP += e.TotalXP
	}
	text := "System Statistics\n\n" +
		fmt.Sprintf("Total users: %d\n", len(entries)) +
		fmt.Sprintf("Total XP earned: %d\n", totalXP) +
		fmt.Sprintf("Server time: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	b.sendText(r, text, nil)
	return nil
}
