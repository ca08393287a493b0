package bot

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data
const (
	cbMainMenu       = "main_menu"
	cbProfile        = "profile"
	cbLeaderboard    = "leaderboard"
	cbAchievements   = "achievements"
	cbVocabulary     = "vocabulary"
	cbVocabAdd       = "vocab_add"
	cbVocabReview    = "vocab_review"
	cbVocabList      = "vocab_list"
	cbVocabImport    = "vocab_import"
	cbFlashcards     = "flashcards"
	cbFlashcardFlip  = "flashcard_flip"
	cbFlashcardKnow  = "flashcard_know"
	cbFlashcardDont  = "flashcard_dont"
	cbGrammar        = "grammar"
	cbListening      = "listening"
	cbListeningAgain = "listening_replay"
	cbPractice       = "practice"
	cbGames          = "games"
	cbDuel           = "speaking_duel"
	cbMission        = "spy_mission"
	cbWordGame       = "word_game"
	cbSettings       = "settings"
	cbSettingLang    = "setting_lang"
	cbSettingNotif   = "setting_notif"
	cbSettingReset   = "setting_reset"
	cbResetConfirm   = "setting_reset_yes"

	prefixLanguage = "lang_"
	prefixWordGame = "wordgame_"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

func languageKeyboard() tgbotapi.InlineKeyboardMarkup {
	return createKeyboard([][]MenuButton{
		{{Text: "🇺🇿 O'zbek", CallbackData: prefixLanguage + "uz"}},
		{{Text: "🇷🇺 Русский", CallbackData: prefixLanguage + "ru"}},
		{{Text: "🇬🇧 English", CallbackData: prefixLanguage + "en"}},
	})
}

// MainMenuButtons returns the buttons for the main menu
func MainMenuButtons(lang string) [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: T(lang, "profile"), CallbackData: cbProfile},
			{Text: T(lang, "leaderboard"), CallbackData: cbLeaderboard},
		},
		{
			{Text: T(lang, "vocabulary"), CallbackData: cbVocabulary},
			{Text: T(lang, "grammar"), CallbackData: cbGrammar},
		},
		{
			{Text: T(lang, "listening"), CallbackData: cbListening},
			{Text: T(lang, "practice"), CallbackData: cbPractice},
		},
		{
			{Text: T(lang, "games"), CallbackData: cbGames},
			{Text: T(lang, "achievements"), CallbackData: cbAchievements},
		},
		{
			{Text: T(lang, "settings"), CallbackData: cbSettings},
		},
	}
}

func vocabularyKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	return createKeyboard([][]MenuButton{
		{{Text: T(lang, "add_words"), CallbackData: cbVocabAdd}},
		{{Text: T(lang, "review_words"), CallbackData: cbVocabReview}},
		{{Text: T(lang, "my_words"), CallbackData: cbVocabList}},
		{{Text: T(lang, "flashcards"), CallbackData: cbFlashcards}},
		{{Text: T(lang, "import_words"), CallbackData: cbVocabImport}},
		{{Text: T(lang, "back"), CallbackData: cbMainMenu}},
	})
}

func flashcardKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	return createKeyboard([][]MenuButton{
		{{Text: T(lang, "flip"), CallbackData: cbFlashcardFlip}},
		{
			{Text: T(lang, "know_it"), CallbackData: cbFlashcardKnow},
			{Text: T(lang, "dont_know"), CallbackData: cbFlashcardDont},
		},
		{{Text: T(lang, "back"), CallbackData: cbVocabulary}},
	})
}

func gamesKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	return createKeyboard([][]MenuButton{
		{{Text: T(lang, "speaking_duel"), CallbackData: cbDuel}},
		{{Text: T(lang, "spy_mission"), CallbackData: cbMission}},
		{{Text: T(lang, "word_game"), CallbackData: cbWordGame}},
		{{Text: T(lang, "back"), CallbackData: cbMainMenu}},
	})
}

func settingsKeyboard(lang string, notifications bool) tgbotapi.InlineKeyboardMarkup {
	status := T(lang, "off")
	if notifications {
		status = T(lang, "on")
	}
	return createKeyboard([][]MenuButton{
		{{Text: T(lang, "choose_language"), CallbackData: cbSettingLang}},
		{{Text: fmt.Sprintf("%s: %s", T(lang, "notifications"), status), CallbackData: cbSettingNotif}},
		{{Text: "🔄 Reset Progress", CallbackData: cbSettingReset}},
		{{Text: T(lang, "back"), CallbackData: cbMainMenu}},
	})
}

func backKeyboard(lang, callback string) tgbotapi.InlineKeyboardMarkup {
	return createKeyboard([][]MenuButton{
		{{Text: T(lang, "back"), CallbackData: callback}},
	})
}

// wordGameKeyboard refers to options by index so long translations fit the
// 64 byte callback limit
func wordGameKeyboard(lang string, options []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]MenuButton, 0, len(options)+1)
	for i, opt := range options {
		rows = append(rows, []MenuButton{{Text: opt, CallbackData: prefixWordGame + strconv.Itoa(i)}})
	}
	rows = append(rows, []MenuButton{{Text: T(lang, "back"), CallbackData: cbGames}})
	return createKeyboard(rows)
}

func listeningKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	return createKeyboard([][]MenuButton{
		{{Text: "🔊 Play Again", CallbackData: cbListeningAgain}},
		{{Text: T(lang, "back"), CallbackData: cbMainMenu}},
	})
}

func confirmationKeyboard(confirm, cancel string) tgbotapi.InlineKeyboardMarkup {
	return createKeyboard([][]MenuButton{{
		{Text: "✅ Yes", CallbackData: confirm},
		{Text: "❌ No", CallbackData: cancel},
	}})
}
