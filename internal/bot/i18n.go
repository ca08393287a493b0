package bot

// Supported interface languages
var languages = []string{"uz", "ru", "en"}

var translations = map[string]map[string]string{
	"uz": {
		"welcome":               "🎉 Salom! Russian Learner botiga xush kelibsiz!",
		"choose_language":       "🌐 Tilni tanlang:",
		"main_menu":             "📚 Asosiy Menyu",
		"profile":               "👤 Profil",
		"vocabulary":            "📖 Lug'at",
		"grammar":               "📝 Grammatika",
		"listening":             "🎧 Eshitish",
		"practice":              "✍️ Amaliyot",
		"games":                 "🎮 O'yinlar",
		"settings":              "⚙️ Sozlamalar",
		"leaderboard":           "🏆 Reyting",
		"achievements":          "🎖️ Yutuqlar",
		"flashcards":            "🗂️ Flashcards",
		"speaking_duel":         "🗣️ Speaking Duel",
		"spy_mission":           "🕵️ Spy Mission",
		"word_game":             "🎯 So'z o'yini",
		"back":                  "⬅️ Orqaga",
		"streak":                "🔥 Ketma-ketlik",
		"days":                  "kun",
		"your_rank":             "Sizning o'rningiz",
		"review_words":          "🔄 So'zlarni takrorlash",
		"add_words":             "➕ Yangi so'zlar",
		"my_words":              "📝 Mening so'zlarim",
		"import_words":          "📥 Fayldan import",
		"notifications":         "🔔 Bildirishnomalar",
		"on":                    "Yoniq",
		"off":                   "O'chiq",
		"your_level":            "Sizning darajangiz",
		"xp_progress":           "XP jarayoni",
		"daily_goal":            "Kunlik maqsad",
		"flip":                  "🔄 O'girish",
		"know_it":               "✅ Bilaman",
		"dont_know":             "❌ Bilmayman",
		"listening_instruction": "Tinglang va eshitganingizni yozing:",
		"practice_instruction":  "Rus tilida istalgan narsani yozing:",
		"grammar_instruction":   "Javobingizni yozing:",
		"voice_instruction":     "Ovozli xabar yuboring yoki yozing:",
		"rate_limited":          "⏳ Juda ko'p so'rov. Birozdan keyin urinib ko'ring.",
		"error":                 "❌ Xatolik yuz berdi. Qaytadan urinib ko'ring.",
	},
	"ru": {
		"welcome":               "🎉 Привет! Добро пожаловать в Russian Learner!",
		"choose_language":       "🌐 Выберите язык:",
		"main_menu":             "📚 Главное меню",
		"profile":               "👤 Профиль",
		"vocabulary":            "📖 Словарь",
		"grammar":               "📝 Грамматика",
		"listening":             "🎧 Аудирование",
		"practice":              "✍️ Практика",
		"games":                 "🎮 Игры",
		"settings":              "⚙️ Настройки",
		"leaderboard":           "🏆 Рейтинг",
		"achievements":          "🎖️ Достижения",
		"flashcards":            "🗂️ Карточки",
		"speaking_duel":         "🗣️ Speaking Duel",
		"spy_mission":           "🕵️ Шпионская миссия",
		"word_game":             "🎯 Игра в слова",
		"back":                  "⬅️ Назад",
		"streak":                "🔥 Серия",
		"days":                  "дней",
		"your_rank":             "Ваш ранг",
		"review_words":          "🔄 Повторить слова",
		"add_words":             "➕ Новые слова",
		"my_words":              "📝 Мои слова",
		"import_words":          "📥 Импорт из файла",
		"notifications":         "🔔 Уведомления",
		"on":                    "Вкл",
		"off":                   "Выкл",
		"your_level":            "Ваш уровень",
		"xp_progress":           "XP прогресс",
		"daily_goal":            "Дневная цель",
		"flip":                  "🔄 Перевернуть",
		"know_it":               "✅ Знаю",
		"dont_know":             "❌ Не знаю",
		"listening_instruction": "Послушайте и напишите, что услышали:",
		"practice_instruction":  "Напишите что-нибудь на русском:",
		"grammar_instruction":   "Напишите ваш ответ:",
		"voice_instruction":     "Отправьте голосовое сообщение или напишите:",
		"rate_limited":          "⏳ Слишком много запросов. Попробуйте позже.",
		"error":                 "❌ Произошла ошибка. Попробуйте ещё раз.",
	},
	"en": {
		"welcome":               "🎉 Hello! Welcome to Russian Learner!",
		"choose_language":       "🌐 Choose Language:",
		"main_menu":             "📚 Main Menu",
		"profile":               "👤 Profile",
		"vocabulary":            "📖 Vocabulary",
		"grammar":               "📝 Grammar",
		"listening":             "🎧 Listening",
		"practice":              "✍️ Practice",
		"games":                 "🎮 Games",
		"settings":              "⚙️ Settings",
		"leaderboard":           "🏆 Leaderboard",
		"achievements":          "🎖️ Achievements",
		"flashcards":            "🗂️ Flashcards",
		"speaking_duel":         "🗣️ Speaking Duel",
		"spy_mission":           "🕵️ Spy Mission",
		"word_game":             "🎯 Word Game",
		"back":                  "⬅️ Back",
		"streak":                "🔥 Streak",
		"days":                  "days",
		"your_rank":             "Your rank",
		"review_words":          "🔄 Review Words",
		"add_words":             "➕ Add Words",
		"my_words":              "📝 My Words",
		"import_words":          "📥 Import from file",
		"notifications":         "🔔 Notifications",
		"on":                    "On",
		"off":                   "Off",
		"your_level":            "Your level",
		"xp_progress":           "XP Progress",
		"daily_goal":            "Daily goal",
		"flip":                  "🔄 Flip",
		"know_it":               "✅ Know it",
		"dont_know":             "❌ Don't know",
		"listening_instruction": "Listen and write what you hear:",
		"practice_instruction":  "Write anything in Russian:",
		"grammar_instruction":   "Write your answer:",
		"voice_instruction":     "Send a voice message or write:",
		"rate_limited":          "⏳ Too many requests. Please try again later.",
		"error":                 "❌ Something went wrong. Please try again.",
	},
}

// T returns the UI string for key, falling back to English and then the key
func T(lang, key string) string {
	if s, ok := translations[lang][key]; ok {
		return s
	}
	if s, ok := translations["en"][key]; ok {
		return s
	}
	return key
}

func isSupportedLanguage(lang string) bool {
	for _, l := range languages {
		if l == lang {
			return true
		}
	}
	return false
}
