package ai

import (
	"context"

	"github.com/example/langbot/pkg/models"
)

// Generator is the subset of ChatGPT used by the fallback helpers
type Generator interface {
	GenerateVocabulary(ctx context.Context, level models.Level, topic string, count int, lang string) ([]Word, error)
	EvaluateText(ctx context.Context, text string, level models.Level, lang string) (*Evaluation, error)
	GenerateGrammarExercise(ctx context.Context, level models.Level, lang string) (*GrammarExercise, error)
	GenerateListeningText(ctx context.Context, level models.Level) (string, error)
	GenerateConversationPrompt(ctx context.Context, level models.Level, round int, lang string) (string, error)
	GenerateConversationResponse(ctx context.Context, userText string, level models.Level) (string, error)
	GenerateSpyMission(ctx context.Context, level models.Level, lang string) (*Mission, error)
}

var _ Generator = (*ChatGPT)(nil)

var fallbackWords = []Word{
	{Word: "дом", Translation: "house", Example: "Это мой дом."},
	{Word: "вода", Translation: "water", Example: "Я пью воду."},
	{Word: "книга", Translation: "book", Example: "Книга на столе."},
	{Word: "друг", Translation: "friend", Example: "Он мой друг."},
	{Word: "город", Translation: "city", Example: "Москва — большой город."},
	{Word: "работа", Translation: "work", Example: "Я иду на работу."},
	{Word: "время", Translation: "time", Example: "У меня нет времени."},
	{Word: "школа", Translation: "school", Example: "Дети идут в школу."},
}

var fallbackSentences = []string{
	"Сегодня хорошая погода.",
	"Я люблю читать книги.",
	"Мы идём в магазин.",
	"Мой брат живёт в Москве.",
}

// VocabularyWithFallback returns generated words or a built-in list when the
// provider is unavailable. g may be nil.
func VocabularyWithFallback(ctx context.Context, g Generator, level models.Level, topic string, count int, lang string) []Word {
	if g != nil {
		if words, err := g.GenerateVocabulary(ctx, level, topic, count, lang); err == nil {
			return words
		}
	}
	if count <= 0 || count > len(fallbackWords) {
		count = len(fallbackWords)
	}
	return append([]Word(nil), fallbackWords[:count]...)
}

// GrammarExerciseWithFallback never fails
func GrammarExerciseWithFallback(ctx context.Context, g Generator, level models.Level, lang string) *GrammarExercise {
	if g != nil {
		if ex, err := g.GenerateGrammarExercise(ctx, level, lang); err == nil {
			return ex
		}
	}
	return &GrammarExercise{
		Topic:    "accusative case",
		Question: "Я вижу ___ (мама).",
		Answer:   "маму",
		Rule:     "Feminine nouns ending in -а take -у in the accusative case.",
		Example:  "Я читаю книгу.",
	}
}

// ListeningTextWithFallback never fails; seed picks the built-in sentence
func ListeningTextWithFallback(ctx context.Context, g Generator, level models.Level, seed int) string {
	if g != nil {
		if text, err := g.GenerateListeningText(ctx, level); err == nil && text != "" {
			return text
		}
	}
	if seed < 0 {
		seed = -seed
	}
	return fallbackSentences[seed%len(fallbackSentences)]
}

// EvaluateWithFallback returns a neutral evaluation when grading fails
func EvaluateWithFallback(ctx context.Context, g Generator, text string, level models.Level, lang string) *Evaluation {
	if g != nil {
		if ev, err := g.EvaluateText(ctx, text, level, lang); err == nil {
			return ev
		}
	}
	return &Evaluation{GrammarScore: 5, VocabularyScore: 5}
}
