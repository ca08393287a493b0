package games

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/example/langbot/pkg/models"
)

// WordGameOptions is how many answers a word game question offers
const WordGameOptions = 4

// ErrNotEnoughWords is returned when the vocabulary cannot fill a question
var ErrNotEnoughWords = errors.New("not enough words for a question")

// WordQuestion asks for the translation of Item
type WordQuestion struct {
	Item         models.VocabularyItem // The word being tested
	Options      []string              // Possible translations
	CorrectIndex int                   // Index of correct answer in options
}

// IsCorrect reports whether the option at index is the right translation
func (q *WordQuestion) IsCorrect(index int) bool {
	return index == q.CorrectIndex
}

// Answer returns the correct translation
func (q *WordQuestion) Answer() string {
	return q.Options[q.CorrectIndex]
}

// QuestionBuilder draws multiple choice questions from a user's vocabulary
type QuestionBuilder struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewQuestionBuilder creates a builder; seed 0 seeds from the clock
func NewQuestionBuilder(seed int64) *QuestionBuilder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &QuestionBuilder{rnd: rand.New(rand.NewSource(seed))}
}

// WordQuestion picks one word and three distractors with distinct translations
func (b *QuestionBuilder) WordQuestion(words []models.VocabularyItem) (*WordQuestion, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pool := distinctTranslations(words)
	if len(pool) < WordGameOptions {
		return nil, ErrNotEnoughWords
	}

	b.rnd.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	pool = pool[:WordGameOptions]

	correct := b.rnd.Intn(len(pool))
	q := &WordQuestion{
		Item:         pool[correct],
		Options:      make([]string, len(pool)),
		CorrectIndex: correct,
	}
	for i, w := range pool {
		q.Options[i] = w.Translation
	}
	return q, nil
}

// Flashcards returns up to n words in random order
func (b *QuestionBuilder) Flashcards(words []models.VocabularyItem, n int) []models.VocabularyItem {
	b.mu.Lock()
	defer b.mu.Unlock()

	cards := append([]models.VocabularyItem(nil), words...)
	b.rnd.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	if n > 0 && len(cards) > n {
		cards = cards[:n]
	}
	return cards
}

func distinctTranslations(words []models.VocabularyItem) []models.VocabularyItem {
	seen := make(map[string]bool, len(words))
	out := make([]models.VocabularyItem, 0, len(words))
	for _, w := range words {
		key := strings.ToLower(strings.TrimSpace(w.Translation))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
	}
	return out
}

// BlankOut replaces the first case-insensitive occurrence of word in sentence
// with a blank. When the word is missing the blank is appended.
func BlankOut(sentence, word string) string {
	const blank = "_______"
	if word == "" {
		return sentence
	}
	s := []rune(sentence)
	w := []rune(strings.ToLower(word))
	lower := []rune(strings.ToLower(sentence))
	if len(lower) == len(s) {
		for i := 0; i+len(w) <= len(lower); i++ {
			if string(lower[i:i+len(w)]) == string(w) {
				return string(s[:i]) + blank + string(s[i+len(w):])
			}
		}
	}
	return strings.TrimSpace(sentence + " " + blank)
}
