package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/langbot/pkg/models"
)

// TargetLanguage is the language taught by the bot
const TargetLanguage = "Russian"

const tutorSystem = "You are a friendly and precise Russian language tutor. Follow the requested output format exactly."

var languageNames = map[string]string{
	"en": "English",
	"ru": "Russian",
	"uz": "Uzbek",
}

// LanguageName returns the English name of a UI language code
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return "English"
}

// Word is a generated vocabulary entry
type Word struct {
	Word        string `json:"word"`
	Translation string `json:"translation"`
	Example     string `json:"example"`
}

// Evaluation is the model's assessment of a learner's text
type Evaluation struct {
	GrammarScore    float64  `json:"grammar_score"`
	VocabularyScore float64  `json:"vocabulary_score"`
	Feedback        string   `json:"feedback"`
	Corrections     []string `json:"corrections"`
}

// Score is the mean of the grammar and vocabulary scores
func (e Evaluation) Score() float64 {
	return (e.GrammarScore + e.VocabularyScore) / 2
}

// GrammarExercise is a single fill-in or transformation task
type GrammarExercise struct {
	Topic    string `json:"topic"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Rule     string `json:"rule"`
	Example  string `json:"example"`
}

// Mission is a role-play task for the spy game
type Mission struct {
	Title     string   `json:"title"`
	Scenario  string   `json:"scenario"`
	Objective string   `json:"objective"`
	Keywords  []string `json:"keywords"`
}

// GenerateVocabulary asks for count new words at level, translated into lang
func (c *ChatGPT) GenerateVocabulary(ctx context.Context, level models.Level, topic string, count int, lang string) ([]Word, error) {
	if topic == "" {
		topic = "everyday life"
	}
	prompt := fmt.Sprintf(
		"Generate %d useful %s words for a learner at CEFR level %s on the topic %q. "+
			"Translate each word into %s and give a short example sentence in %s. "+
			`Return ONLY a JSON array: [{"word": "...", "translation": "...", "example": "..."}]`,
		count, TargetLanguage, level, topic, LanguageName(lang), TargetLanguage,
	)

	var words []Word
	err := c.completeJSON(ctx, completion{operation: "generate vocabulary", system: tutorSystem, prompt: prompt}, &words)
	if err != nil {
		return nil, err
	}

	var out []Word
	for _, w := range words {
		if strings.TrimSpace(w.Word) == "" || strings.TrimSpace(w.Translation) == "" {
			continue
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable words", errBadResponse)
	}
	return out, nil
}

// EvaluateText grades free writing or a transcribed voice message
func (c *ChatGPT) EvaluateText(ctx context.Context, text string, level models.Level, lang string) (*Evaluation, error) {
	prompt := fmt.Sprintf(
		"Evaluate this %s text written by a CEFR %s learner:\n\n%s\n\n"+
			"Score grammar and vocabulary from 0 to 10. Write the feedback and corrections in %s. "+
			`Return ONLY JSON: {"grammar_score": 0, "vocabulary_score": 0, "feedback": "...", "corrections": ["..."]}`,
		TargetLanguage, level, text, LanguageName(lang),
	)

	var ev Evaluation
	err := c.completeJSON(ctx, completion{operation: "evaluate text", system: tutorSystem, prompt: prompt, temperature: 0.3}, &ev)
	if err != nil {
		return nil, err
	}
	ev.GrammarScore = clampScore(ev.GrammarScore)
	ev.VocabularyScore = clampScore(ev.VocabularyScore)
	return &ev, nil
}

// GenerateGrammarExercise creates one exercise suited to level
func (c *ChatGPT) GenerateGrammarExercise(ctx context.Context, level models.Level, lang string) (*GrammarExercise, error) {
	prompt := fmt.Sprintf(
		"Create one %s grammar exercise for CEFR level %s. Explain the rule in %s. "+
			`Return ONLY JSON: {"topic": "...", "question": "...", "answer": "...", "rule": "...", "example": "..."}`,
		TargetLanguage, level, LanguageName(lang),
	)

	var ex GrammarExercise
	if err := c.completeJSON(ctx, completion{operation: "generate grammar exercise", system: tutorSystem, prompt: prompt}, &ex); err != nil {
		return nil, err
	}
	if ex.Question == "" || ex.Answer == "" {
		return nil, fmt.Errorf("%w: incomplete grammar exercise", errBadResponse)
	}
	if ex.Topic == "" {
		ex.Topic = "general"
	}
	return &ex, nil
}

// GenerateListeningText returns one short sentence to be read aloud
func (c *ChatGPT) GenerateListeningText(ctx context.Context, level models.Level) (string, error) {
	prompt := fmt.Sprintf(
		"Write one short, natural %s sentence (5 to 12 words) for a CEFR %s listening exercise. Return only the sentence.",
		TargetLanguage, level,
	)
	text, err := c.complete(ctx, completion{operation: "generate listening text", system: tutorSystem, prompt: prompt, maxTokens: 100})
	if err != nil {
		return "", err
	}
	return strings.Trim(text, "\"«» \n"), nil
}

// GenerateConversationPrompt returns a speaking topic for a duel round
func (c *ChatGPT) GenerateConversationPrompt(ctx context.Context, level models.Level, round int, lang string) (string, error) {
	prompt := fmt.Sprintf(
		"Give a short conversation question in %s for round %d of a speaking duel at CEFR level %s, "+
			"followed by a one-line hint in %s. Return only the question and the hint.",
		TargetLanguage, round, level, LanguageName(lang),
	)
	return c.complete(ctx, completion{operation: "generate conversation prompt", system: tutorSystem, prompt: prompt, maxTokens: 150})
}

// GenerateConversationResponse continues a free practice conversation
func (c *ChatGPT) GenerateConversationResponse(ctx context.Context, userText string, level models.Level) (string, error) {
	prompt := fmt.Sprintf(
		"You are chatting with a CEFR %s learner. Reply naturally in simple %s (2 or 3 sentences) and end with a question. "+
			"Learner wrote:\n\n%s",
		level, TargetLanguage, userText,
	)
	return c.complete(ctx, completion{operation: "generate conversation response", system: tutorSystem, prompt: prompt, temperature: 0.8})
}

// GenerateSpyMission creates a role-play mission
func (c *ChatGPT) GenerateSpyMission(ctx context.Context, level models.Level, lang string) (*Mission, error) {
	prompt := fmt.Sprintf(
		"Invent a short spy mission for a CEFR %s %s learner. The learner must write a message in %s that achieves the objective. "+
			"Describe the scenario and objective in %s and list 3 %s keywords to use. "+
			`Return ONLY JSON: {"title": "...", "scenario": "...", "objective": "...", "keywords": ["..."]}`,
		level, TargetLanguage, TargetLanguage, LanguageName(lang), TargetLanguage,
	)

	var m Mission
	if err := c.completeJSON(ctx, completion{operation: "generate spy mission", system: tutorSystem, prompt: prompt, temperature: 0.9}, &m); err != nil {
		return nil, err
	}
	if m.Scenario == "" {
		return nil, fmt.Errorf("%w: empty mission", errBadResponse)
	}
	return &m, nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
