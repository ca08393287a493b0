package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/langbot/internal/ai"
	"github.com/example/langbot/internal/games"
	"github.com/example/langbot/internal/progression"
)

const (
	wordListSize   = 10
	maxStudyMinute = 60
)

func (b *Bot) addWords(ctx context.Context, r *request) error {
	words := ai.VocabularyWithFallback(ctx, b.tutor, r.user.Level, "", b.opts.WordsPerLesson, r.lang())

	var (
		total progression.Result
		sb    strings.Builder
		added int
	)
	fmt.Fprintf(&sb, "📚 <b>New Words (%s)</b>\n\n", r.user.Level)
	for _, w := range words {
		item, res, err := b.engine.AddVocabularyItem(ctx, r.user.ID, w.Word, w.Translation, w.Example, r.user.Level)
		if err != nil {
			b.log.Warn("Skipping generated word", "word", w.Word, "error", err)
			continue
		}
		if item == nil {
			continue
		}
		merge(&total, res)
		added++
		fmt.Fprintf(&sb, "<b>%s</b> - %s\n", html.EscapeString(item.Word), html.EscapeString(item.Translation))
		if item.Example != "" {
			fmt.Fprintf(&sb, "<i>%s</i>\n", html.EscapeString(item.Example))
		}
		sb.WriteString("\n")
	}
	if added == 0 {
		b.sendText(r, "❌ Error generating words. Please try again.", vocabularyKeyboard(r.lang()))
		return nil
	}

	res, err := b.engine.AwardActivity(ctx, r.user.ID, progression.RewardVocabularyAdd)
	if err != nil {
		return err
	}
	merge(&total, res)
	if err := b.engine.RecordActivity(ctx, r.user.ID, progression.ActivityVocabulary, nil); err != nil {
		return err
	}

	sb.WriteString(progressText(total))
	b.sendText(r, sb.String(), vocabularyKeyboard(r.lang()))
	b.log.Info("Words added", "user_id", r.user.ID, "count", added)
	return nil
}

func (b *Bot) reviewWords(ctx context.Context, r *request) error {
	due, err := b.engine.GetDueReviews(ctx, r.user.ID, b.opts.WordsPerLesson)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		b.notify(r, "✅ No words to review right now! Come back later.")
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔄 <b>%s</b>\n\n<i>Review these %d words:</i>\n\n", T(r.lang(), "review_words"), len(due))
	for _, w := range due {
		fmt.Fprintf(&sb, "<b>%s</b> - %s\n", html.EscapeString(w.Word), html.EscapeString(w.Translation))
		if w.Example != "" {
			fmt.Fprintf(&sb, "<i>%s</i>\n", html.EscapeString(w.Example))
		}
		fmt.Fprintf(&sb, "Reviews: %d\n\n", w.ReviewCount)
	}

	res, err := b.engine.AwardActivity(ctx, r.user.ID, progression.RewardVocabularyReview)
	if err != nil {
		return err
	}
	sb.WriteString(progressText(res))
	b.sendText(r, sb.String(), vocabularyKeyboard(r.lang()))
	return nil
}

func (b *Bot) showWordList(ctx context.Context, r *request) error {
	words, err := b.engine.ListVocabulary(ctx, r.user.ID, wordListSize)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		b.sendText(r, "📝 You haven't added any words yet!", vocabularyKeyboard(r.lang()))
		return nil
	}
	total, err := b.engine.CountVocabulary(ctx, r.user.ID, false)
	if err != nil {
		return err
	}
	learned, err := b.engine.CountVocabulary(ctx, r.user.ID, true)
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📝 <b>%s</b>\n\n", T(r.lang(), "my_words"))
	for _, w := range words {
		mark := "📖"
		if w.Learned {
			mark = "✅"
		}
		fmt.Fprintf(&sb, "%s <b>%s</b> - %s\n", mark, html.EscapeString(w.Word), html.EscapeString(w.Translation))
	}
	fmt.Fprintf(&sb, "\n<b>Total:</b> %d words\n<b>Learned:</b> %d (%d%%)", total, learned, learned*100/total)
	b.sendText(r, sb.String(), vocabularyKeyboard(r.lang()))
	return nil
}

func (b *Bot) startFlashcards(ctx context.Context, r *request) error {
	due, err := b.engine.GetDueReviews(ctx, r.user.ID, b.opts.ReviewLimit)
	if err != nil {
		return err
	}
	cards := b.questions.Flashcards(due, b.opts.WordsPerLesson)
	if len(cards) == 0 {
		b.sendText(r, "✅ No flashcards due right now. Add new words or come back later!", vocabularyKeyboard(r.lang()))
		return nil
	}
	st := &UserState{Action: stateFlashcards, Cards: cards}
	b.states.Set(r.user.ID, st)
	b.showFlashcard(r, st)
	return nil
}

func (b *Bot) showFlashcard(r *request, st *UserState) {
	card := st.Cards[st.Card]
	text := fmt.Sprintf("🎴 <b>%s</b> %d/%d\n\n<b>%s</b>", T(r.lang(), "flashcards"), st.Card+1, len(st.Cards), html.EscapeString(card.Word))
	if st.CardBack {
		text += fmt.Sprintf("\n\n%s", html.EscapeString(card.Translation))
		if card.Example != "" {
			text += fmt.Sprintf("\n<i>%s</i>", html.EscapeString(card.Example))
		}
	}
	b.sendText(r, text, flashcardKeyboard(r.lang()))
}

func (b *Bot) flipFlashcard(r *request) error {
	st, ok := b.states.in(r.user.ID, stateFlashcards)
	if !ok {
		return b.showMainMenu(r)
	}
	st.CardBack = !st.CardBack
	b.showFlashcard(r, st)
	return nil
}

func (b *Bot) answerFlashcard(ctx context.Context, r *request, known bool) error {
	st, ok := b.states.in(r.user.ID, stateFlashcards)
	if !ok {
		return b.showMainMenu(r)
	}

	if known {
		var total progression.Result
		_, res, err := b.engine.MarkReviewed(ctx, st.Cards[st.Card].ID)
		if err != nil {
			return err
		}
		merge(&total, res)
		res, err = b.engine.AwardActivity(ctx, r.user.ID, progression.RewardFlashcardCorrect)
		if err != nil {
			return err
		}
		merge(&total, res)
		st.Known++
		b.notify(r, fmt.Sprintf("✅ Great! +%d XP", total.XPAwarded))
		if len(total.LevelUps) > 0 || len(total.Achievements) > 0 {
			b.sendText(r, strings.TrimSpace(progressText(total)), nil)
		}
	} else {
		b.notify(r, "💪 Keep practicing!")
	}

	st.Card++
	st.CardBack = false
	if st.Card < len(st.Cards) {
		b.showFlashcard(r, st)
		return nil
	}

	score := float64(st.Known) * 10 / float64(len(st.Cards))
	if err := b.finishExercise(ctx, r, st, progression.ActivityFlashcards, &score); err != nil {
		return err
	}
	b.sendText(r, fmt.Sprintf("🎉 <b>Session complete!</b>\n\nYou knew %d of %d words.", st.Known, len(st.Cards)), vocabularyKeyboard(r.lang()))
	return nil
}

func (b *Bot) startGrammar(ctx context.Context, r *request) error {
	ex := ai.GrammarExerciseWithFallback(ctx, b.tutor, r.user.Level, r.lang())
	b.states.Set(r.user.ID, &UserState{Action: stateGrammar, Answer: ex.Answer, Topic: ex.Topic})

	text := fmt.Sprintf("📝 <b>%s: %s</b>\n\n", T(r.lang(), "grammar"), html.EscapeString(ex.Topic))
	if ex.Rule != "" {
		text += fmt.Sprintf("<b>Rule:</b> %s\n", html.EscapeString(ex.Rule))
	}
	if ex.Example != "" {
		text += fmt.Sprintf("<b>Example:</b> <i>%s</i>\n", html.EscapeString(ex.Example))
	}
	text += fmt.Sprintf("\n<b>Exercise:</b>\n%s\n\n<i>%s</i>", html.EscapeString(ex.Question), T(r.lang(), "grammar_instruction"))
	b.sendText(r, text, backKeyboard(r.lang(), cbMainMenu))
	return nil
}

func (b *Bot) checkGrammar(ctx context.Context, r *request, st *UserState, answer string) error {
	var (
		score float64
		ev    *ai.Evaluation
	)
	if st.Answer != "" && games.Similarity(answer, st.Answer) == 1 {
		score = 10
	} else {
		ev = ai.EvaluateWithFallback(ctx, b.tutor, answer, r.user.Level, r.lang())
		score = ev.GrammarScore
	}

	topic := st.Topic
	if topic == "" {
		topic = "general"
	}
	if _, err := b.engine.UpdateGrammarTopic(ctx, r.user.ID, topic, score); err != nil {
		return err
	}
	res, err := b.engine.AwardActivity(ctx, r.user.ID, progression.RewardGrammarExercise)
	if err != nil {
		return err
	}
	if err := b.finishExercise(ctx, r, st, progression.ActivityGrammar, &score); err != nil {
		return err
	}

	text := "✅ <b>Result:</b>\n\n"
	if ev != nil {
		text += evaluationText(ev)
	} else {
		text += "<b>Grammar:</b> 10/10\n\nPerfect answer!\n"
	}
	if st.Answer != "" && score < 10 {
		text += fmt.Sprintf("\n<b>Expected:</b> %s\n", html.EscapeString(st.Answer))
	}
	text += progressText(res)
	b.sendText(r, text, backKeyboard(r.lang(), cbGrammar))
	return nil
}

// startListening speaks sentence, or a fresh one when it is empty
func (b *Bot) startListening(ctx context.Context, r *request, sentence string) error {
	if b.speech == nil {
		b.sendText(r, "🎧 Listening exercises are not available right now.", backKeyboard(r.lang(), cbMainMenu))
		return nil
	}
	if sentence == "" {
		sentence = ai.ListeningTextWithFallback(ctx, b.tutor, r.user.Level, int(time.Now().UnixNano()%1000))
	}

	path, err := b.speech.Synthesize(ctx, sentence, fmt.Sprintf("listening_%d_%d.mp3", r.user.ID, time.Now().UnixNano()))
	if err != nil {
		return fmt.Errorf("failed to synthesize listening text: %w", err)
	}
	defer b.speech.Remove(path)

	st, ok := b.states.in(r.user.ID, stateListening)
	if !ok || st.Answer != sentence {
		b.states.Set(r.user.ID, &UserState{Action: stateListening, Answer: sentence})
	}

	voice := tgbotapi.NewAudio(r.chatID, tgbotapi.FilePath(path))
	voice.Caption = fmt.Sprintf("🎧 <b>%s</b>\n\n%s", T(r.lang(), "listening"), T(r.lang(), "listening_instruction"))
	voice.ParseMode = tgbotapi.ModeHTML
	voice.ReplyMarkup = listeningKeyboard(r.lang())
	if _, err := b.api.Send(voice); err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

func (b *Bot) checkListening(ctx context.Context, r *request, st *UserState, answer string) error {
	out, err := b.games.CheckListening(ctx, r.user.ID, answer, st.Answer)
	if err != nil {
		return err
	}
	if err := b.finishExercise(ctx, r, st, "", nil); err != nil {
		return err
	}

	verdict := "✅ <b>Excellent!</b>"
	if !out.Passed {
		verdict = "📝 <b>Keep practicing!</b>"
	}
	text := fmt.Sprintf("%s\n\n<b>Accuracy:</b> %.0f%%\n<b>Correct text:</b> %s\n<b>You wrote:</b> %s%s",
		verdict, out.Score*10, html.EscapeString(st.Answer), html.EscapeString(answer), progressText(out.Progress))
	b.sendText(r, text, backKeyboard(r.lang(), cbListening))
	return nil
}

func (b *Bot) startPractice(r *request) error {
	b.states.Set(r.user.ID, &UserState{Action: statePractice})
	text := fmt.Sprintf("✍️ <b>%s</b>\n\n%s\n\n🎤 %s", T(r.lang(), "practice"), T(r.lang(), "practice_instruction"), T(r.lang(), "voice_instruction"))
	b.sendText(r, text, backKeyboard(r.lang(), cbMainMenu))
	return nil
}

func (b *Bot) evaluatePractice(ctx context.Context, r *request, st *UserState, text string) error {
	ev := ai.EvaluateWithFallback(ctx, b.tutor, text, r.user.Level, r.lang())
	res, err := b.engine.AwardActivity(ctx, r.user.ID, progression.RewardPracticeSession)
	if err != nil {
		return err
	}
	score := ev.Score()
	if err := b.finishExercise(ctx, r, st, progression.ActivityPractice, &score); err != nil {
		return err
	}
	b.sendText(r, "📊 <b>Evaluation</b>\n\n"+evaluationText(ev)+progressText(res), backKeyboard(r.lang(), cbPractice))
	return nil
}

// finishExercise clears the state, logs the activity when one is given and
// books the time spent.
func (b *Bot) finishExercise(ctx context.Context, r *request, st *UserState, activity string, score *float64) error {
	b.states.Clear(r.user.ID)
	if activity != "" {
		if err := b.engine.RecordActivity(ctx, r.user.ID, activity, score); err != nil {
			return err
		}
	}
	return b.engine.AddStudyMinutes(ctx, r.user.ID, studyMinutes(st.Started, time.Now()))
}

func studyMinutes(started, now time.Time) int {
	m := int(now.Sub(started).Minutes())
	if m < 1 {
		return 1
	}
	if m > maxStudyMinute {
		return maxStudyMinute
	}
	return m
}
