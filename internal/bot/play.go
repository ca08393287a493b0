package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/example/langbot/internal/ai"
	"github.com/example/langbot/internal/games"
	"github.com/example/langbot/pkg/models"
)

var duelOpeners = []string{
	"Привет! Как тебя зовут и откуда ты?",
	"Что ты обычно делаешь в выходные?",
	"Расскажи о своей семье.",
}

var fallbackMission = ai.Mission{
	Title:     "Кафе",
	Scenario:  "You are undercover in a Moscow café and must order without raising suspicion.",
	Objective: "Order a coffee and a pastry, then ask for the bill.",
	Keywords:  []string{"кофе", "пожалуйста", "счёт"},
}

func (b *Bot) duelPrompt(ctx context.Context, level models.Level, round int, lang string) string {
	if b.tutor != nil {
		if p, err := b.tutor.GenerateConversationPrompt(ctx, level, round, lang); err == nil && p != "" {
			return p
		}
	}
	return duelOpeners[(round-1)%len(duelOpeners)]
}

func (b *Bot) duelReply(ctx context.Context, userText string, level models.Level, round int, lang string) string {
	if b.tutor != nil {
		if p, err := b.tutor.GenerateConversationResponse(ctx, userText, level); err == nil && p != "" {
			return p
		}
	}
	return b.duelPrompt(ctx, level, round, lang)
}

func (b *Bot) startDuel(ctx context.Context, r *request) error {
	duel := &games.Duel{}
	b.states.Set(r.user.ID, &UserState{Action: stateDuel, Duel: duel})
	prompt := b.duelPrompt(ctx, r.user.Level, duel.Round(), r.lang())
	b.sendText(r, duelRoundText(duel.Round(), prompt), backKeyboard(r.lang(), cbGames))
	return nil
}

func duelRoundText(round int, prompt string) string {
	return fmt.Sprintf("🗣️ <b>Speaking Duel - Round %d/%d</b>\n\n<b>AI:</b> %s\n\n<i>Reply in Russian:</i>",
		round, games.DuelRounds, html.EscapeString(prompt))
}

func (b *Bot) duelTurn(ctx context.Context, r *request, st *UserState, text string) error {
	ev := ai.EvaluateWithFallback(ctx, b.tutor, text, r.user.Level, r.lang())
	if !st.Duel.Record(ev.Score()) {
		reply := b.duelReply(ctx, text, r.user.Level, st.Duel.Round(), r.lang())
		b.sendText(r, duelRoundText(st.Duel.Round(), reply), backKeyboard(r.lang(), cbGames))
		return nil
	}

	out, err := b.games.FinishDuel(ctx, r.user.ID, st.Duel)
	if err != nil {
		return err
	}
	if err := b.finishExercise(ctx, r, st, "", nil); err != nil {
		return err
	}
	verdict := "🏆 Victory!"
	if !out.Passed {
		verdict = "💪 Good Try!"
	}
	msg := fmt.Sprintf("⚔️ <b>Duel Complete!</b>\n\n%s\n\n<b>Score:</b> %.1f/10\n\n%s%s",
		verdict, out.Score, evaluationText(ev), progressText(out.Progress))
	b.sendText(r, msg, gamesKeyboard(r.lang()))
	return nil
}

func (b *Bot) startMission(ctx context.Context, r *request) error {
	mission := &fallbackMission
	if b.tutor != nil {
		if m, err := b.tutor.GenerateSpyMission(ctx, r.user.Level, r.lang()); err == nil && m.Objective != "" {
			mission = m
		}
	}
	b.states.Set(r.user.ID, &UserState{Action: stateMission, Mission: mission})

	text := fmt.Sprintf("🕵️ <b>Spy Mission: %s</b>\n\n%s\n\n<b>Your Mission:</b>\n%s",
		html.EscapeString(mission.Title), html.EscapeString(mission.Scenario), html.EscapeString(mission.Objective))
	if len(mission.Keywords) > 0 {
		text += fmt.Sprintf("\n\n<b>Use:</b> %s", html.EscapeString(strings.Join(mission.Keywords, ", ")))
	}
	text += "\n\n<i>Complete your mission in Russian:</i>"
	b.sendText(r, text, backKeyboard(r.lang(), cbGames))
	return nil
}

func (b *Bot) completeMission(ctx context.Context, r *request, st *UserState, text string) error {
	ev := ai.EvaluateWithFallback(ctx, b.tutor, text, r.user.Level, r.lang())
	out, err := b.games.FinishMission(ctx, r.user.ID, ev.Score())
	if err != nil {
		return err
	}
	if err := b.finishExercise(ctx, r, st, "", nil); err != nil {
		return err
	}

	var verdict string
	switch {
	case out.Passed:
		verdict = "✅ Mission Accomplished!"
	case out.Score >= 5:
		verdict = "🎯 Mission Complete"
	default:
		verdict = "⚠️ Mission Partial"
	}
	msg := fmt.Sprintf("🕵️ <b>%s</b>\n\n<b>Score:</b> %.1f/10\n\n%s%s", verdict, out.Score, evaluationText(ev), progressText(out.Progress))
	b.sendText(r, msg, gamesKeyboard(r.lang()))
	return nil
}

func (b *Bot) startWordGame(ctx context.Context, r *request) error {
	words, err := b.engine.ListVocabulary(ctx, r.user.ID, 0)
	if err != nil {
		return err
	}
	q, err := b.questions.WordQuestion(words)
	if err != nil {
		b.sendText(r, fmt.Sprintf("🎯 You need at least %d words with different translations to play. Add more words first!", games.WordGameOptions),
			vocabularyKeyboard(r.lang()))
		return nil
	}

	st, ok := b.states.in(r.user.ID, stateWordGame)
	if !ok {
		st = &UserState{Action: stateWordGame}
	}
	st.Question = q
	b.states.Set(r.user.ID, st)

	text := fmt.Sprintf("🎯 <b>%s</b>\n\nWhat does <b>%s</b> mean?", T(r.lang(), "word_game"), html.EscapeString(q.Item.Word))
	b.sendText(r, text, wordGameKeyboard(r.lang(), q.Options))
	return nil
}

func (b *Bot) checkWordGame(ctx context.Context, r *request, choice string) error {
	st, ok := b.states.in(r.user.ID, stateWordGame)
	if !ok || st.Question == nil {
		return b.startWordGame(ctx, r)
	}
	idx, err := strconv.Atoi(choice)
	if err != nil {
		b.log.Debug("Bad word game choice", "choice", choice)
		return nil
	}

	q := st.Question
	st.Question = nil
	out, err := b.games.AnswerWordGame(ctx, r.user.ID, q, idx)
	if err != nil {
		return err
	}
	if err := b.engine.AddStudyMinutes(ctx, r.user.ID, 1); err != nil {
		return err
	}

	var text string
	if out.Passed {
		text = fmt.Sprintf("✅ Correct! <b>%s</b> = %s", html.EscapeString(q.Item.Word), html.EscapeString(q.Answer()))
		b.notify(r, fmt.Sprintf("✅ +%d XP", out.XP))
	} else {
		text = fmt.Sprintf("❌ Wrong! <b>%s</b> = %s", html.EscapeString(q.Item.Word), html.EscapeString(q.Answer()))
		b.notify(r, "❌ Wrong!")
	}
	b.sendText(r, text+progressText(out.Progress), nil)
	return b.startWordGame(ctx, r)
}
