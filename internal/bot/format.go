package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/example/langbot/internal/ai"
	"github.com/example/langbot/internal/progression"
)

var rankMedals = map[int]string{1: "🥇", 2: "🥈", 3: "🥉"}

func progressBar(current, target, length int) string {
	if target <= 0 {
		return strings.Repeat("□", length)
	}
	filled := current * length / target
	if filled > length {
		filled = length
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("■", filled) + strings.Repeat("□", length-filled)
}

func streakEmoji(days int) string {
	switch {
	case days == 0:
		return "🔵"
	case days < 3:
		return "🔥"
	case days < 7:
		return "🔥🔥"
	case days < 30:
		return "🔥🔥🔥"
	default:
		return "💎🔥💎"
	}
}

func medal(rank int) string {
	if m, ok := rankMedals[rank]; ok {
		return m
	}
	return fmt.Sprintf("%d.", rank)
}

// progressText renders XP, level-ups and unlocked badges of a result
func progressText(res progression.Result) string {
	var sb strings.Builder
	if res.XPAwarded > 0 {
		fmt.Fprintf(&sb, "\n✨ +%d XP!", res.XPAwarded)
	}
	for _, lvl := range res.LevelUps {
		fmt.Fprintf(&sb, "\n🎉 Level up! You reached <b>%s</b>!", lvl)
	}
	for _, a := range res.Achievements {
		fmt.Fprintf(&sb, "\n🏅 Achievement unlocked: <b>%s</b> (+%d XP)", html.EscapeString(a.Title), a.XP)
	}
	return sb.String()
}

func evaluationText(ev *ai.Evaluation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Grammar:</b> %.0f/10\n", ev.GrammarScore)
	fmt.Fprintf(&sb, "<b>Vocabulary:</b> %.0f/10\n", ev.VocabularyScore)
	if ev.Feedback != "" {
		fmt.Fprintf(&sb, "\n<b>Feedback:</b>\n%s\n", html.EscapeString(ev.Feedback))
	}
	if len(ev.Corrections) > 0 {
		sb.WriteString("\n<b>Corrections:</b>\n")
		for _, c := range ev.Corrections {
			fmt.Fprintf(&sb, "• %s\n", html.EscapeString(c))
		}
	}
	return sb.String()
}

func merge(dst *progression.Result, src progression.Result) {
	dst.XPAwarded += src.XPAwarded
	dst.LevelUps = append(dst.LevelUps, src.LevelUps...)
	dst.Achievements = append(dst.Achievements, src.Achievements...)
}
