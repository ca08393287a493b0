package bot

import (
	"context"
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/langbot/internal/ai"
	"github.com/example/langbot/internal/excel"
	"github.com/example/langbot/internal/progression"
)

const maxImportErrorsShown = 5

func (b *Bot) startImport(r *request) error {
	b.states.Set(r.user.ID, &UserState{Action: stateImport})
	text := fmt.Sprintf(`📥 <b>%s</b>

Send an .xlsx or .csv file with columns:
<b>A</b> - Russian word
<b>B</b> - Translation
<b>C</b> - Example (optional)
<b>D</b> - Level (optional)

The first row is treated as a header. /cancel to stop.`, T(r.lang(), "import_words"))
	b.sendText(r, text, backKeyboard(r.lang(), cbVocabulary))
	return nil
}

// tempPath returns a unique download location for a user file
func (b *Bot) tempPath(userID int64, name string) string {
	return filepath.Join(b.opts.TempDir, fmt.Sprintf("%d_%d_%s", userID, time.Now().UnixNano(), filepath.Base(name)))
}

func (b *Bot) fetchFile(ctx context.Context, fileID, dst string) error {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return fmt.Errorf("failed to resolve file: %w", err)
	}
	return b.speech.Download(ctx, url, dst)
}

func (b *Bot) handleDocument(ctx context.Context, r *request, doc *tgbotapi.Document) error {
	if _, ok := b.states.in(r.user.ID, stateImport); !ok {
		b.sendText(r, "Use /import before sending a vocabulary file.", nil)
		return nil
	}
	if doc.FileSize > b.opts.MaxUploadBytes {
		b.sendText(r, fmt.Sprintf("❌ File is too large (max %d MB).", b.opts.MaxUploadBytes>>20), nil)
		return nil
	}
	ext := strings.ToLower(filepath.Ext(doc.FileName))
	if ext != ".xlsx" && ext != ".xlsm" && ext != ".xls" && ext != ".csv" {
		b.sendText(r, "❌ Unsupported file type. Please send .xlsx or .csv.", nil)
		return nil
	}
	if b.speech == nil {
		b.sendText(r, "❌ File uploads are not available right now.", nil)
		return nil
	}

	path := b.tempPath(r.user.ID, doc.FileName)
	if err := b.fetchFile(ctx, doc.FileID, path); err != nil {
		return err
	}
	defer b.speech.Remove(path)

	cfg := excel.DefaultImportConfig()
	cfg.FilePath = path
	result, err := excel.ImportWords(ctx, b.engine, r.user.ID, cfg)
	if err != nil {
		b.log.Warn("Import failed", "user_id", r.user.ID, "error", err)
		b.sendText(r, "❌ Could not read the file: "+html.EscapeString(err.Error()), nil)
		return nil
	}
	b.states.Clear(r.user.ID)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📥 <b>Import Complete</b>\n\nProcessed: %d\nAdded: %d\nSkipped: %d\nErrors: %d\n",
		result.TotalProcessed, result.Created, result.Skipped, len(result.Errors))
	for i, e := range result.Errors {
		if i == maxImportErrorsShown {
			fmt.Fprintf(&sb, "... and %d more\n", len(result.Errors)-maxImportErrorsShown)
			break
		}
		fmt.Fprintf(&sb, "• %s\n", html.EscapeString(e))
	}
	sb.WriteString(progressText(result.Progress))
	b.sendText(r, sb.String(), vocabularyKeyboard(r.lang()))
	b.log.Info("Vocabulary imported", "user_id", r.user.ID, "created", result.Created)
	return nil
}

// handleVoice transcribes a voice message and treats it as the answer to the
// current exercise, or as a free speaking exercise.
func (b *Bot) handleVoice(ctx context.Context, r *request, voice *tgbotapi.Voice) error {
	if b.speech == nil {
		b.sendText(r, "🎤 Voice messages are not available right now.", nil)
		return nil
	}
	path := b.tempPath(r.user.ID, voice.FileID+".ogg")
	if err := b.fetchFile(ctx, voice.FileID, path); err != nil {
		return err
	}
	defer b.speech.Remove(path)

	text, err := b.speech.Transcribe(ctx, path)
	if err != nil {
		b.log.Warn("Transcription failed", "user_id", r.user.ID, "error", err)
		b.sendText(r, "❌ Sorry, I couldn't understand the audio. Please try again.", nil)
		return nil
	}
	if text == "" {
		b.sendText(r, "❌ Sorry, I couldn't understand the audio. Please try again.", nil)
		return nil
	}
	b.sendText(r, fmt.Sprintf("🎤 <b>You said:</b> <i>%s</i>", html.EscapeString(text)), nil)

	res, err := b.engine.AwardActivity(ctx, r.user.ID, progression.RewardVoiceMessage)
	if err != nil {
		return err
	}
	if st := b.states.Get(r.user.ID); st != nil && st.Action != stateImport && st.Action != stateFlashcards && st.Action != stateWordGame {
		if s := progressText(res); s != "" {
			b.sendText(r, strings.TrimSpace(s), nil)
		}
		return b.handleText(ctx, r, text)
	}

	ev := ai.EvaluateWithFallback(ctx, b.tutor, text, r.user.Level, r.lang())
	score := ev.Score()
	if err := b.engine.RecordActivity(ctx, r.user.ID, progression.ActivityVoice, &score); err != nil {
		return err
	}
	b.sendText(r, "📊 <b>Evaluation</b>\n\n"+evaluationText(ev)+progressText(res), backKeyboard(r.lang(), cbMainMenu))
	return nil
}
