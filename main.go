package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/langbot/internal/ai"
	"github.com/example/langbot/internal/audio"
	"github.com/example/langbot/internal/bot"
	"github.com/example/langbot/internal/clock"
	"github.com/example/langbot/internal/config"
	"github.com/example/langbot/internal/database"
	"github.com/example/langbot/internal/logger"
	"github.com/example/langbot/internal/metrics"
	"github.com/example/langbot/internal/progression"
	"github.com/example/langbot/internal/ratelimit"
	"github.com/example/langbot/internal/scheduler"
)

const (
	groqWhisperModel = "whisper-large-v3"
	shutdownTimeout  = 5 * time.Second
)

func main() {
	envFile := flag.String("env", ".env", "path to the .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Bot exited with error", "error", err)
	}
	log.Info("Bot stopped successfully")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer store.Close()

	rules := progression.DefaultRules()
	rules.DailyGoal = cfg.DailyGoalXP
	engine := progression.NewEngine(store, clock.NewSystem(cfg.Location()), rules, log)

	deps := bot.Deps{Engine: engine}

	baseURL, apiKey, model := cfg.TextProvider()
	tutor, err := ai.New(ai.Options{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Model:       model,
		MaxTokens:   cfg.AIMaxTokens,
		Temperature: cfg.AITemperature,
		Timeout:     cfg.RequestTimeout(),
		MaxRetries:  cfg.AIMaxRetries,
		Log:         log,
	})
	switch {
	case errors.Is(err, ai.ErrNoAPIKey):
		log.Warn("No AI API key set, using built-in exercises")
	case err != nil:
		return err
	default:
		deps.Tutor = tutor
	}

	speech, err := newSpeech(cfg, log)
	if err != nil {
		return err
	}
	deps.Speech = speech

	if limiter := newLimiter(cfg, log); limiter != nil {
		if c, ok := limiter.(io.Closer); ok {
			defer c.Close()
		}
		deps.Limiter = limiter
	}

	metricsServer := metrics.NewServer(cfg.MetricsAddr)
	metricsServer.Start(func(err error) {
		log.Error("Metrics server failed", "error", err)
	})

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to create bot API: %w", err)
	}
	log.Info("Authorized on account", "username", api.Self.UserName)

	b := bot.New(api, deps, bot.Options{
		AdminIDs:       cfg.AdminIDs,
		WordsPerLesson: cfg.WordsPerLesson,
		ReviewLimit:    cfg.FlashcardReviewLimit,
		TempDir:        cfg.TempDir,
	}, log)

	jobs := scheduler.New(engine, b, scheduler.Options{
		ReminderHour:   cfg.NotificationHour,
		ReminderMinute: cfg.NotificationMinute,
		Location:       cfg.Location(),
		CleanupDirs:    []string{cfg.AudioDir, cfg.TempDir},
	}, log)
	if err := jobs.Start(); err != nil {
		return err
	}
	defer jobs.Stop()

	err = b.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := metricsServer.Stop(shutdownCtx); serr != nil {
		log.Warn("Error stopping metrics server", "error", serr)
	}
	return err
}

// newSpeech prefers Groq for transcription when its key is set
func newSpeech(cfg *config.Config, log *logger.Logger) (*audio.Service, error) {
	opts := audio.Options{
		STTBaseURL: cfg.OpenAIBaseURL,
		STTAPIKey:  cfg.OpenAIAPIKey,
		STTModel:   cfg.WhisperModel,
		Language:   cfg.TTSLanguage,
		AudioDir:   cfg.AudioDir,
		Timeout:    cfg.RequestTimeout(),
		Log:        log,
	}
	if cfg.GroqAPIKey != "" {
		opts.STTBaseURL = cfg.GroqBaseURL
		opts.STTAPIKey = cfg.GroqAPIKey
		opts.STTModel = groqWhisperModel
	}
	if err := os.MkdirAll(cfg.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return audio.New(opts)
}

// newLimiter returns nil when rate limiting is disabled
func newLimiter(cfg *config.Config, log *logger.Logger) ratelimit.Limiter {
	if !cfg.RateLimitEnabled {
		return nil
	}
	if cfg.UseRedis {
		rl, err := ratelimit.NewRedis(cfg.RedisURL, cfg.MaxRequestsPerHour, time.Hour, log)
		if err == nil {
			return rl
		}
		log.Warn("Redis unavailable, using in-memory rate limiter", "error", err)
	}
	return ratelimit.NewMemory(cfg.MaxRequestsPerHour, time.Hour)
}
