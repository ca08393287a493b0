// Package config loads the bot configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the configuration for the bot
type Config struct {
	TelegramToken string  `mapstructure:"telegram_bot_token" validate:"required"`
	AdminIDsRaw   string  `mapstructure:"admin_ids"`
	AdminIDs      []int64 `mapstructure:"-"`
	DatabaseURL   string  `mapstructure:"database_url"`
	LogMode       string  `mapstructure:"log_mode" validate:"oneof=dev development prod production"`
	MetricsAddr   string  `mapstructure:"metrics_addr"`

	// AI providers. Groq is preferred for text when its key is set.
	OpenAIAPIKey     string  `mapstructure:"openai_api_key"`
	OpenAIModel      string  `mapstructure:"openai_model" validate:"required"`
	OpenAIBaseURL    string  `mapstructure:"openai_base_url" validate:"required,url"`
	GroqAPIKey       string  `mapstructure:"groq_api_key"`
	GroqModel        string  `mapstructure:"groq_model"`
	GroqBaseURL      string  `mapstructure:"groq_base_url" validate:"omitempty,url"`
	WhisperModel     string  `mapstructure:"whisper_model"`
	AIMaxTokens      int     `mapstructure:"ai_max_tokens" validate:"min=1"`
	AITemperature    float64 `mapstructure:"ai_temperature" validate:"gte=0,lte=2"`
	AIRequestTimeout int     `mapstructure:"ai_request_timeout" validate:"min=1"` // seconds
	AIMaxRetries     uint    `mapstructure:"ai_max_retries" validate:"min=1,max=10"`

	RedisURL           string `mapstructure:"redis_url"`
	UseRedis           bool   `mapstructure:"use_redis"`
	RateLimitEnabled   bool   `mapstructure:"rate_limit_enabled"`
	MaxRequestsPerHour int    `mapstructure:"max_requests_per_user_per_hour" validate:"min=1"`

	DailyGoalXP          int `mapstructure:"daily_goal_xp" validate:"min=1"`
	WordsPerLesson       int `mapstructure:"words_per_lesson" validate:"min=1,max=20"`
	FlashcardReviewLimit int `mapstructure:"flashcard_review_limit" validate:"min=1"`

	NotificationHour   int    `mapstructure:"notification_time_hour" validate:"min=0,max=23"`
	NotificationMinute int    `mapstructure:"notification_time_minute" validate:"min=0,max=59"`
	Timezone           string `mapstructure:"timezone"`

	TempDir     string `mapstructure:"temp_dir" validate:"required"`
	AudioDir    string `mapstructure:"audio_dir" validate:"required"`
	TTSLanguage string `mapstructure:"tts_language" validate:"required"`
}

var defaults = map[string]interface{}{
	"telegram_bot_token":             "",
	"admin_ids":                      "",
	"database_url":                   "sqlite://data/langbot.db",
	"log_mode":                       "dev",
	"metrics_addr":                   ":9090",
	"openai_api_key":                 "",
	"openai_model":                   "gpt-4",
	"openai_base_url":                "https://api.openai.com/v1",
	"groq_api_key":                   "",
	"groq_model":                     "llama-3.1-70b-versatile",
	"groq_base_url":                  "https://api.groq.com/openai/v1",
	"whisper_model":                  "whisper-1",
	"ai_max_tokens":                  500,
	"ai_temperature":                 0.7,
	"ai_request_timeout":             30,
	"ai_max_retries":                 3,
	"redis_url":                      "redis://localhost:6379/0",
	"use_redis":                      false,
	"rate_limit_enabled":             true,
	"max_requests_per_user_per_hour": 100,
	"daily_goal_xp":                  50,
	"words_per_lesson":               5,
	"flashcard_review_limit":         10,
	"notification_time_hour":         9,
	"notification_time_minute":       0,
	"timezone":                       "UTC",
	"temp_dir":                       "./temp",
	"audio_dir":                      "./audio",
	"tts_language":                   "ru",
}

// Load reads envFile (when present) into the process environment and builds
// the configuration from environment variables and defaults.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	ids, err := parseIDs(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_IDS: %w", err)
	}
	cfg.AdminIDs = ids

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	return &cfg, nil
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsAdmin reports whether userID is listed in ADMIN_IDS
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Location returns the configured time zone, UTC when it cannot be loaded
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RequestTimeout is the per-request timeout for AI providers
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.AIRequestTimeout) * time.Second
}

// TextProvider returns the base URL, key and model used for chat completions
func (c *Config) TextProvider() (baseURL, apiKey, model string) {
	if c.GroqAPIKey != "" {
		return c.GroqBaseURL, c.GroqAPIKey, c.GroqModel
	}
	return c.OpenAIBaseURL, c.OpenAIAPIKey, c.OpenAIModel
}
