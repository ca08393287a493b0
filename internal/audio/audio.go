// Package audio generates speech for listening exercises and transcribes
// voice messages.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/example/langbot/internal/logger"
	"github.com/example/langbot/internal/metrics"
)

// ErrTranscriptionUnavailable is returned when no speech-to-text key is configured
var ErrTranscriptionUnavailable = errors.New("speech recognition is not configured")

const (
	defaultTTSBaseURL = "https://translate.google.com"
	maxChunkRunes     = 200
)

// Options configures the audio service
type Options struct {
	TTSBaseURL string
	STTBaseURL string
	STTAPIKey  string
	STTModel   string
	Language   string
	AudioDir   string
	Timeout    time.Duration
	Log        *logger.Logger
}

// Service wraps the text-to-speech and speech-to-text providers
type Service struct {
	tts      *resty.Client
	stt      *resty.Client
	files    *resty.Client
	sttModel string
	language string
	audioDir string
	log      *logger.Logger
}

type transcription struct {
	Text string `json:"text"`
}

// New creates the service and its audio directory
func New(opts Options) (*Service, error) {
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.TTSBaseURL == "" {
		opts.TTSBaseURL = defaultTTSBaseURL
	}
	if opts.Language == "" {
		opts.Language = "ru"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if err := os.MkdirAll(opts.AudioDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}

	s := &Service{
		tts: resty.New().
			SetBaseURL(strings.TrimRight(opts.TTSBaseURL, "/")).
			SetHeader("User-Agent", "Mozilla/5.0").
			SetTimeout(opts.Timeout),
		files:    resty.New().SetTimeout(opts.Timeout),
		sttModel: opts.STTModel,
		language: opts.Language,
		audioDir: opts.AudioDir,
		log:      opts.Log.With("component", "audio"),
	}
	if opts.STTAPIKey != "" {
		s.stt = resty.New().
			SetBaseURL(strings.TrimRight(opts.STTBaseURL, "/")).
			SetAuthToken(opts.STTAPIKey).
			SetTimeout(opts.Timeout)
	}
	return s, nil
}

// Dir is where generated audio is written
func (s *Service) Dir() string {
	return s.audioDir
}

// Synthesize renders text to an mp3 file named filename inside the audio
// directory and returns its path.
func (s *Service) Synthesize(ctx context.Context, text, filename string) (string, error) {
	chunks := SplitText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return "", errors.New("nothing to synthesize")
	}

	var audio []byte
	for i, chunk := range chunks {
		resp, err := s.tts.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"ie":      "UTF-8",
				"client":  "tw-ob",
				"tl":      s.language,
				"q":       chunk,
				"total":   strconv.Itoa(len(chunks)),
				"idx":     strconv.Itoa(i),
				"textlen": strconv.Itoa(utf8.RuneCountInString(chunk)),
			}).
			Get("/translate_tts")
		if err != nil {
			metrics.AIRequests.WithLabelValues("tts", "error").Inc()
			return "", fmt.Errorf("failed to request speech: %w", err)
		}
		if resp.IsError() {
			metrics.AIRequests.WithLabelValues("tts", "error").Inc()
			return "", fmt.Errorf("speech request failed with status %d", resp.StatusCode())
		}
		audio = append(audio, resp.Body()...)
	}
	metrics.AIRequests.WithLabelValues("tts", "ok").Inc()

	path := filepath.Join(s.audioDir, filepath.Base(filename))
	if err := os.WriteFile(path, audio, 0644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	s.log.Debug("Audio generated", "path", path, "chunks", len(chunks))
	return path, nil
}

// Transcribe converts a voice recording to text
func (s *Service) Transcribe(ctx context.Context, path string) (string, error) {
	if s.stt == nil {
		return "", ErrTranscriptionUnavailable
	}

	resp, err := s.stt.R().
		SetContext(ctx).
		SetFile("file", path).
		SetFormData(map[string]string{
			"model":    s.sttModel,
			"language": s.language,
		}).
		SetResult(&transcription{}).
		Post("/audio/transcriptions")
	if err != nil {
		metrics.AIRequests.WithLabelValues("transcribe", "error").Inc()
		return "", fmt.Errorf("failed to transcribe: %w", err)
	}
	if resp.IsError() {
		metrics.AIRequests.WithLabelValues("transcribe", "error").Inc()
		return "", fmt.Errorf("transcription failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	metrics.AIRequests.WithLabelValues("transcribe", "ok").Inc()

	result, _ := resp.Result().(*transcription)
	if result == nil {
		return "", nil
	}
	return strings.TrimSpace(result.Text), nil
}

// Download fetches url into dst, creating parent directories
func (s *Service) Download(ctx context.Context, url, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	resp, err := s.files.R().SetContext(ctx).SetOutput(dst).Get(url)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	if resp.IsError() {
		os.Remove(dst)
		return fmt.Errorf("download failed with status %d", resp.StatusCode())
	}
	return nil
}

// Remove deletes a generated or downloaded file, ignoring missing files
func (s *Service) Remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("Cleanup error", "path", path, "error", err)
	}
}

// SplitText breaks text into chunks of at most limit runes on word boundaries.
// Single words longer than limit are cut.
func SplitText(text string, limit int) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		for utf8.RuneCountInString(word) > limit {
			flush()
			r := []rune(word)
			chunks = append(chunks, string(r[:limit]))
			word = string(r[limit:])
		}
		n := utf8.RuneCountInString(word)
		if curLen > 0 && curLen+1+n > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += n
	}
	flush()
	return chunks
}

// CleanupOldFiles removes regular files in dir last modified more than
// maxAge before now. It returns how many files were removed.
func CleanupOldFiles(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}
