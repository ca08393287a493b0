package audio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/langbot/internal/logger"
)

func TestSplitText(t *testing.T) {
	assert.Empty(t, SplitText("   ", 10))
	assert.Equal(t, []string{"привет мир"}, SplitText("привет   мир", 10))
	assert.Equal(t, []string{"один два", "три"}, SplitText("один два три", 8))
	assert.Equal(t, []string{"abcd", "ef", "g"}, SplitText("abcdef g", 4))

	long := strings.Repeat("слово ", 100)
	for _, chunk := range SplitText(long, 200) {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 200)
	}
}

func TestSynthesize(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate_tts", r.URL.Path)
		assert.Equal(t, "ru", r.URL.Query().Get("tl"))
		queries = append(queries, r.URL.Query().Get("q"))
		_, _ = w.Write([]byte("mp3:" + r.URL.Query().Get("idx") + ";"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	s, err := New(Options{TTSBaseURL: srv.URL, AudioDir: dir, Log: logger.Nop()})
	require.NoError(t, err)

	text := strings.Repeat("а", 150) + " " + strings.Repeat("б", 150)
	path, err := s.Synthesize(context.Background(), text, "../escape.mp3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.mp3"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mp3:0;mp3:1;", string(data))
	assert.Len(t, queries, 2)
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		body, _ := io.ReadAll(f)
		assert.Equal(t, "OggS", string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": " Привет, как дела? "}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	voice := filepath.Join(dir, "voice.ogg")
	require.NoError(t, os.WriteFile(voice, []byte("OggS"), 0o644))

	s, err := New(Options{STTBaseURL: srv.URL, STTAPIKey: "key", STTModel: "whisper-1", AudioDir: dir})
	require.NoError(t, err)

	text, err := s.Transcribe(context.Background(), voice)
	require.NoError(t, err)
	assert.Equal(t, "Привет, как дела?", text)
}

func TestTranscribe_NotConfigured(t *testing.T) {
	s, err := New(Options{AudioDir: t.TempDir()})
	require.NoError(t, err)

	_, err = s.Transcribe(context.Background(), "x.ogg")
	assert.ErrorIs(t, err, ErrTranscriptionUnavailable)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("voice-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	s, err := New(Options{AudioDir: dir})
	require.NoError(t, err)

	dst := filepath.Join(dir, "tmp", "v.ogg")
	require.NoError(t, s.Download(context.Background(), srv.URL+"/file", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "voice-bytes", string(data))

	assert.Error(t, s.Download(context.Background(), srv.URL+"/missing", filepath.Join(dir, "m.ogg")))
}

func TestCleanupOldFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := filepath.Join(dir, "old.mp3")
	fresh := filepath.Join(dir, "fresh.mp3")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(old, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	n, err := CleanupOldFiles(dir, 24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)

	n, err = CleanupOldFiles(filepath.Join(dir, "nope"), time.Hour, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}
