package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/langbot/internal/logger"
	"github.com/example/langbot/pkg/models"
)

type fakeProgress struct {
	users     []models.User
	usersErr  error
	sweeps    int
	refreshes int
}

func (f *fakeProgress) UsersForReminder(context.Context) ([]models.User, error) {
	return f.users, f.usersErr
}

func (f *fakeProgress) SweepStreaks(context.Context) (int, error) {
	f.sweeps++
	return 2, nil
}

func (f *fakeProgress) RefreshRanks(context.Context) error {
	f.refreshes++
	return nil
}

type fakeNotifier struct {
	sent []int64
	fail map[int64]bool
}

func (f *fakeNotifier) SendReminder(_ context.Context, u models.User) error {
	if f.fail[u.ID] {
		return errors.New("blocked by user")
	}
	f.sent = append(f.sent, u.ID)
	return nil
}

func TestSendReminders(t *testing.T) {
	p := &fakeProgress{users: []models.User{{ID: 1}, {ID: 2}, {ID: 3}}}
	n := &fakeNotifier{fail: map[int64]bool{2: true}}
	s := New(p, n, Options{}, logger.Nop())

	require.NoError(t, s.SendReminders(context.Background()))
	assert.Equal(t, []int64{1, 3}, n.sent)

	p.usersErr = errors.New("db down")
	assert.Error(t, s.SendReminders(context.Background()))
}

func TestSweepAndRefresh(t *testing.T) {
	p := &fakeProgress{}
	s := New(p, &fakeNotifier{}, Options{}, logger.Nop())

	require.NoError(t, s.SweepStreaks(context.Background()))
	require.NoError(t, s.RefreshLeaderboard(context.Background()))
	assert.Equal(t, 1, p.sweeps)
	assert.Equal(t, 1, p.refreshes)
}

func TestCleanupFiles(t *testing.T) {
	audioDir := t.TempDir()
	tempDir := t.TempDir()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	old := filepath.Join(audioDir, "old.mp3")
	keep := filepath.Join(tempDir, "keep.ogg")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(old, now.Add(-25*time.Hour), now.Add(-25*time.Hour)))
	require.NoError(t, os.Chtimes(keep, now.Add(-time.Hour), now.Add(-time.Hour)))

	s := New(&fakeProgress{}, &fakeNotifier{}, Options{CleanupDirs: []string{audioDir, tempDir}}, logger.Nop())
	s.now = func() time.Time { return now }

	require.NoError(t, s.CleanupFiles(context.Background()))
	assert.NoFileExists(t, old)
	assert.FileExists(t, keep)
}

func TestRegister(t *testing.T) {
	s := New(&fakeProgress{}, &fakeNotifier{}, Options{ReminderHour: 19, ReminderMinute: 30}, logger.Nop())
	require.NoError(t, s.register())
	assert.Len(t, s.scheduler.Jobs(), 4)

	bad := New(&fakeProgress{}, &fakeNotifier{}, Options{ReminderHour: 25}, logger.Nop())
	assert.Error(t, bad.register())
}

func TestRunRecordsFailure(t *testing.T) {
	s := New(&fakeProgress{}, &fakeNotifier{}, Options{}, logger.Nop())
	called := false
	s.run("test", func(ctx context.Context) error {
		called = true
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return errors.New("boom")
	})
	assert.True(t, called)
}
