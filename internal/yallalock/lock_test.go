package yallalock

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTryAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	m, err := New(filepath.Join(dir, "locks"), 0)
	require.NoError(t, err)

	require.True(t, m.TryAcquire("build"))
	require.True(t, m.IsLocked("build"))

	// A second manager (distinct token, same pid/host) can't take it.
	other, err := New(filepath.Join(dir, "locks"), 0)
	require.NoError(t, err)
	require.False(t, other.TryAcquire("build"))

	require.NoError(t, m.Release("build"))
	require.False(t, m.IsLocked("build"))
}

func TestReleaseRequiresOwnership(t *testing.T) {
	dir := t.TempDir()
	m, err := New(filepath.Join(dir, "locks"), 0)
	require.NoError(t, err)
	other, err := New(filepath.Join(dir, "locks"), 0)
	require.NoError(t, err)

	require.True(t, m.TryAcquire("build"))
	require.ErrorIs(t, other.Release("build"), ErrNotOwner)
	require.True(t, m.IsLocked("build"))
}

func TestForceReleaseIgnoresOwnership(t *testing.T) {
	dir := t.TempDir()
	m, err := New(filepath.Join(dir, "locks"), 0)
	require.NoError(t, err)
	other, err := New(filepath.Join(dir, "locks"), 0)
	require.NoError(t, err)

	require.True(t, m.TryAcquire("build"))
	require.NoError(t, other.ForceRelease("build"))
	require.False(t, m.IsLocked("build"))
}

func TestAcquireWaitsForRelease(t *testing.T) {
	dir := t.TempDir()
	m, err := New(filepath.Join(dir, "locks"), 5*time.Millisecond)
	require.NoError(t, err)
	other, err := New(filepath.Join(dir, "locks"), 5*time.Millisecond)
	require.NoError(t, err)

	require.True(t, m.TryAcquire("build"))

	done := make(chan bool, 1)
	go func() {
		done <- other.Acquire("build", 200*time.Millisecond)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Release("build"))

	require.True(t, <-done)
	require.True(t, other.IsLocked("build"))
}

func TestAcquireTimesOut(t *testing.T) {
	dir := t.TempDir()
	m, err := New(filepath.Join(dir, "locks"), 5*time.Millisecond)
	require.NoError(t, err)
	other, err := New(filepath.Join(dir, "locks"), 5*time.Millisecond)
	require.NoError(t, err)

	require.True(t, m.TryAcquire("build"))
	require.False(t, other.Acquire("build", 20*time.Millisecond))
}

func TestWaitReturnsOnceUnlocked(t *testing.T) {
	dir := t.TempDir()
	m, err := New(filepath.Join(dir, "locks"), 5*time.Millisecond)
	require.NoError(t, err)

	require.True(t, m.TryAcquire("build"))

	done := make(chan bool, 1)
	go func() {
		done <- m.Wait("build", 200*time.Millisecond)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Release("build"))
	require.True(t, <-done)
}

func TestTryAcquireTakesOverDeadOwner(t *testing.T) {
	dir := t.TempDir()
	m, err := New(filepath.Join(dir, "locks"), 0)
	require.NoError(t, err)

	// Fabricate a record for a pid that can't possibly be alive.
	stale := &Info{PID: 999999999, Host: m.host, Timestamp: time.Now(), Name: "build", token: "dead"}
	require.NoError(t, writeInfoForTest(m, stale))

	require.True(t, m.TryAcquire("build"))
	info, ok := m.GetLockInfo("build")
	require.True(t, ok)
	require.Equal(t, m.pid, info.PID)
}

func TestIsStale(t *testing.T) {
	dir := t.TempDir()
	m, err := New(filepath.Join(dir, "locks"), 0)
	require.NoError(t, err)
	require.True(t, m.TryAcquire("build"))

	require.False(t, m.IsStale("build", time.Hour))
	require.True(t, m.IsStale("build", -time.Second))
}

func TestRefreshRequiresOwnership(t *testing.T) {
	dir := t.TempDir()
	m, err := New(filepath.Join(dir, "locks"), 0)
	require.NoError(t, err)
	other, err := New(filepath.Join(dir, "locks"), 0)
	require.NoError(t, err)

	require.True(t, m.TryAcquire("build"))
	require.NoError(t, m.Refresh("build"))
	require.ErrorIs(t, other.Refresh("build"), ErrNotOwner)
}

func TestListLocksAndClearStale(t *testing.T) {
	dir := t.TempDir()
	m, err := New(filepath.Join(dir, "locks"), 0)
	require.NoError(t, err)

	require.True(t, m.TryAcquire("fresh"))
	stale := &Info{PID: 999999999, Host: m.host, Timestamp: time.Now().Add(-time.Hour), Name: "stale", token: "dead"}
	require.NoError(t, writeInfoForTest(m, stale))

	locks := m.ListLocks()
	require.Len(t, locks, 2)

	cleared := m.ClearStale(time.Minute)
	require.Equal(t, 1, cleared)
	require.True(t, m.IsLocked("fresh"))
	_, ok := m.GetLockInfo("stale")
	require.False(t, ok)
}

// writeInfoForTest bypasses Manager's own pid/token so tests can plant a
// record belonging to a different, definitely-dead owner.
func writeInfoForTest(m *Manager, info *Info) error {
	path := m.pathFor(info.Name)
	return os.WriteFile(path, []byte(info.render()), 0o600)
}
