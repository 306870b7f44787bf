// Package yallalock implements the file-system-backed advisory lock
// manager described in spec.md §4.9: one text record per lock name,
// written atomically, with staleness and polling helpers.
package yallalock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors. Lock operations never panic or otherwise surface an
// unhandled exception; every failure mode is represented by a bool/error
// return, per spec.md §4.9 and §7.
var (
	ErrNotOwner = errors.New("yallalock: current process does not own this lock")
)

// Info is the parsed contents of a lock file.
type Info struct {
	PID       int
	Host      string
	Timestamp time.Time
	Name      string
	token     string // ownership token; persisted so Release/Refresh can
	// tell this process's own lock apart from one re-acquired elsewhere
}

// Manager administers locks rooted at a single directory.
type Manager struct {
	dir          string
	pollInterval time.Duration
	host         string
	pid          int
	token        string
}

// New constructs a Manager whose lock files live under dir (created if
// missing). pollInterval defaults to 50ms when zero or negative.
func New(dir string, pollInterval time.Duration) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("yallalock: creating lock dir: %w", err)
	}
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	host, _ := os.Hostname()

	return &Manager{
		dir:          dir,
		pollInterval: pollInterval,
		host:         host,
		pid:          os.Getpid(),
		token:        uuid.NewString(),
	}, nil
}

func (m *Manager) pathFor(name string) string {
	safe := strings.ReplaceAll(name, string(filepath.Separator), "_")
	return filepath.Join(m.dir, safe+".lock")
}

// GetLockInfo reads and parses the lock file for name. Returns
// (nil, false) if it isn't currently held.
func (m *Manager) GetLockInfo(name string) (*Info, bool) {
	data, err := os.ReadFile(m.pathFor(name))
	if err != nil {
		return nil, false
	}
	info := parseRecord(data)
	info.Name = name
	return info, true
}

func parseRecord(data []byte) *Info {
	info := &Info{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, val := parts[0], parts[1]
		switch key {
		case "pid":
			info.PID, _ = strconv.Atoi(val)
		case "host":
			info.Host = val
		case "timestamp":
			if sec, err := strconv.ParseInt(val, 10, 64); err == nil {
				info.Timestamp = time.Unix(sec, 0)
			}
		case "name":
			info.Name = val
		case "token":
			info.token = val
		}
	}
	return info
}

func (info *Info) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pid=%d\n", info.PID)
	fmt.Fprintf(&b, "host=%s\n", info.Host)
	fmt.Fprintf(&b, "timestamp=%d\n", info.Timestamp.Unix())
	fmt.Fprintf(&b, "name=%s\n", info.Name)
	fmt.Fprintf(&b, "token=%s\n", info.token)
	return b.String()
}

// pidIsLive reports whether pid names a live process on this host. A
// remote host always reads as "live" since there's no local way to check.
func pidIsLive(info *Info, localHost string) bool {
	if info.Host != "" && info.Host != localHost {
		return true
	}
	return processIsAlive(info.PID)
}

// IsLocked reports whether name is currently held by a live owner.
func (m *Manager) IsLocked(name string) bool {
	info, ok := m.GetLockInfo(name)
	if !ok {
		return false
	}
	return pidIsLive(info, m.host)
}

// IsStale reports whether name is held but its timestamp is older than
// maxAge.
func (m *Manager) IsStale(name string, maxAge time.Duration) bool {
	info, ok := m.GetLockInfo(name)
	if !ok {
		return false
	}
	return time.Since(info.Timestamp) > maxAge
}

func (m *Manager) writeRecord(name string) error {
	info := &Info{
		PID:       m.pid,
		Host:      m.host,
		Timestamp: time.Now(),
		Name:      name,
		token:     m.token,
	}

	path := m.pathFor(name)
	tmp := path + ".tmp." + uuid.NewString()

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(info.render()); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// TryAcquire attempts to take name without blocking. Returns true on
// success; false if already held by a live owner (never raises).
func (m *Manager) TryAcquire(name string) bool {
	path := m.pathFor(name)

	info := &Info{PID: m.pid, Host: m.host, Timestamp: time.Now(), Name: name, token: m.token}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err == nil {
		_, werr := f.WriteString(info.render())
		cerr := f.Close()
		if werr != nil || cerr != nil {
			os.Remove(path)
			return false
		}
		return true
	}
	if !os.IsExist(err) {
		return false
	}

	// Already exists: only take over a dead owner's lock.
	existing, ok := m.GetLockInfo(name)
	if !ok || pidIsLive(existing, m.host) {
		return false
	}
	return m.writeRecord(name) == nil
}

// Acquire polls at a fixed interval until name is free or timeout
// elapses, then takes it. Returns true/false without raising.
func (m *Manager) Acquire(name string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if m.TryAcquire(name) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(m.pollInterval)
	}
}

// Wait blocks until name is not held, without acquiring it.
func (m *Manager) Wait(name string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !m.IsLocked(name) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(m.pollInterval)
	}
}

// Release removes name's file, but only if this process owns it.
func (m *Manager) Release(name string) error {
	info, ok := m.GetLockInfo(name)
	if !ok {
		return nil
	}
	if info.token != m.token {
		return ErrNotOwner
	}
	return m.unlink(name)
}

// ForceRelease removes name's file unconditionally.
func (m *Manager) ForceRelease(name string) error {
	return m.unlink(name)
}

func (m *Manager) unlink(name string) error {
	err := os.Remove(m.pathFor(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Refresh overwrites name's timestamp, but only if this process owns it.
func (m *Manager) Refresh(name string) error {
	info, ok := m.GetLockInfo(name)
	if !ok {
		return fmt.Errorf("yallalock: %q is not held", name)
	}
	if info.token != m.token {
		return ErrNotOwner
	}
	return m.writeRecord(name)
}

// ListLocks returns the info for every lock currently present on disk.
func (m *Manager) ListLocks() []*Info {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil
	}
	var out []*Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".lock")
		if info, ok := m.GetLockInfo(name); ok {
			out = append(out, info)
		}
	}
	return out
}

// ClearStale removes every lock whose timestamp exceeds maxAge,
// regardless of ownership, and returns how many were removed.
func (m *Manager) ClearStale(maxAge time.Duration) int {
	cleared := 0
	for _, info := range m.ListLocks() {
		if time.Since(info.Timestamp) > maxAge {
			if m.ForceRelease(info.Name) == nil {
				cleared++
			}
		}
	}
	return cleared
}
