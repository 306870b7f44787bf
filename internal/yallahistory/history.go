// Package yallahistory implements the REPL's persistent, navigable input
// log described in spec.md §4.2: a flat UTF-8 line file with a cursor
// for previous/next navigation and a search helper.
package yallahistory

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Manager is the history store. It is not safe for concurrent use from
// multiple goroutines; like the rest of the REPL's mutable state it is
// owned by the single session loop.
type Manager struct {
	path             string
	maxEntries       int
	ignoreDuplicates bool

	entries []string
	cursor  int // index of the entry last returned by Previous/Next; len(entries) means "past the end"
}

// New constructs a Manager backed by path, loading any existing entries.
// A read failure (missing file, permission denied, corrupt content) is
// not fatal: the manager starts with an empty in-memory log, matching
// spec.md §4.2 ("If the file cannot be read, start with an empty log").
func New(path string, maxEntries int, ignoreDuplicates bool) *Manager {
	m := &Manager{
		path:             path,
		maxEntries:       maxEntries,
		ignoreDuplicates: ignoreDuplicates,
	}
	m.entries = readEntries(path)
	m.cursor = len(m.entries)
	return m
}

func readEntries(path string) []string {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		entries = append(entries, line)
	}
	return entries
}

// Add appends line to the history, skipping blank lines and, when
// ignoreDuplicates is set, lines identical to the immediately previous
// entry. The log is truncated to maxEntries from the head and persisted.
func (m *Manager) Add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if m.ignoreDuplicates && len(m.entries) > 0 && m.entries[len(m.entries)-1] == line {
		m.cursor = len(m.entries)
		return
	}

	m.entries = append(m.entries, line)
	if m.maxEntries > 0 && len(m.entries) > m.maxEntries {
		m.entries = m.entries[len(m.entries)-m.maxEntries:]
	}
	m.cursor = len(m.entries)

	m.persist()
}

// Previous moves the cursor one step back and returns the entry there.
// At the head of the log it stays put and returns the oldest entry.
func (m *Manager) Previous() string {
	if len(m.entries) == 0 {
		return ""
	}
	if m.cursor > 0 {
		m.cursor--
	}
	return m.entries[m.cursor]
}

// Next moves the cursor one step forward. Past the end of the log it
// returns the empty sentinel the input reader uses to restore an empty
// buffer, per spec.md §4.2.
func (m *Manager) Next() string {
	if m.cursor < len(m.entries) {
		m.cursor++
	}
	if m.cursor >= len(m.entries) {
		return ""
	}
	return m.entries[m.cursor]
}

// ResetCursor returns the cursor to the end of the log, as if no
// navigation had occurred. The input reader calls this after a line is
// accepted.
func (m *Manager) ResetCursor() {
	m.cursor = len(m.entries)
}

// Search returns every entry containing substring, in original order.
// An empty substring matches nothing.
func (m *Manager) Search(substring string) []string {
	if substring == "" {
		return nil
	}
	var out []string
	for _, e := range m.entries {
		if strings.Contains(e, substring) {
			out = append(out, e)
		}
	}
	return out
}

// All returns a read-only snapshot of the log.
func (m *Manager) All() []string {
	out := make([]string, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len reports the number of entries currently held.
func (m *Manager) Len() int {
	return len(m.entries)
}

// Clear empties the in-memory log and removes the persistence file.
func (m *Manager) Clear() error {
	m.entries = nil
	m.cursor = 0
	if m.path == "" {
		return nil
	}
	err := os.Remove(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (m *Manager) persist() {
	if m.path == "" {
		return
	}
	if dir := filepath.Dir(m.path); dir != "" {
		// Parent directory may not exist yet; create it with user-only
		// permissions rather than erroring, per spec.md §4.2.
		_ = os.MkdirAll(dir, 0o700)
	}

	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range m.entries {
		w.WriteString(e)
		w.WriteByte('\n')
	}
	_ = w.Flush()
}
