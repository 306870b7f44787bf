// Package yallacore centralizes filesystem locations shared across the
// REPL session, history manager, and lock manager.
package yallacore

import (
	"os"
	"path/filepath"
)

// Paths holds the resolved default locations for yalla's on-disk state.
type Paths struct {
	HomeDir     string
	DataDir     string
	LogFile     string
	HistoryFile string
	LockDir     string
}

var defaultPaths *Paths

func ensureDefaultPaths() {
	if defaultPaths != nil {
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.TempDir()
	}

	defaultPaths = &Paths{
		HomeDir:     homeDir,
		DataDir:     filepath.Join(homeDir, ".yalla"),
		LogFile:     filepath.Join(homeDir, ".yalla", "yalla.log"),
		HistoryFile: filepath.Join(homeDir, ".yalla_history"),
		LockDir:     filepath.Join(os.TempDir(), "yalla_locks"),
	}
}

// HomeDir returns the resolved user home directory (or a temp dir fallback).
func HomeDir() string {
	ensureDefaultPaths()
	return defaultPaths.HomeDir
}

// DataDir returns the directory yalla keeps its own state under.
func DataDir() string {
	ensureDefaultPaths()
	return defaultPaths.DataDir
}

// LogFile returns the default log file path.
func LogFile() string {
	ensureDefaultPaths()
	return defaultPaths.LogFile
}

// HistoryFile returns the default history file path, matching the
// `$HOME/.yalla_history` location named in spec §6.
func HistoryFile() string {
	ensureDefaultPaths()
	return defaultPaths.HistoryFile
}

// LockDir returns the default directory lock files are written under,
// matching the `$TMP/yalla_locks` location named in spec §6.
func LockDir() string {
	ensureDefaultPaths()
	return defaultPaths.LockDir
}

// ResetPaths clears the cached defaults, used by tests that override HOME/TMP.
func ResetPaths() {
	defaultPaths = nil
}
