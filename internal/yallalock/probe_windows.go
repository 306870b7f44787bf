//go:build windows

package yallalock

import "os"

// processIsAlive uses os.FindProcess, which on Windows actually opens a
// handle to pid and fails if it doesn't exist, unlike its Unix
// always-succeeds behavior.
func processIsAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil || proc == nil {
		return false
	}
	state, err := proc.Wait()
	if err != nil {
		// Wait fails (access denied, not our child, etc.) for a live
		// process we don't own; treat that as alive rather than stale.
		return true
	}
	return !state.Exited()
}
