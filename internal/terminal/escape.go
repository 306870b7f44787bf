// Package terminal holds the raw ANSI escape sequences the REPL needs
// outside of lipgloss's styling API, the way gsh's own terminal
// package separates cursor/screen control from text color.
package terminal

const (
	esc = "\033"

	resetCursor = esc + "[H"

	// CLEAR_SCREEN is written by the `:clear` built-in (spec.md §4.4).
	CLEAR_SCREEN = resetCursor + esc + "[2J"
)
