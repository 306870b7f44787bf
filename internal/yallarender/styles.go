// Package yallarender converts an arbitrary value into its displayed
// form for the active display.mode, per spec.md §4.6: compact,
// verbose, json, and dump.
package yallarender

import "github.com/charmbracelet/lipgloss"

// Colors mirror the palette the teacher's render/styles.go assigns:
// cyan for structural headers, green for success/strings, yellow for
// numbers/warnings, red for errors/false, gray for dimmed metadata.
const (
	ColorCyan   = lipgloss.Color("12")
	ColorGreen  = lipgloss.Color("10")
	ColorYellow = lipgloss.Color("11")
	ColorRed    = lipgloss.Color("9")
	ColorGray   = lipgloss.Color("8")
)

var (
	nullStyle    = lipgloss.NewStyle().Foreground(ColorGray)
	trueStyle    = lipgloss.NewStyle().Foreground(ColorGreen)
	falseStyle   = lipgloss.NewStyle().Foreground(ColorRed)
	numberStyle  = lipgloss.NewStyle().Foreground(ColorYellow)
	stringStyle  = lipgloss.NewStyle().Foreground(ColorGreen)
	headerStyle  = lipgloss.NewStyle().Foreground(ColorCyan)
	dimStyle     = lipgloss.NewStyle().Foreground(ColorGray)
	errorStyle   = lipgloss.NewStyle().Foreground(ColorRed)
	successColor = lipgloss.NewStyle().Foreground(ColorGreen)
)

// PerformanceColor picks the color-grading for the auxiliary
// performance line spec.md §4.5 step 7 describes: green at or under
// 100ms, yellow at or under 500ms, red above.
func PerformanceColor(elapsedMS int64) lipgloss.Style {
	switch {
	case elapsedMS <= 100:
		return successColor
	case elapsedMS <= 500:
		return numberStyle
	default:
		return errorStyle
	}
}
