package yallainput

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/sahilm/fuzzy"
)

// ErrEndOfInput is the distinct end-of-input sentinel spec.md §4.3
// requires the reader return when the terminal closes (Ctrl+D on an
// empty line, or stdin reaching EOF).
var ErrEndOfInput = errors.New("yallainput: end of input")

// ErrInterrupted is returned when the user presses Ctrl+C while
// editing a line. Since raw terminal mode (which bubbletea requires)
// suppresses the kernel's own SIGINT generation, the reader surfaces
// Ctrl+C as this sentinel rather than relying on yallasignal to see
// it, matching spec.md §4.5's "print a warning, keep running" contract
// for the interrupt signal.
var ErrInterrupted = errors.New("yallainput: interrupted")

// History is the subset of yallahistory.Manager the reader consults
// for cursor navigation, kept as an interface so tests can fake it
// without a real file-backed manager.
type History interface {
	Previous() string
	Next() string
	ResetCursor()
}

// Completer ranks completion candidates for the fragment under the
// cursor, mirroring yallacontext.Context.CompletionCandidates.
type Completer func(fragment string) []string

// Options configures a Reader.
type Options struct {
	History          History
	Complete         Completer
	MaxSuggestions   int
	SuggestionPrompt string // shown before the inline suggestion list
}

// Reader reads one line at a time with prompt, history navigation, and
// tab completion, per spec.md §4.3. Each ReadLine call runs its own
// bubbletea program, matching the one-program-per-line shape of the
// teacher's pkg/gline.Gline.
type Reader struct {
	opts Options
}

// New constructs a Reader.
func New(opts Options) *Reader {
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = 10
	}
	return &Reader{opts: opts}
}

// ReadLine displays prompt and blocks until the user submits a line,
// returning ErrEndOfInput if the program is torn down before that
// (Ctrl+D on empty input, or the terminal going away).
func (r *Reader) ReadLine(prompt string) (string, error) {
	m := newModel(prompt, r.opts)
	program := tea.NewProgram(m)

	finalModel, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("yallainput: %w", err)
	}

	fm, ok := finalModel.(model)
	if !ok || fm.eof {
		return "", ErrEndOfInput
	}
	if fm.interrupted {
		return "", ErrInterrupted
	}
	return fm.buf.text(), nil
}

type model struct {
	prompt   string
	promptW  int
	termW    int
	opts     Options

	buf    lineBuffer
	cursor cursor.Model

	suggestions     []string
	suggestIdx      int
	currentFragment string

	submitted   bool
	eof         bool
	interrupted bool
}

func newModel(prompt string, opts Options) model {
	c := cursor.New()
	c.SetMode(cursor.CursorBlink)
	c.Focus()
	return model{prompt: prompt, promptW: promptWidth(prompt), opts: opts, cursor: c, suggestIdx: -1}
}

func (m model) Init() tea.Cmd {
	return cursor.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termW = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		var cmd tea.Cmd
		m.cursor, cmd = m.cursor.Update(msg)
		return m, cmd
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.submitted = true
		return m, tea.Quit

	case tea.KeyCtrlC:
		m.interrupted = true
		return m, tea.Quit

	case tea.KeyCtrlD:
		if m.buf.len() == 0 {
			m.eof = true
			return m, tea.Quit
		}
		m.buf.deleteForward()
		return m, nil

	case tea.KeyBackspace:
		m.clearSuggestions()
		m.buf.backspace()
		return m, nil

	case tea.KeyDelete:
		m.clearSuggestions()
		m.buf.deleteForward()
		return m, nil

	case tea.KeyLeft:
		m.clearSuggestions()
		m.buf.moveLeft()
		return m, nil

	case tea.KeyRight:
		m.clearSuggestions()
		m.buf.moveRight()
		return m, nil

	case tea.KeyHome, tea.KeyCtrlA:
		m.buf.moveHome()
		return m, nil

	case tea.KeyEnd, tea.KeyCtrlE:
		m.buf.moveEnd()
		return m, nil

	case tea.KeyCtrlW:
		m.clearSuggestions()
		m.buf.deleteWordBackward()
		return m, nil

	case tea.KeyCtrlU:
		m.buf.deleteToHome()
		return m, nil

	case tea.KeyCtrlK:
		m.buf.deleteToEnd()
		return m, nil

	case tea.KeyCtrlL:
		return m, tea.ClearScreen

	case tea.KeyUp, tea.KeyCtrlP:
		return m.historyNav(true), nil

	case tea.KeyDown, tea.KeyCtrlN:
		return m.historyNav(false), nil

	case tea.KeyTab:
		return m.completeNext(), nil

	case tea.KeyShiftTab:
		return m.completePrev(), nil

	case tea.KeySpace:
		m.clearSuggestions()
		m.buf.insert([]rune{' '})
		return m, nil

	case tea.KeyRunes:
		m.clearSuggestions()
		m.buf.insert(msg.Runes)
		return m, nil
	}
	return m, nil
}

func (m model) historyNav(previous bool) model {
	if m.opts.History == nil {
		return m
	}
	var line string
	if previous {
		line = m.opts.History.Previous()
	} else {
		line = m.opts.History.Next()
	}
	m.buf.setText(line)
	m.clearSuggestions()
	return m
}

// completeNext offers candidates ranked by the fuzzy matcher over the
// fragment under the cursor, per spec.md §4.3, cycling through them on
// repeated Tab presses the way a shell completer does.
func (m model) completeNext() model {
	if m.suggestions == nil {
		m.suggestions = m.rankCandidates()
		m.suggestIdx = -1
	}
	if len(m.suggestions) == 0 {
		return m
	}
	m.suggestIdx = (m.suggestIdx + 1) % len(m.suggestions)
	return m.applySuggestion()
}

func (m model) completePrev() model {
	if m.suggestions == nil {
		m.suggestions = m.rankCandidates()
		m.suggestIdx = 0
	}
	if len(m.suggestions) == 0 {
		return m
	}
	m.suggestIdx--
	if m.suggestIdx < 0 {
		m.suggestIdx = len(m.suggestions) - 1
	}
	return m.applySuggestion()
}

func (m model) applySuggestion() model {
	fragment := m.currentFragment
	replacement := m.suggestions[m.suggestIdx]
	m.buf.replaceFragment(fragment, replacement)
	m.currentFragment = replacement
	return m
}

func (m *model) rankCandidates() []string {
	if m.opts.Complete == nil {
		return nil
	}
	fragment := m.buf.fragmentUnderCursor()
	m.currentFragment = fragment
	candidates := m.opts.Complete(fragment)
	if fragment == "" {
		return firstN(candidates, m.opts.MaxSuggestions)
	}

	matches := fuzzy.Find(fragment, candidates)
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	ranked := make([]string, 0, len(matches))
	for _, match := range matches {
		ranked = append(ranked, match.Str)
	}
	return firstN(ranked, m.opts.MaxSuggestions)
}

func firstN(s []string, n int) []string {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

func (m *model) clearSuggestions() {
	m.suggestions = nil
	m.suggestIdx = -1
}

func (m model) View() string {
	if m.submitted || m.eof || m.interrupted {
		return ""
	}
	before := m.buf.text()[:runeByteOffset(m.buf.text(), m.buf.pos)]
	after := m.buf.text()[runeByteOffset(m.buf.text(), m.buf.pos):]

	m.cursor.SetChar(" ")
	var b strings.Builder
	b.WriteString(m.prompt)
	b.WriteString(before)
	b.WriteString(m.cursor.View())
	b.WriteString(after)

	if len(m.suggestions) > 0 {
		b.WriteString("\n")
		line := m.opts.SuggestionPrompt + strings.Join(m.suggestions, "  ")
		if width := m.termW - m.promptW; width > 0 {
			line = wordwrap.String(line, width)
		}
		b.WriteString(lipgloss.NewStyle().Faint(true).Render(line))
	}
	return b.String()
}

func runeByteOffset(s string, runeIdx int) int {
	count := 0
	for i := range s {
		if count == runeIdx {
			return i
		}
		count++
	}
	return len(s)
}

// promptWidth measures prompt's display width with ANSI styling
// stripped, per SPEC_FULL.md's binding of muesli/ansi to cursor-column
// math in the input reader.
func promptWidth(prompt string) int {
	return ansi.PrintableRuneWidth(prompt)
}
