// Package yallainput implements the REPL's line-oriented input reader
// (spec.md §4.3): a single line of text with prompt, cursor history
// navigation, and completion suggestions, rendered via bubbletea.
package yallainput

import (
	"unicode"

	"github.com/rivo/uniseg"
)

// lineBuffer is the rune-addressed text and cursor position a single
// input line is edited over. It knows nothing about rendering,
// history, or completion — those are the Model's concerns.
type lineBuffer struct {
	runes []rune
	pos   int
}

func (b *lineBuffer) text() string { return string(b.runes) }
func (b *lineBuffer) len() int     { return len(b.runes) }

func (b *lineBuffer) setText(s string) {
	b.runes = []rune(s)
	b.pos = len(b.runes)
}

func (b *lineBuffer) clear() {
	b.runes = nil
	b.pos = 0
}

func (b *lineBuffer) insert(r []rune) {
	if len(r) == 0 {
		return
	}
	out := make([]rune, 0, len(b.runes)+len(r))
	out = append(out, b.runes[:b.pos]...)
	out = append(out, r...)
	out = append(out, b.runes[b.pos:]...)
	b.runes = out
	b.pos += len(r)
}

// moveLeft steps the cursor back one grapheme cluster rather than one
// rune, so a combining mark or multi-rune emoji moves as a single unit
// the way a user perceives it.
func (b *lineBuffer) moveLeft() {
	if b.pos <= 0 {
		return
	}
	bounds := b.graphemeBoundaries()
	for i := len(bounds) - 1; i >= 0; i-- {
		if bounds[i] < b.pos {
			b.pos = bounds[i]
			return
		}
	}
	b.pos = 0
}

// moveRight steps forward one grapheme cluster.
func (b *lineBuffer) moveRight() {
	if b.pos >= len(b.runes) {
		return
	}
	bounds := b.graphemeBoundaries()
	for _, bound := range bounds {
		if bound > b.pos {
			b.pos = bound
			return
		}
	}
	b.pos = len(b.runes)
}

// graphemeBoundaries returns the rune offsets at which each grapheme
// cluster in the buffer starts, per Unicode text segmentation (the
// same algorithm gsh's render layer uses for measuring display width).
func (b *lineBuffer) graphemeBoundaries() []int {
	var bounds []int
	gr := uniseg.NewGraphemes(string(b.runes))
	offset := 0
	for gr.Next() {
		bounds = append(bounds, offset)
		offset += len(gr.Runes())
	}
	return bounds
}

func (b *lineBuffer) moveHome() { b.pos = 0 }
func (b *lineBuffer) moveEnd()  { b.pos = len(b.runes) }

func (b *lineBuffer) backspace() bool {
	if b.pos == 0 {
		return false
	}
	b.runes = append(b.runes[:b.pos-1], b.runes[b.pos:]...)
	b.pos--
	return true
}

func (b *lineBuffer) deleteForward() bool {
	if b.pos >= len(b.runes) {
		return false
	}
	b.runes = append(b.runes[:b.pos], b.runes[b.pos+1:]...)
	return true
}

func (b *lineBuffer) deleteToHome() {
	b.runes = b.runes[b.pos:]
	b.pos = 0
}

func (b *lineBuffer) deleteToEnd() {
	b.runes = b.runes[:b.pos]
}

func (b *lineBuffer) wordBackward() {
	i := b.pos
	for i > 0 && unicode.IsSpace(b.runes[i-1]) {
		i--
	}
	for i > 0 && !unicode.IsSpace(b.runes[i-1]) {
		i--
	}
	b.pos = i
}

// deleteWordBackward removes the word behind the cursor, the
// combined move+delete Ctrl+W performs.
func (b *lineBuffer) deleteWordBackward() {
	end := b.pos
	b.wordBackward()
	start := b.pos
	b.runes = append(b.runes[:start], b.runes[end:]...)
}

func (b *lineBuffer) wordForward() {
	i := b.pos
	n := len(b.runes)
	for i < n && unicode.IsSpace(b.runes[i]) {
		i++
	}
	for i < n && !unicode.IsSpace(b.runes[i]) {
		i++
	}
	b.pos = i
}

// fragmentUnderCursor returns the run of non-space characters ending
// at the cursor, the piece the completion contract in spec.md §4.3
// ranks candidates against.
func (b *lineBuffer) fragmentUnderCursor() string {
	i := b.pos
	for i > 0 && !unicode.IsSpace(b.runes[i-1]) {
		i--
	}
	return string(b.runes[i:b.pos])
}

func (b *lineBuffer) replaceFragment(fragment, replacement string) {
	frag := []rune(fragment)
	start := b.pos - len(frag)
	if start < 0 {
		start = 0
	}
	rep := []rune(replacement)
	out := make([]rune, 0, len(b.runes)-len(frag)+len(rep))
	out = append(out, b.runes[:start]...)
	out = append(out, rep...)
	out = append(out, b.runes[b.pos:]...)
	b.runes = out
	b.pos = start + len(rep)
}
