package yallarender

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
)

// Mode selects one of the four display contracts from spec.md §4.6.
type Mode string

const (
	ModeCompact Mode = "compact"
	ModeVerbose Mode = "verbose"
	ModeJSON    Mode = "json"
	ModeDump    Mode = "dump"
)

const (
	compactStringLimit = 50
	compactInlineLimit = 3
	verboseItemLimit   = 20
)

// FormatterFunc is an extension-supplied override consulted before the
// mode-driven default, matching "custom formatters override the
// mode-driven default" in spec.md §4.6.
type FormatterFunc func(value any, out io.Writer) error

// Renderer renders values for one of the four display modes. Colors
// can be disabled wholesale (NO_COLOR, --no-colors) without changing
// which branch of each mode's contract is taken.
type Renderer struct {
	colorsEnabled bool
}

// New constructs a Renderer. colorsEnabled controls whether ANSI style
// is applied; the structural decisions (truncation, tabular vs list)
// are identical either way.
func New(colorsEnabled bool) *Renderer {
	return &Renderer{colorsEnabled: colorsEnabled}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.colorsEnabled {
		return text
	}
	return s.Render(text)
}

// Render writes value's displayed form to out for mode. formatter, if
// non-nil, is tried first and wholly replaces the mode-driven default.
func (r *Renderer) Render(value any, mode Mode, out io.Writer, formatter FormatterFunc) error {
	if formatter != nil {
		return formatter(value, out)
	}

	switch mode {
	case ModeVerbose:
		return r.renderVerbose(value, out)
	case ModeJSON:
		return r.renderJSON(value, out)
	case ModeDump:
		return r.renderDump(value, out)
	default:
		fmt.Fprintln(out, r.compact(value))
		return nil
	}
}

// compact implements spec.md §4.6's compact mode contract.
func (r *Renderer) compact(value any) string {
	if value == nil {
		return r.style(nullStyle, "null")
	}

	switch v := value.(type) {
	case bool:
		if v {
			return r.style(trueStyle, "true")
		}
		return r.style(falseStyle, "false")
	case string:
		return r.style(stringStyle, quoteAndTruncate(v))
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return r.style(numberStyle, fmt.Sprintf("%v", value))
	case reflect.Slice, reflect.Array:
		return r.compactList(rv)
	case reflect.Map:
		return r.compactMap(rv)
	default:
		return fmt.Sprintf("%v", value)
	}
}

func quoteAndTruncate(s string) string {
	if runewidth.StringWidth(s) > compactStringLimit {
		s = runewidth.Truncate(s, compactStringLimit, "...")
	}
	return `"` + s + `"`
}

func (r *Renderer) compactList(rv reflect.Value) string {
	n := rv.Len()
	keys, associative := sharedKeyStructure(rv)

	if n <= compactInlineLimit && !associative {
		parts := make([]string, n)
		for i := 0; i < n; i++ {
			parts[i] = r.compact(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}

	if associative {
		return r.tabular(keys, rv)
	}

	var b strings.Builder
	b.WriteString("[\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "  %d: %s\n", i, r.compact(rv.Index(i).Interface()))
	}
	b.WriteString("]")
	return b.String()
}

func (r *Renderer) compactMap(rv reflect.Value) string {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprintf("%v", keys[i].Interface()) < fmt.Sprintf("%v", keys[j].Interface())
	})

	var b strings.Builder
	b.WriteString("{\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "  %v: %s\n", k.Interface(), r.compact(rv.MapIndex(k).Interface()))
	}
	b.WriteString("}")
	return b.String()
}

// sharedKeyStructure reports whether every element of rv (a slice) is
// a map[string]any with an identical key set, in which case compact
// mode renders a tabular view instead of a bracketed list.
func sharedKeyStructure(rv reflect.Value) ([]string, bool) {
	n := rv.Len()
	if n == 0 {
		return nil, false
	}
	first, ok := rv.Index(0).Interface().(map[string]any)
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i := 1; i < n; i++ {
		row, ok := rv.Index(i).Interface().(map[string]any)
		if !ok || len(row) != len(keys) {
			return nil, false
		}
		for _, k := range keys {
			if _, ok := row[k]; !ok {
				return nil, false
			}
		}
	}
	return keys, true
}

func (r *Renderer) tabular(keys []string, rv reflect.Value) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(keys))
	for i, k := range keys {
		header[i] = k
	}
	t.AppendHeader(header)

	for i := 0; i < rv.Len(); i++ {
		row, _ := rv.Index(i).Interface().(map[string]any)
		cells := make(table.Row, len(keys))
		for j, k := range keys {
			cells[j] = fmt.Sprintf("%v", row[k])
		}
		t.AppendRow(cells)
	}

	return t.Render()
}

// renderJSON serializes value to indented canonical JSON; on failure
// it falls back to compact per spec.md §4.6.
func (r *Renderer) renderJSON(value any, out io.Writer) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fmt.Fprintln(out, r.compact(value))
		return nil
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
