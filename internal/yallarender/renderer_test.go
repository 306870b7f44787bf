package yallarender

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompactScalars(t *testing.T) {
	r := New(false)
	require.Equal(t, "null", r.compact(nil))
	require.Equal(t, "true", r.compact(true))
	require.Equal(t, "false", r.compact(false))
	require.Equal(t, "42", r.compact(42))
	require.Equal(t, `"hi"`, r.compact("hi"))
}

func TestCompactTruncatesLongStrings(t *testing.T) {
	r := New(false)
	s := strings.Repeat("a", 60)
	got := r.compact(s)
	require.Contains(t, got, "...")
	require.Less(t, len(got), len(s))
}

func TestCompactInlinesShortLists(t *testing.T) {
	r := New(false)
	got := r.compact([]any{1, 2, 3})
	require.Equal(t, "[1, 2, 3]", got)
}

func TestCompactTabularForUniformRows(t *testing.T) {
	r := New(false)
	rows := []any{
		map[string]any{"id": 1, "name": "a"},
		map[string]any{"id": 2, "name": "b"},
		map[string]any{"id": 3, "name": "c"},
		map[string]any{"id": 4, "name": "d"},
	}
	got := r.compact(rows)
	require.Contains(t, got, "id")
	require.Contains(t, got, "name")
}

func TestCompactTabularForShortUniformRows(t *testing.T) {
	r := New(false)
	rows := []any{
		map[string]any{"id": 1, "name": "a"},
		map[string]any{"id": 2, "name": "b"},
		map[string]any{"id": 3, "name": "c"},
	}
	got := r.compact(rows)
	require.Contains(t, got, "id")
	require.Contains(t, got, "name")
	require.False(t, strings.HasPrefix(got, "["), "a 3-row associative list should render tabular, not inline")
}

func TestCompactMultiLineForMixedRows(t *testing.T) {
	r := New(false)
	rows := []any{1, "two", 3, map[string]any{"x": 1}}
	got := r.compact(rows)
	require.True(t, strings.HasPrefix(got, "[\n"))
}

func TestRenderJSONFallsBackToCompactOnError(t *testing.T) {
	r := New(false)
	var buf bytes.Buffer
	// A channel can't be JSON-marshaled.
	require.NoError(t, r.Render(make(chan int), ModeJSON, &buf, nil))
	require.NotEmpty(t, buf.String())
}

func TestRenderJSONSerializes(t *testing.T) {
	r := New(false)
	var buf bytes.Buffer
	require.NoError(t, r.Render(map[string]any{"a": 1}, ModeJSON, &buf, nil))
	require.Contains(t, buf.String(), `"a": 1`)
}

func TestCustomFormatterOverridesMode(t *testing.T) {
	r := New(false)
	var buf bytes.Buffer
	err := r.Render(42, ModeCompact, &buf, func(value any, out io.Writer) error {
		_, err := out.Write([]byte("custom"))
		return err
	})
	require.NoError(t, err)
	require.Equal(t, "custom", buf.String())
}

func TestRenderDumpProducesStructuredOutput(t *testing.T) {
	r := New(false)
	var buf bytes.Buffer
	require.NoError(t, r.Render(map[string]any{"a": 1}, ModeDump, &buf, nil))
	require.Contains(t, buf.String(), "map(1)")
}

func TestRenderVerboseTruncatesAfterLimit(t *testing.T) {
	r := New(false)
	items := make([]any, 25)
	for i := range items {
		items[i] = i
	}
	var buf bytes.Buffer
	require.NoError(t, r.Render(items, ModeVerbose, &buf, nil))
	require.Contains(t, buf.String(), "more")
}
