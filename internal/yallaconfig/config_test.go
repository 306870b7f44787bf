package yallaconfig

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSetRoundTrip(t *testing.T) {
	cfg := Default()

	cfg.Set("display.prompt", "> ")
	require.Equal(t, "> ", cfg.Get("display.prompt", ""))

	cfg.Set("a.b.c", 42)
	require.Equal(t, 42, cfg.Get("a.b.c", 0))
}

func TestGetUnknownPathReturnsDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, "fallback", cfg.Get("no.such.path", "fallback"))
	require.Equal(t, "fallback", cfg.Get("display.unknown", "fallback"))
}

func TestDefaultsPresent(t *testing.T) {
	cfg := Default()
	require.Equal(t, true, cfg.GetBool("history.enabled", false))
	require.Equal(t, 1000, cfg.GetInt("history.max_entries", 0))
	require.Equal(t, "compact", cfg.GetString("display.mode", ""))
	require.Equal(t, 2, cfg.GetInt("autocomplete.min_chars", 0))
}

func TestMergeKeepsUnoverriddenLeaves(t *testing.T) {
	cfg := Default()

	err := cfg.Merge(map[string]any{
		"display": map[string]any{
			"prompt": "custom> ",
		},
	})
	require.NoError(t, err)

	// overridden leaf wins
	require.Equal(t, "custom> ", cfg.Get("display.prompt", ""))
	// sibling leaf not mentioned in the layer survives
	require.Equal(t, true, cfg.GetBool("display.colors", false))
}

func TestMergeReplacesScalarsAndLists(t *testing.T) {
	cfg := Default()
	err := cfg.Merge(map[string]any{
		"extensions": []any{"a", "b"},
	})
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b"}, cfg.Get("extensions", nil))
}
