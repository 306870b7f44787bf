// Package yallaconfig implements the REPL's nested key/value configuration
// store: dotted-path get/set, deep merge over built-in defaults, and the
// recognized option set described in spec.md §4.1.
package yallaconfig

import (
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/muesli/termenv"

	"github.com/atinylittleshell/yalla/internal/yallacore"
)

// Config is a nested tree of string-keyed maps, addressed by dotted paths
// such as "display.prompt". It is safe for single-threaded REPL use;
// callers that share it across goroutines must guard it externally, the
// same ownership rule the REPL context applies to all shared state.
type Config struct {
	values map[string]any
}

// New wraps an existing nested map as a Config.
func New(values map[string]any) *Config {
	if values == nil {
		values = map[string]any{}
	}
	return &Config{values: values}
}

// Default returns the built-in default configuration described in §4.1.
func Default() *Config {
	return New(map[string]any{
		"extensions": []any{},
		"bootstrap": map[string]any{
			"file":  "",
			"files": []any{},
		},
		"shortcuts": map[string]any{},
		"imports":   []any{},
		"variables": map[string]any{},
		"history": map[string]any{
			"enabled":            true,
			"file":               filepath.Join(yallacore.HomeDir(), ".yalla_history"),
			"max_entries":        1000,
			"ignore_duplicates":  true,
		},
		"display": map[string]any{
			"colors":      true,
			"prompt":      "[{counter}] yalla> ",
			"welcome":     "",
			"goodbye":     "",
			"show_help":   true,
			"performance": false,
			"stacktrace":  false,
			"mode":        "compact",
		},
		"autocomplete": map[string]any{
			"enabled":        true,
			"min_chars":      2,
			"max_suggestions": 10,
		},
		"security": map[string]any{
			"sandbox":           false,
			"blocked_functions": []any{},
		},
	})
}

// Raw returns the underlying nested map. Callers should treat it as
// read-only; use Set to mutate.
func (c *Config) Raw() map[string]any {
	return c.values
}

// Get traverses a dotted path (e.g. "display.prompt") and returns the
// value found there, or def if any segment along the path is missing.
// Per spec.md's invariant, an unknown path is never an error.
func (c *Config) Get(path string, def any) any {
	segments := strings.Split(path, ".")
	var cur any = c.values
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		v, ok := m[seg]
		if !ok {
			return def
		}
		cur = v
	}
	return cur
}

// GetString is a convenience wrapper over Get for string-typed defaults.
func (c *Config) GetString(path string, def string) string {
	v := c.Get(path, def)
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// GetBool is a convenience wrapper over Get for bool-typed defaults.
func (c *Config) GetBool(path string, def bool) bool {
	v := c.Get(path, def)
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// GetInt is a convenience wrapper over Get for int-typed defaults.
func (c *Config) GetInt(path string, def int) int {
	v := c.Get(path, def)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

// Set creates intermediate maps as needed and overwrites the leaf value
// at path. No validation is performed on the stored value (spec.md §4.1:
// "invalid leaf assignments are not validated").
func (c *Config) Set(path string, value any) {
	segments := strings.Split(path, ".")
	m := c.values
	for i, seg := range segments {
		if i == len(segments)-1 {
			m[seg] = value
			return
		}
		next, ok := m[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[seg] = next
		}
		m = next
	}
}

// Merge deep-merges layer over c: map values recurse, scalars and lists
// are replaced wholesale by layer's value. Merge is used both to layer a
// user config file over the defaults and to apply runtime overrides.
func (c *Config) Merge(layer map[string]any) error {
	return mergo.Merge(&c.values, layer, mergo.WithOverride)
}

// EnvHistoryFile resolves the history file path, honoring an explicit
// HOME-relative default when the config hasn't overridden it.
func EnvHistoryFile(c *Config) string {
	return c.GetString("history.file", filepath.Join(yallacore.HomeDir(), ".yalla_history"))
}

// ColorsEnabled applies the NO_COLOR / display.colors precedence described
// in spec.md §6: an explicit NO_COLOR environment variable always wins,
// then the terminal's own detected color support (which on Windows
// folds in ANSICON/ConEmuANSI, per termenv's EnvColorProfile), then the
// display.colors config leaf.
func ColorsEnabled(c *Config) bool {
	if v := os.Getenv("NO_COLOR"); v != "" {
		return false
	}
	if termenv.EnvColorProfile() == termenv.Ascii {
		return false
	}
	return c.GetBool("display.colors", true)
}
