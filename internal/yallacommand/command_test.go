package yallacommand

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveOptionsBindsLongAndShort(t *testing.T) {
	specs := []OptionSpec{
		{Long: "verbose", Short: "v", Default: false},
		{Long: "output", Short: "o", Default: "text"},
	}
	resolved := ResolveOptions(specs, map[string]any{"verbose": true})

	require.Equal(t, true, resolved["verbose"])
	require.Equal(t, true, resolved["v"])
	require.Equal(t, "text", resolved["output"])
	require.Equal(t, "text", resolved["o"])
}

func TestInputAccessors(t *testing.T) {
	in := Input{
		Arguments: []string{"a", "b"},
		Options:   map[string]any{"force": true},
	}
	require.Equal(t, "a", in.Argument(0, ""))
	require.Equal(t, "missing", in.Argument(5, "missing"))
	require.Equal(t, true, in.BoolOption("force", false))
	require.Equal(t, "dflt", in.StringOption("absent", "dflt"))
}

func TestExitCodeForError(t *testing.T) {
	require.Equal(t, ExitSuccess, ExitCodeForError(nil))
	require.Equal(t, ExitTimeout, ExitCodeForError(fmt.Errorf("wrap: %w", ErrTimeout)))
	require.Equal(t, ExitValidation, ExitCodeForError(ErrValidation))
	require.Equal(t, ExitGeneralError, ExitCodeForError(errors.New("boom")))
}
