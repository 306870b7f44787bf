// Package yallacommand defines the abstract command surface shared by the
// REPL and the CLI dispatcher (spec.md §4.11): declared arguments and
// options, standard exit codes, and the exception-to-exit-code mapping.
package yallacommand

import (
	"errors"
	"io"
)

// ArgumentSpec declares one positional argument a command accepts.
type ArgumentSpec struct {
	Name        string
	Description string
	Required    bool
}

// OptionSpec declares one named option a command accepts.
type OptionSpec struct {
	Long        string
	Short       string
	Description string
	Default     any
}

// Input is the record passed to Command.Execute: the parsed command
// line, positional arguments, and resolved options. Per spec.md §3's
// invariant, every declared option with a short name is bound under
// both its long and short name to the same value.
type Input struct {
	Command   string
	Arguments []string
	Options   map[string]any
}

// Argument returns the positional argument at index, or def if absent.
func (in Input) Argument(index int, def string) string {
	if index < 0 || index >= len(in.Arguments) {
		return def
	}
	return in.Arguments[index]
}

// Option returns a named option's value, or def if it was never set.
func (in Input) Option(name string, def any) any {
	if in.Options == nil {
		return def
	}
	if v, ok := in.Options[name]; ok {
		return v
	}
	return def
}

// BoolOption is a convenience accessor for boolean-typed options.
func (in Input) BoolOption(name string, def bool) bool {
	v := in.Option(name, def)
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// StringOption is a convenience accessor for string-typed options.
func (in Input) StringOption(name string, def string) string {
	v := in.Option(name, def)
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// Command is the abstract operation every REPL command and CLI
// subcommand implements.
type Command interface {
	Name() string
	Description() string
	Arguments() []ArgumentSpec
	Options() []OptionSpec
	Execute(in Input, out io.Writer) int
}

// Exit codes. 65-78 carry the POSIX sysexits values; usage errors use 2
// rather than sysexits' 64, which has no constant here. 79-87 are
// yalla-specific additions named in spec.md §4.11.
const (
	ExitSuccess           = 0
	ExitGeneralError      = 1
	ExitUsage             = 2
	ExitDataErr           = 65
	ExitNoInput           = 66
	ExitNoUser            = 67
	ExitNoHost            = 68
	ExitUnavailable       = 69
	ExitSoftware          = 70
	ExitOSErr             = 71
	ExitOSFile            = 72
	ExitCantCreat         = 73
	ExitIOErr             = 74
	ExitTempFail          = 75
	ExitProtocol          = 76
	ExitNoPerm            = 77
	ExitConfig            = 78
	ExitLocked            = 79
	ExitTimeout           = 80
	ExitCancelled         = 81
	ExitValidation        = 82
	ExitMissingDependency = 83
	ExitNotFound          = 84
	ExitConflict          = 85
	ExitRollback          = 86
	ExitPartial           = 87
	ExitInterrupted       = 130
	ExitTerminated        = 143
)

// Sentinel errors callers can match with errors.Is/errors.As.
var (
	ErrExit            = errors.New("yallacommand: exit requested")
	ErrUnknownCommand  = errors.New("yallacommand: unknown command")
	ErrValidation      = errors.New("yallacommand: validation failed")
	ErrNotFound        = errors.New("yallacommand: not found")
	ErrTimeout         = errors.New("yallacommand: timed out")
	ErrCancelled       = errors.New("yallacommand: cancelled")
)

// ExitCodeForError maps common standard errors to an exit code, the Go
// analogue of the "exception-to-exit-code mapping" in spec.md §4.11.
func ExitCodeForError(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrTimeout):
		return ExitTimeout
	case errors.Is(err, ErrCancelled):
		return ExitCancelled
	case errors.Is(err, ErrValidation):
		return ExitValidation
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrUnknownCommand):
		return ExitUsage
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return ExitDataErr
	case errors.Is(err, io.ErrClosedPipe):
		return ExitIOErr
	default:
		return ExitGeneralError
	}
}

// ResolveOptions binds each declared option's value (from raw, keyed by
// long name) under both its long and short names, applying declared
// defaults for anything absent. This implements the Input invariant from
// spec.md §3.
func ResolveOptions(specs []OptionSpec, raw map[string]any) map[string]any {
	resolved := make(map[string]any, len(specs)*2)
	for _, spec := range specs {
		value, ok := raw[spec.Long]
		if !ok {
			value = spec.Default
		}
		resolved[spec.Long] = value
		if spec.Short != "" {
			resolved[spec.Short] = value
		}
	}
	// Carry through anything the caller passed that wasn't declared,
	// so ad-hoc options (e.g. from REPL command dispatch) still flow.
	for k, v := range raw {
		if _, ok := resolved[k]; !ok {
			resolved[k] = v
		}
	}
	return resolved
}
