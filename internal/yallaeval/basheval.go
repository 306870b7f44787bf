package yallaeval

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/atinylittleshell/yalla/internal/yallacontext"
)

// BashResult is what a bash evaluation renders: the shell's combined
// stdout/stderr and its exit code, kept structured rather than a bare
// string so the compact renderer's map-of-scalars path applies to it.
type BashResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// BashEvaluator runs lines through a real POSIX shell interpreter,
// the optional second evaluator spec.md §4.5 step 5 allows a caller to
// register ahead of the default GoEvaluator.
type BashEvaluator struct {
	runner *interp.Runner
}

// NewBashEvaluator constructs a BashEvaluator with a fresh runner
// rooted at the process's current working directory and environment.
func NewBashEvaluator() (*BashEvaluator, error) {
	runner, err := interp.New(interp.StdIO(nil, nil, nil))
	if err != nil {
		return nil, fmt.Errorf("yallaeval: constructing bash runner: %w", err)
	}
	return &BashEvaluator{runner: runner}, nil
}

// Prefix is the shell-escape sigil that marks a REPL line as bash
// syntax rather than the host evaluator's language, the same `!`
// convention ipython and similar REPLs use for shelling out.
const Prefix = "!"

// AsEvaluatorFunc adapts BashEvaluator to yallacontext.EvaluatorFunc.
// Only lines beginning with Prefix are consumed; anything else falls
// through to the next evaluator in the chain.
func (e *BashEvaluator) AsEvaluatorFunc() yallacontext.EvaluatorFunc {
	return func(line string, ctx *yallacontext.Context) (bool, any, error) {
		if !strings.HasPrefix(line, Prefix) {
			return false, nil, nil
		}
		command := strings.TrimPrefix(line, Prefix)
		result, err := e.Run(context.Background(), command)
		return true, result, err
	}
}

// Run parses and executes command in a subshell of the evaluator's
// runner, capturing stdout/stderr rather than letting them inherit the
// process's own, mirroring the teacher's RunBashCommandInSubShell.
func (e *BashEvaluator) Run(ctx context.Context, command string) (BashResult, error) {
	subShell := e.runner.Subshell()

	outBuf := &threadSafeBuffer{}
	errBuf := &threadSafeBuffer{}
	if err := interp.StdIO(nil, outBuf, errBuf)(subShell); err != nil {
		return BashResult{}, fmt.Errorf("yallaeval: configuring bash stdio: %w", err)
	}

	var stmts []*syntax.Stmt
	err := syntax.NewParser().Stmts(strings.NewReader(command), func(stmt *syntax.Stmt) bool {
		stmts = append(stmts, stmt)
		return true
	})
	if err != nil {
		return BashResult{}, fmt.Errorf("yallaeval: parsing bash command: %w", err)
	}
	if len(stmts) == 0 {
		return BashResult{}, nil
	}

	runErr := subShell.Run(ctx, &syntax.File{Stmts: stmts})
	exitCode := 0
	if runErr != nil {
		if status, ok := interp.IsExitStatus(runErr); ok {
			exitCode = int(status)
			runErr = nil
		}
	}

	return BashResult{
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		ExitCode: exitCode,
	}, runErr
}

// threadSafeBuffer lets the subshell's stdout/stderr writers be safely
// read back after Run while any background goroutines the interpreter
// spawned are still winding down.
type threadSafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *threadSafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *threadSafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
