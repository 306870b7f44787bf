package yallacontext

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/briandowns/spinner"

	"github.com/atinylittleshell/yalla/internal/terminal"
	"github.com/atinylittleshell/yalla/internal/yallaasync"
)

// allowedModes lists the display.mode values the `mode` built-in will
// accept, matching spec.md §4.6.
var allowedModes = map[string]bool{
	"compact": true,
	"verbose": true,
	"json":    true,
	"dump":    true,
}

// registerBuiltins installs the seven commands spec.md §4.4 requires
// at construction time: help, exit, clear, history, vars, imports, mode,
// plus lock, locks and wait, which reach the attached lock manager and
// async executor.
func registerBuiltins(c *Context) {
	c.RegisterCommand("help", builtinHelp)
	c.RegisterCommand("exit", builtinExit)
	c.RegisterCommand("clear", builtinClear)
	c.RegisterCommand("history", builtinHistory)
	c.RegisterCommand("vars", builtinVars)
	c.RegisterCommand("imports", builtinImports)
	c.RegisterCommand("mode", builtinMode)
	c.RegisterCommand("lock", builtinLock)
	c.RegisterCommand("locks", builtinLocks)
	c.RegisterCommand("wait", builtinWait)
}

func builtinHelp(_ []string, out io.Writer, ctx *Context) bool {
	fmt.Fprintln(out, "Available commands:")
	for _, name := range ctx.CommandNames() {
		fmt.Fprintf(out, "  :%s\n", name)
	}
	return true
}

func builtinExit(_ []string, out io.Writer, ctx *Context) bool {
	fmt.Fprintln(out, "goodbye")
	return false
}

func builtinClear(_ []string, out io.Writer, ctx *Context) bool {
	fmt.Fprint(out, terminal.CLEAR_SCREEN)
	return true
}

func builtinHistory(_ []string, out io.Writer, ctx *Context) bool {
	h := ctx.History()
	if h == nil {
		fmt.Fprintln(out, "(history disabled)")
		return true
	}
	for i, entry := range h.All() {
		fmt.Fprintf(out, "%5d  %s\n", i+1, entry)
	}
	return true
}

func builtinVars(_ []string, out io.Writer, ctx *Context) bool {
	names := ctx.VariableNames()
	if len(names) == 0 {
		fmt.Fprintln(out, "(no variables)")
		return true
	}
	for _, name := range names {
		v, _ := ctx.GetVariable(name)
		fmt.Fprintf(out, "$%s = %v (%s)\n", name, v, fmtNameOf(v))
	}
	return true
}

func builtinImports(_ []string, out io.Writer, ctx *Context) bool {
	imports := ctx.Imports()
	if len(imports) == 0 {
		fmt.Fprintln(out, "(no imports)")
		return true
	}
	names := make([]string, 0, len(imports))
	for local := range imports {
		names = append(names, local)
	}
	sort.Strings(names)
	for _, local := range names {
		fmt.Fprintf(out, "%s => %s\n", local, imports[local])
	}
	return true
}

// builtinLock demonstrates the attached advisory lock manager (C9):
// `:lock <name>` tries a non-blocking acquire.
func builtinLock(args []string, out io.Writer, ctx *Context) bool {
	mgr := ctx.Locks()
	if mgr == nil || len(args) == 0 {
		fmt.Fprintln(out, "usage: :lock <name> (locking is disabled)")
		return true
	}
	if mgr.TryAcquire(args[0]) {
		fmt.Fprintf(out, "acquired lock %q\n", args[0])
	} else {
		fmt.Fprintf(out, "lock %q is held by another process\n", args[0])
	}
	return true
}

// builtinLocks lists every lock currently recorded on disk.
func builtinLocks(_ []string, out io.Writer, ctx *Context) bool {
	mgr := ctx.Locks()
	if mgr == nil {
		fmt.Fprintln(out, "(locking is disabled)")
		return true
	}
	infos := mgr.ListLocks()
	if len(infos) == 0 {
		fmt.Fprintln(out, "(no locks held)")
		return true
	}
	for _, info := range infos {
		fmt.Fprintf(out, "%s: pid=%d host=%s\n", info.Name, info.PID, info.Host)
	}
	return true
}

// builtinWait demonstrates the attached async executor (C8): `:wait
// <seconds>` submits a sleeping operation and blocks on its promise.
func builtinWait(args []string, out io.Writer, ctx *Context) bool {
	exec := ctx.Async()
	if exec == nil || len(args) == 0 {
		fmt.Fprintln(out, "usage: :wait <seconds> (async execution is disabled)")
		return true
	}
	var seconds float64
	if _, err := fmt.Sscanf(args[0], "%f", &seconds); err != nil {
		fmt.Fprintf(out, "error: invalid duration %q\n", args[0])
		return true
	}
	d := time.Duration(seconds * float64(time.Second))

	promise := exec.Submit(context.Background(), func(ctx context.Context, progress func(any)) (yallaasync.Result, error) {
		select {
		case <-time.After(d):
			return yallaasync.Result{ExitCode: 0, Output: fmt.Sprintf("waited %s", d)}, nil
		case <-ctx.Done():
			return yallaasync.Result{}, ctx.Err()
		}
	}, d+time.Second)

	var s *spinner.Spinner
	if ctx.Config().GetBool("display.colors", true) {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
		s.Suffix = fmt.Sprintf(" waiting %s...", d)
		s.Start()
	}

	result, err := promise.Wait(d + 2*time.Second)

	if s != nil {
		s.Stop()
	}

	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return true
	}
	fmt.Fprintln(out, result.Output)
	return true
}

func builtinMode(args []string, out io.Writer, ctx *Context) bool {
	if len(args) == 0 {
		fmt.Fprintf(out, "display.mode = %s\n", ctx.Config().GetString("display.mode", "compact"))
		return true
	}
	requested := args[0]
	if !allowedModes[requested] {
		fmt.Fprintf(out, "error: unknown mode %q (expected compact|verbose|json|dump)\n", requested)
		return true
	}
	ctx.Config().Set("display.mode", requested)
	fmt.Fprintf(out, "display.mode set to %s\n", requested)
	return true
}
