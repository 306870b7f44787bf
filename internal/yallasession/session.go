// Package yallasession implements the REPL's control loop (spec.md
// §4.5): read a line, preprocess and dispatch it, evaluate it, render
// the result, and keep going until a command or signal says to stop.
// This is the piece that wires together every other component package
// (C1 history, C2 input, C3 config, C4 context, C6 render, C10 signal)
// the way gsh's cmd/gsh `runInteractiveShell` wires its own REPL.
package yallasession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"

	"github.com/atinylittleshell/yalla/internal/yallacommand"
	"github.com/atinylittleshell/yalla/internal/yallacontext"
	"github.com/atinylittleshell/yalla/internal/yallaeval"
	"github.com/atinylittleshell/yalla/internal/yallahistory"
	"github.com/atinylittleshell/yalla/internal/yallainput"
	"github.com/atinylittleshell/yalla/internal/yallarender"
	"github.com/atinylittleshell/yalla/internal/yallasignal"
)

// Options configures a Session. Context, Renderer and Evaluator are
// required, and Run also needs Input. History and Signals may be nil to
// go without them, a nil Out writes to os.Stdout, and a nil Logger
// discards logging.
type Options struct {
	Context   *yallacontext.Context
	History   *yallahistory.Manager
	Input     *yallainput.Reader
	Renderer  *yallarender.Renderer
	Signals   *yallasignal.Dispatcher
	Evaluator *yallaeval.GoEvaluator
	Out       io.Writer
	Logger    *zap.Logger
}

// Session owns the mutable state the spec exclusively assigns to it:
// the command counter and the session-local variable map (§3's
// lifecycle table). Everything else is shared by reference.
type Session struct {
	ctx       *yallacontext.Context
	history   *yallahistory.Manager
	input     *yallainput.Reader
	renderer  *yallarender.Renderer
	signals   *yallasignal.Dispatcher
	evaluator *yallaeval.GoEvaluator
	out       io.Writer
	logger    *zap.Logger

	localVars map[string]any
	counter   int
}

// New constructs a Session and attaches signal handlers for interrupt
// and terminate, per spec.md §4.5's construction-time lifecycle.
func New(opts Options) *Session {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Session{
		ctx:       opts.Context,
		history:   opts.History,
		input:     opts.Input,
		renderer:  opts.Renderer,
		signals:   opts.Signals,
		evaluator: opts.Evaluator,
		out:       opts.Out,
		logger:    opts.Logger,
		localVars: map[string]any{},
	}

	if s.history != nil {
		s.ctx.AttachHistory(s.history)
	}

	if s.signals != nil {
		s.signals.OnSignal(yallasignal.Interrupt, func() {
			fmt.Fprintln(s.out, "interrupt received — type :exit to quit")
		})
		s.signals.OnSignal(yallasignal.Terminate, func() {
			s.ctx.Stop()
		})
	}

	return s
}

// Run executes the read-preprocess-evaluate-render loop described in
// spec.md §4.5 until running is false or input reaches its end.
func (s *Session) Run(ctx context.Context) error {
	s.printWelcome()

	for s.ctx.Running() {
		if s.signals != nil {
			s.signals.Dispatch()
		}

		s.counter++
		prompt := s.buildPrompt()

		line, err := s.input.ReadLine(prompt)
		if s.signals != nil {
			s.signals.Dispatch()
		}

		if errors.Is(err, yallainput.ErrInterrupted) {
			// Ctrl+C in raw mode arrives as ErrInterrupted rather than
			// as an OS signal, so the Interrupt handler registered in New
			// never sees it; the warning is printed here and the loop
			// keeps going, per spec.md §4.5's signal behaviour table.
			fmt.Fprintln(s.out, "interrupt received — type :exit to quit")
			continue
		}
		if errors.Is(err, yallainput.ErrEndOfInput) {
			break
		}
		if err != nil {
			return fmt.Errorf("yallasession: reading input: %w", err)
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		if s.history != nil {
			s.history.Add(line)
			s.history.ResetCursor()
		}

		s.handleLine(ctx, line)
	}

	s.printGoodbye()
	return nil
}

func (s *Session) printWelcome() {
	cfg := s.ctx.Config()
	if welcome := cfg.GetString("display.welcome", ""); welcome != "" {
		fmt.Fprintln(s.out, welcome)
	}
	if s.signals != nil && !s.signals.IsAvailable() {
		fmt.Fprintln(s.out, "note: this platform has no cooperative signal support; Ctrl+C during input still works, but asynchronous interrupts will not")
	}
	if cfg.GetBool("display.show_help", true) {
		fmt.Fprintln(s.out, "type :help for a list of commands")
	}
}

func (s *Session) printGoodbye() {
	if goodbye := s.ctx.Config().GetString("display.goodbye", ""); goodbye != "" {
		fmt.Fprintln(s.out, goodbye)
	}
}

// buildPrompt substitutes {counter}, {cwd}, {time} into display.prompt,
// per spec.md §6.
func (s *Session) buildPrompt() string {
	tmpl := s.ctx.Config().GetString("display.prompt", "[{counter}] yalla> ")
	cwd, _ := os.Getwd()

	r := strings.NewReplacer(
		"{counter}", fmt.Sprintf("%d", s.counter),
		"{cwd}", filepathBase(cwd),
		"{time}", time.Now().Format("15:04:05"),
	)
	return r.Replace(tmpl)
}

func filepathBase(p string) string {
	if p == "" {
		return ""
	}
	i := strings.LastIndexAny(p, `/\`)
	return p[i+1:]
}

var assignmentPattern = regexp.MustCompile(`^\$([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.+)$`)

var variableSigilPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// stripVariableSigils rewrites every `$name` reference to the bare
// identifier `name`, so a read like `$x + 3` reaches the evaluator as
// valid Go source instead of failing on the illegal `$` character. The
// assignment LHS strips its own sigil separately via assignmentPattern.
func stripVariableSigils(line string) string {
	return variableSigilPattern.ReplaceAllString(line, "$1")
}

// ExecuteLine runs a single line through the same dispatch path Run
// uses, without touching history or the input reader. Callers use it
// to play back a bootstrap script before the prompt appears.
func (s *Session) ExecuteLine(line string) {
	s.handleLine(context.Background(), line)
}

// handleLine implements spec.md §4.5 step 5: command dispatch,
// variable assignment, or expression evaluation, with every error
// caught so the loop never dies (§7's propagation policy).
func (s *Session) handleLine(ctx context.Context, line string) {
	defer s.recoverPanic()
	start := time.Now()

	switch {
	case strings.HasPrefix(line, ":"):
		s.dispatchCommand(line)
	default:
		if m := assignmentPattern.FindStringSubmatch(line); m != nil {
			s.handleAssignment(m[1], m[2], start)
			return
		}
		s.handleExpression(line, start)
	}
}

func (s *Session) recoverPanic() {
	if r := recover(); r != nil {
		s.renderer.RenderError(s.out, "runtime error", fmt.Sprintf("%v", r))
		if s.ctx.Config().GetBool("display.stacktrace", false) {
			s.renderer.RenderStackTrace(s.out, string(debug.Stack()))
		}
	}
}

// dispatchCommand handles spec.md §4.5 step 5's `:cmd [args]` form.
// A declarative yallacommand.Command registration (§4.11) is tried
// first, run through the middleware pipeline (§4.7); otherwise the
// lighter CommandHandler registry is used directly.
func (s *Session) dispatchCommand(line string) {
	rest := strings.TrimPrefix(line, ":")
	name, argLine, _ := strings.Cut(rest, " ")
	args := strings.Fields(argLine)

	if cmd, ok := s.ctx.CommandObject(name); ok {
		in := yallacommand.Input{Command: name, Arguments: args}
		code := s.ctx.Pipeline().Execute(cmd, in, s.out)
		if code != yallacommand.ExitSuccess {
			s.renderer.RenderError(s.out, "command error", fmt.Sprintf("%s exited with code %d", name, code))
		}
		return
	}

	handler, ok := s.ctx.Command(name)
	if !ok {
		s.renderer.RenderError(s.out, "unknown command", ":"+name)
		if suggestion, found := closestCommand(name, s.ctx.CommandNames()); found {
			s.renderer.RenderSuggestion(s.out, suggestion)
		}
		return
	}

	if !handler(args, s.out, s.ctx) {
		s.ctx.Stop()
	}
}

// closestCommand implements spec.md §4.5's "similarity ratio exceeds
// 50%" unknown-command suggestion using edit-distance-based fuzzy
// ranking, the same library opal's planner uses to rank candidates.
func closestCommand(typed string, candidates []string) (string, bool) {
	best := ""
	bestRatio := 0.0
	for _, candidate := range candidates {
		rank := fuzzy.LevenshteinDistance(strings.ToLower(typed), strings.ToLower(candidate))
		denom := len(typed)
		if len(candidate) > denom {
			denom = len(candidate)
		}
		if denom == 0 {
			continue
		}
		ratio := 1 - float64(rank)/float64(denom)
		if ratio > bestRatio {
			bestRatio = ratio
			best = candidate
		}
	}
	if bestRatio > 0.5 {
		return best, true
	}
	return "", false
}

func (s *Session) handleAssignment(name, expr string, start time.Time) {
	value, err := s.evaluate(expr)
	if err != nil {
		s.reportEvalError(err, expr)
		return
	}

	s.localVars[name] = value
	s.ctx.SetVariable(name, value)
	s.renderResult(value, start)
}

func (s *Session) handleExpression(line string, start time.Time) {
	value, err := s.evaluate(line)
	if err != nil {
		s.reportEvalError(err, line)
		return
	}
	s.renderResult(value, start)
}

// evaluate implements spec.md §4.5 step 5's expression path: a
// preprocessing pass, the custom evaluator chain in priority order,
// and the host-language fallback. Step 5d's new-binding promotion only
// applies to the fallback evaluator, since custom evaluators declare
// their own result without exposing an interpreter scope to diff.
func (s *Session) evaluate(line string) (any, error) {
	processed := stripVariableSigils(s.ctx.ProcessInput(line))

	for _, ev := range s.ctx.Evaluators() {
		consumed, result, err := ev.Handler(processed, s.ctx)
		if consumed {
			return result, err
		}
	}

	bindings := s.bindings()
	imports := s.ctx.Imports()
	blocked := stringSlice(s.ctx.Config().Get("security.blocked_functions", nil))

	newBindings, result, err := s.evaluator.EvalWithBindings(processed, bindings, imports, blocked)
	s.promoteBindings(newBindings)
	return result, err
}

// promoteBindings implements spec.md §4.5 step 5d: diff the names the
// evaluated line declared against the pre-evaluation session-local
// set, storing any new binding into the session-local map.
func (s *Session) promoteBindings(newBindings map[string]any) {
	for name, value := range newBindings {
		if _, already := s.localVars[name]; already {
			continue
		}
		s.localVars[name] = value
	}
}

// bindings unions session-local and context variables, per spec.md
// §4.5 step 5c. Session-local entries win on name collision since
// they're the more recently assigned scope.
func (s *Session) bindings() map[string]any {
	out := make(map[string]any, len(s.localVars))
	for k, v := range s.ctx.Variables() {
		out[k] = v
	}
	for k, v := range s.localVars {
		out[k] = v
	}
	return out
}

func stringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (s *Session) renderResult(value any, start time.Time) {
	value = s.ctx.ProcessOutput(value)

	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	mode := yallarender.Mode(s.ctx.Config().GetString("display.mode", "compact"))
	formatter, hasFormatter := s.ctx.FormatterFor(value)
	var ff yallarender.FormatterFunc
	if hasFormatter {
		ff = func(v any, out io.Writer) error { return formatter(v, out) }
	}

	if err := s.renderer.Render(value, mode, s.out, ff); err != nil {
		s.renderer.RenderError(s.out, "render error", err.Error())
	}

	if s.ctx.Config().GetBool("display.performance", false) {
		var after runtime.MemStats
		runtime.ReadMemStats(&after)
		elapsed := time.Since(start).Milliseconds()
		s.renderer.RenderPerformanceLine(s.out, elapsed, int64(after.Alloc)-int64(before.Alloc))
	}
}

// reportEvalError implements spec.md §4.5's error-handling subsection:
// a parse error gets a source-context window, a runtime error doesn't;
// neither ever panics past this call.
func (s *Session) reportEvalError(err error, source string) {
	if line, ok := parseErrorLine(err); ok {
		s.renderer.RenderError(s.out, "parse error", err.Error())
		s.renderer.RenderSourceContext(s.out, strings.Split(source, "\n"), line)
		return
	}
	s.renderer.RenderError(s.out, "runtime error", err.Error())
}

var lineColPattern = regexp.MustCompile(`(\d+):\d+:`)

func parseErrorLine(err error) (int, bool) {
	m := lineColPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}
	var line int
	fmt.Sscanf(m[1], "%d", &line)
	return line, true
}
