// Package yallacontext implements the REPL context registry described
// in spec.md §4.4 and §3: the single process-lifetime store of
// shortcuts, imports, namespaces, variables, commands, evaluators,
// formatters, completers, and input/output middleware shared by the
// session, extensions, and command handlers.
package yallacontext

import (
	"fmt"
	"io"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/atinylittleshell/yalla/internal/yallaasync"
	"github.com/atinylittleshell/yalla/internal/yallacommand"
	"github.com/atinylittleshell/yalla/internal/yallaconfig"
	"github.com/atinylittleshell/yalla/internal/yallahistory"
	"github.com/atinylittleshell/yalla/internal/yallalock"
	"github.com/atinylittleshell/yalla/internal/yallamiddleware"
)

// CommandHandler is a REPL command registered in the context. Returning
// false ends the session, matching spec.md §3's `(args, output,
// context) → bool | void` shape.
type CommandHandler func(args []string, out io.Writer, ctx *Context) bool

// EvaluatorFunc offers a raw input line to a custom evaluator. consumed
// reports whether it handled the line; when true, result is the value
// to render.
type EvaluatorFunc func(line string, ctx *Context) (consumed bool, result any, err error)

// Evaluator pairs a named handler with the priority it's tried at.
type Evaluator struct {
	Name     string
	Handler  EvaluatorFunc
	Priority int
}

// Formatter renders value to out for the active display mode override.
type Formatter func(value any, out io.Writer) error

// Completer returns completion candidates for fragment.
type Completer func(fragment string) []string

// MiddlewareFunc transforms data flowing through the input or output
// phase. Input middleware receives/returns a raw line string; output
// middleware receives/returns the value about to be rendered.
type MiddlewareFunc func(data any, ctx *Context) any

type formatterEntry struct {
	typ reflect.Type
	fn  Formatter
}

// Context is the shared registry described by spec.md §4.4. All
// registration methods return the Context itself so calls can chain,
// per spec.md §4.4's "(…) → self" contract.
type Context struct {
	mu sync.RWMutex

	config *yallaconfig.Config

	shortcuts  map[string]string
	imports    map[string]string
	namespaces map[string]string
	variables  map[string]any

	commands     map[string]CommandHandler
	commandOrder []string

	// commandObjects holds the richer declarative yallacommand.Command
	// surface (spec.md §4.11), executed through pipeline rather than
	// called directly the way a plain CommandHandler is.
	commandObjects map[string]yallacommand.Command
	pipeline       *yallamiddleware.Pipeline

	// async and locks expose the process-wide executor and advisory
	// lock manager to extensions and command handlers, per spec.md
	// §4.8/§4.9's contract that these are reachable from the context.
	async *yallaasync.Executor
	locks *yallalock.Manager

	evaluators []Evaluator

	formatters []formatterEntry
	completers map[string]Completer

	inputMiddleware  []MiddlewareFunc
	outputMiddleware []MiddlewareFunc

	// history is held as a plain reference: the context does not own
	// its lifecycle, matching spec.md §3's "weakly held; optional".
	history *yallahistory.Manager

	// running is flipped false by Stop; the session reads it at the top
	// of every loop iteration.
	running bool
}

// New constructs a Context over cfg and registers the built-in
// commands from spec.md §4.4 (help, exit, clear, history, vars,
// imports, mode).
func New(cfg *yallaconfig.Config) *Context {
	c := &Context{
		config:         cfg,
		shortcuts:      map[string]string{},
		imports:        map[string]string{},
		namespaces:     map[string]string{},
		variables:      map[string]any{},
		commands:       map[string]CommandHandler{},
		commandObjects: map[string]yallacommand.Command{},
		pipeline:       yallamiddleware.New(),
		completers:     map[string]Completer{},
		running:        true,
	}
	registerBuiltins(c)
	return c
}

// Config returns the context's config store.
func (c *Context) Config() *yallaconfig.Config { return c.config }

// AttachHistory associates a history manager so built-ins like
// `:history` can read it.
func (c *Context) AttachHistory(h *yallahistory.Manager) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = h
	return c
}

// History returns the attached history manager, or nil if none.
func (c *Context) History() *yallahistory.Manager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.history
}

// AttachAsync associates the process-wide async executor (C8) so
// extensions and command handlers can submit background operations
// through the context rather than needing their own executor.
func (c *Context) AttachAsync(e *yallaasync.Executor) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.async = e
	return c
}

// Async returns the attached executor, or nil if none was attached.
func (c *Context) Async() *yallaasync.Executor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.async
}

// AttachLocks associates the process-wide advisory lock manager (C9).
func (c *Context) AttachLocks(m *yallalock.Manager) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locks = m
	return c
}

// Locks returns the attached lock manager, or nil if none was attached.
func (c *Context) Locks() *yallalock.Manager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.locks
}

// Pipeline returns the middleware pipeline (C7) that wraps every
// registered Command object's execution.
func (c *Context) Pipeline() *yallamiddleware.Pipeline {
	return c.pipeline
}

// Use registers a middleware handler on the command pipeline at
// priority, per spec.md §4.7.
func (c *Context) Use(handler yallamiddleware.Handler, priority int) int {
	return c.pipeline.Add(handler, priority)
}

// RegisterCommandObject adds a declarative Command (spec.md §4.11),
// dispatched through Pipeline rather than invoked directly.
func (c *Context) RegisterCommandObject(cmd yallacommand.Command) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := cmd.Name()
	if _, exists := c.commandObjects[name]; !exists {
		c.commandOrder = append(c.commandOrder, name)
	}
	c.commandObjects[name] = cmd
	return c
}

// CommandObject looks up a registered Command by name.
func (c *Context) CommandObject(name string) (yallacommand.Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cmd, ok := c.commandObjects[name]
	return cmd, ok
}

// Running reports whether the session should keep looping.
func (c *Context) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Stop flips Running to false. The session calls it when a command
// handler such as the `exit` built-in returns false, and on Terminate.
func (c *Context) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
}

// AddShortcut registers alias → fqPath. Re-registering the same pair is
// a no-op beyond the overwrite, satisfying the idempotency invariant
// for map-backed registrations.
func (c *Context) AddShortcut(alias, fqPath string) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shortcuts[alias] = fqPath
	return c
}

// AddImport registers localName → fqPath.
func (c *Context) AddImport(localName, fqPath string) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.imports[localName] = fqPath
	return c
}

// AddNamespace registers alias → prefix.
func (c *Context) AddNamespace(alias, prefix string) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namespaces[alias] = prefix
	return c
}

// Imports returns a snapshot of the local-name → fq-path import map.
func (c *Context) Imports() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneStringMap(c.imports)
}

// Shortcuts returns a snapshot of the alias → fq-path shortcut map.
func (c *Context) Shortcuts() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneStringMap(c.shortcuts)
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SetVariable stores value under name, visible to both the `:vars`
// built-in and the evaluator's variable bindings.
func (c *Context) SetVariable(name string, value any) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[name] = value
	return c
}

// GetVariable looks up a stored variable.
func (c *Context) GetVariable(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[name]
	return v, ok
}

// Variables returns a snapshot of all stored variables.
func (c *Context) Variables() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.variables))
	for k, v := range c.variables {
		out[k] = v
	}
	return out
}

// VariableNames returns the sorted names of every stored variable,
// used by completion and the `:vars` listing.
func (c *Context) VariableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := lo.Keys(c.variables)
	sort.Strings(names)
	return names
}

// RegisterCommand adds or replaces the handler bound to name.
func (c *Context) RegisterCommand(name string, handler CommandHandler) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.commands[name]; !exists {
		c.commandOrder = append(c.commandOrder, name)
	}
	c.commands[name] = handler
	return c
}

// Command looks up the handler registered under name.
func (c *Context) Command(name string) (CommandHandler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.commands[name]
	return h, ok
}

// CommandNames returns every registered command name in registration
// order.
func (c *Context) CommandNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.commandOrder...)
}

// AddEvaluator registers handler at priority and re-sorts the
// evaluator list by priority descending, stable on ties, per spec.md
// §4.4's "re-sort on every insertion" rule.
func (c *Context) AddEvaluator(name string, handler EvaluatorFunc, priority int) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evaluators = append(c.evaluators, Evaluator{Name: name, Handler: handler, Priority: priority})
	sort.SliceStable(c.evaluators, func(i, j int) bool {
		return c.evaluators[i].Priority > c.evaluators[j].Priority
	})
	return c
}

// Evaluators returns the evaluator list in priority order.
func (c *Context) Evaluators() []Evaluator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Evaluator(nil), c.evaluators...)
}

// RegisterFormatter binds fn to typ. typ may be a concrete type (for
// exact matches) or an interface type obtained via
// reflect.TypeOf((*Iface)(nil)).Elem() (for ancestor matches against
// any value implementing it) — Go's nearest analogue to the spec's
// class-inheritance "ancestor" lookup.
func (c *Context) RegisterFormatter(typ reflect.Type, fn Formatter) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.formatters {
		if e.typ == typ {
			c.formatters[i].fn = fn
			return c
		}
	}
	c.formatters = append(c.formatters, formatterEntry{typ: typ, fn: fn})
	return c
}

// FormatterFor implements spec.md §4.4's formatter_for: an exact
// concrete-type match wins; otherwise the first registered interface
// type the value implements is used.
func (c *Context) FormatterFor(value any) (Formatter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if value == nil {
		return nil, false
	}
	vt := reflect.TypeOf(value)

	for _, e := range c.formatters {
		if e.typ == vt {
			return e.fn, true
		}
	}
	for _, e := range c.formatters {
		if e.typ.Kind() == reflect.Interface && vt.Implements(e.typ) {
			return e.fn, true
		}
	}
	return nil, false
}

// RegisterCompleter binds a completion provider under name.
func (c *Context) RegisterCompleter(name string, completer Completer) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completers[name] = completer
	return c
}

// Completers returns a snapshot of the completer registry.
func (c *Context) Completers() map[string]Completer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Completer, len(c.completers))
	for k, v := range c.completers {
		out[k] = v
	}
	return out
}

// AddInputMiddleware appends fn to the input phase, run in insertion
// order by ProcessInput.
func (c *Context) AddInputMiddleware(fn MiddlewareFunc) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputMiddleware = append(c.inputMiddleware, fn)
	return c
}

// AddOutputMiddleware appends fn to the output phase, run in insertion
// order by ProcessOutput.
func (c *Context) AddOutputMiddleware(fn MiddlewareFunc) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputMiddleware = append(c.outputMiddleware, fn)
	return c
}

// ProcessInput runs every input-phase middleware over s in insertion
// order, then expands shortcuts and namespace aliases, per spec.md
// §4.4.
func (c *Context) ProcessInput(s string) string {
	c.mu.RLock()
	middleware := append([]MiddlewareFunc(nil), c.inputMiddleware...)
	shortcuts := cloneStringMap(c.shortcuts)
	namespaces := cloneStringMap(c.namespaces)
	c.mu.RUnlock()

	data := any(s)
	for _, fn := range middleware {
		data = fn(data, c)
	}
	line, _ := data.(string)

	line = expandShortcuts(line, shortcuts)
	line = expandNamespaces(line, namespaces)
	return line
}

// ProcessOutput runs every output-phase middleware over v in insertion
// order.
func (c *Context) ProcessOutput(v any) any {
	c.mu.RLock()
	middleware := append([]MiddlewareFunc(nil), c.outputMiddleware...)
	c.mu.RUnlock()

	for _, fn := range middleware {
		v = fn(v, c)
	}
	return v
}

var identPattern = `[A-Za-z_][A-Za-z0-9_]*`

// expandShortcuts replaces the three syntactic forms from spec.md
// §4.4 — `alias::`, `new<ws>alias`, `alias::class` — with alias's
// mapped fully-qualified path. The `alias::` form is a strict prefix
// of `alias::class`, so rewriting the `::` form first yields the
// same result for both without a second pass.
func expandShortcuts(line string, shortcuts map[string]string) string {
	aliases := lo.Keys(shortcuts)
	sort.Slice(aliases, func(i, j int) bool { return len(aliases[i]) > len(aliases[j]) })

	for _, alias := range aliases {
		fq := shortcuts[alias]
		quoted := regexp.QuoteMeta(alias)

		doubleColon := regexp.MustCompile(`(?i)\b` + quoted + `::`)
		line = doubleColon.ReplaceAllString(line, fq+"::")

		newExpr := regexp.MustCompile(`(?i)\bnew(\s+)` + quoted + `\b`)
		line = newExpr.ReplaceAllString(line, "new${1}"+fq)
	}
	return line
}

// expandNamespaces replaces a word-bounded `alias.` with `prefix.`,
// the dotted-path separator the host evaluator uses for member access.
func expandNamespaces(line string, namespaces map[string]string) string {
	aliases := lo.Keys(namespaces)
	sort.Slice(aliases, func(i, j int) bool { return len(aliases[i]) > len(aliases[j]) })

	for _, alias := range aliases {
		prefix := namespaces[alias]
		quoted := regexp.QuoteMeta(alias)
		pattern := regexp.MustCompile(`(?i)\b` + quoted + `\.`)
		line = pattern.ReplaceAllString(line, prefix+".")
	}
	return line
}

// CompletionCandidates ranks candidates for fragment across the four
// sources named in spec.md §4.3: registered shortcuts, variable names
// (sigil-prefixed), REPL command names (colon-prefixed), and any
// built-in library symbols a caller layers in via extraSymbols. Results
// are ranked by prefix match and capped at max.
func (c *Context) CompletionCandidates(fragment string, extraSymbols []string, max int) []string {
	var pool []string

	c.mu.RLock()
	for alias := range c.shortcuts {
		pool = append(pool, alias)
	}
	for name := range c.variables {
		pool = append(pool, "$"+name)
	}
	for _, name := range c.commandOrder {
		pool = append(pool, ":"+name)
	}
	c.mu.RUnlock()

	pool = append(pool, extraSymbols...)
	pool = lo.Uniq(pool)

	needle := strings.ToLower(stripDecoration(fragment))
	matches := lo.Filter(pool, func(candidate string, _ int) bool {
		return strings.HasPrefix(strings.ToLower(stripDecoration(candidate)), needle)
	})
	sort.Strings(matches)

	if max > 0 && len(matches) > max {
		matches = matches[:max]
	}
	return matches
}

// stripDecoration removes a leading variable sigil or command colon so
// prefix matching in CompletionCandidates works against the bare name
// regardless of which source a candidate came from.
func stripDecoration(s string) string {
	if len(s) > 0 && (s[0] == '$' || s[0] == ':') {
		return s[1:]
	}
	return s
}

// fmtNameOf is a small helper built-ins use to print a value's dynamic
// type name without importing a render package dependency cycle.
func fmtNameOf(v any) string {
	return fmt.Sprintf("%T", v)
}
