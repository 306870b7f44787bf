// Package yallamiddleware implements the priority-ordered around-handler
// chain shared by the REPL and CLI dispatcher (spec.md §4.7).
package yallamiddleware

import (
	"io"
	"sort"

	"github.com/atinylittleshell/yalla/internal/yallacommand"
)

// Next is the continuation a handler calls to run the rest of the chain.
type Next func() int

// Handler wraps a command execution. It may inspect or transform inputs
// and outputs, call next zero or more times, and compose its own return
// value with the inner result. Not calling next short-circuits the
// chain: the handler's own return value becomes the pipeline's result.
type Handler func(cmd yallacommand.Command, in yallacommand.Input, out io.Writer, next Next) int

// Default priority bands, matching spec.md §4.7: authentication runs
// outermost (highest), then validation, then timing, with transactions
// innermost around the command body.
const (
	PriorityAuthentication = 200
	PriorityTiming         = 100
	PriorityValidation     = 150
	PriorityTransaction    = 50
)

type entry struct {
	id       int
	handler  Handler
	priority int
	seq      int // insertion order, for stable tie-breaking
}

// Pipeline is an ordered collection of middleware handlers.
type Pipeline struct {
	entries []entry
	nextID  int
	nextSeq int
}

// New returns an empty pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// Add registers handler at priority, returning an id Remove can target.
func (p *Pipeline) Add(handler Handler, priority int) int {
	p.nextID++
	p.entries = append(p.entries, entry{id: p.nextID, handler: handler, priority: priority, seq: p.nextSeq})
	p.nextSeq++
	return p.nextID
}

// AddMany registers several handlers at once, returning their ids in order.
func (p *Pipeline) AddMany(handlers []Handler, priority int) []int {
	ids := make([]int, len(handlers))
	for i, h := range handlers {
		ids[i] = p.Add(h, priority)
	}
	return ids
}

// Remove drops the handler registered under id. Reports whether anything
// was removed.
func (p *Pipeline) Remove(id int) bool {
	for i, e := range p.entries {
		if e.id == id {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Count reports how many handlers are currently registered.
func (p *Pipeline) Count() int {
	return len(p.entries)
}

// Clear removes every handler.
func (p *Pipeline) Clear() {
	p.entries = nil
}

// sorted returns entries ordered by priority descending, ties broken by
// insertion order (stable sort over the recorded sequence number).
func (p *Pipeline) sorted() []entry {
	out := make([]entry, len(p.entries))
	copy(out, p.entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority > out[j].priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Execute builds the handler chain and runs cmd.Execute at its core.
// Handler panics/exceptions are not recovered here: they propagate to
// the caller unless an individual handler chooses to recover internally,
// matching spec.md §7's middleware short-circuit/propagation policy.
func (p *Pipeline) Execute(cmd yallacommand.Command, in yallacommand.Input, out io.Writer) int {
	chain := p.sorted()

	var run func(i int) int
	run = func(i int) int {
		if i >= len(chain) {
			return cmd.Execute(in, out)
		}
		h := chain[i]
		return h.handler(cmd, in, out, func() int {
			return run(i + 1)
		})
	}

	return run(0)
}
