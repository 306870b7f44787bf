// Package yallasignal implements the cooperative signal handler registry
// described in spec.md §4.10: user code calls Dispatch() at safe points
// and any pending handler for a fired signal runs there, rather than
// signals preempting execution.
package yallasignal

import (
	"os"
	"os/signal"
	"sync"
)

// Signal identifies one of the dispatcher's recognized signal classes.
type Signal int

const (
	Interrupt Signal = iota
	Terminate
)

// Callback is invoked when a registered signal has fired and Dispatch is
// called. The callback runs on the caller's goroutine, never on a
// separate signal-handling goroutine.
type Callback func()

// Dispatcher owns the handler table and the flags set by the OS signal
// channel. Both are guarded by mu, so the signal-reading goroutine that
// New starts can set flags while the REPL session, the only caller of
// Dispatch, runs the handlers on its own goroutine.
type Dispatcher struct {
	mu       sync.Mutex
	handlers map[Signal][]Callback
	pending  map[Signal]bool

	sigCh  chan os.Signal
	stopCh chan struct{}
}

// New constructs a Dispatcher and, if the platform supports it, starts
// listening for interrupt and terminate signals.
func New() *Dispatcher {
	d := &Dispatcher{
		handlers: map[Signal][]Callback{},
		pending:  map[Signal]bool{},
	}
	if !platformSupportsSignals {
		return d
	}

	d.sigCh = make(chan os.Signal, 4)
	d.stopCh = make(chan struct{})
	signal.Notify(d.sigCh, os.Interrupt, terminateSignal)

	go func() {
		for {
			select {
			case sig, ok := <-d.sigCh:
				if !ok {
					return
				}
				d.mu.Lock()
				if sig == terminateSignal && terminateSignal != os.Interrupt {
					d.pending[Terminate] = true
				} else {
					d.pending[Interrupt] = true
				}
				d.mu.Unlock()
			case <-d.stopCh:
				return
			}
		}
	}()

	return d
}

// IsAvailable reports whether cooperative signal handling is supported
// on this platform. Callers should surface a false result to the user
// (startup banner, :help) rather than silently ignoring signals, per
// spec.md §9's open question about this exact failure mode.
func (d *Dispatcher) IsAvailable() bool {
	return platformSupportsSignals
}

// OnSignal appends cb to the handlers invoked when sig is dispatched.
func (d *Dispatcher) OnSignal(sig Signal, cb Callback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[sig] = append(d.handlers[sig], cb)
}

// RegisterGracefulShutdown attaches cb to both Interrupt and Terminate.
func (d *Dispatcher) RegisterGracefulShutdown(cb Callback) {
	d.OnSignal(Interrupt, cb)
	d.OnSignal(Terminate, cb)
}

// Remove clears every handler registered for sig.
func (d *Dispatcher) Remove(sig Signal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, sig)
}

// Dispatch runs any pending handlers for signals that have fired since
// the last call, then clears the pending flags. It is a no-op when the
// platform doesn't support cooperative signals.
func (d *Dispatcher) Dispatch() {
	if !platformSupportsSignals {
		return
	}

	d.mu.Lock()
	fired := make([]Signal, 0, 2)
	for sig, isPending := range d.pending {
		if isPending {
			fired = append(fired, sig)
			d.pending[sig] = false
		}
	}
	handlersBySignal := make(map[Signal][]Callback, len(fired))
	for _, sig := range fired {
		handlersBySignal[sig] = append([]Callback(nil), d.handlers[sig]...)
	}
	d.mu.Unlock()

	for _, sig := range fired {
		for _, cb := range handlersBySignal[sig] {
			cb()
		}
	}
}

// Raise marks sig as pending, as if the OS had delivered it. Intended
// for tests that can't easily send real process signals.
func (d *Dispatcher) Raise(sig Signal) {
	d.mu.Lock()
	d.pending[sig] = true
	d.mu.Unlock()
}

// Close stops listening for OS signals.
func (d *Dispatcher) Close() {
	if d.stopCh != nil {
		close(d.stopCh)
	}
	if d.sigCh != nil {
		signal.Stop(d.sigCh)
	}
}
