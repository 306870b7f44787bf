package yallasignal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRaiseAndDispatchInvokesHandlersOnce(t *testing.T) {
	d := New()
	defer d.Close()

	calls := 0
	d.OnSignal(Interrupt, func() { calls++ })

	d.Raise(Interrupt)
	d.Dispatch()
	require.Equal(t, 1, calls)

	// Without another Raise, a second Dispatch is a no-op.
	d.Dispatch()
	require.Equal(t, 1, calls)
}

func TestRegisterGracefulShutdownCoversBothSignals(t *testing.T) {
	d := New()
	defer d.Close()

	calls := 0
	d.RegisterGracefulShutdown(func() { calls++ })

	d.Raise(Interrupt)
	d.Dispatch()
	d.Raise(Terminate)
	d.Dispatch()

	require.Equal(t, 2, calls)
}

func TestRemoveClearsHandlers(t *testing.T) {
	d := New()
	defer d.Close()

	calls := 0
	d.OnSignal(Interrupt, func() { calls++ })
	d.Remove(Interrupt)

	d.Raise(Interrupt)
	d.Dispatch()
	require.Equal(t, 0, calls)
}

func TestIsAvailable(t *testing.T) {
	d := New()
	defer d.Close()
	require.True(t, d.IsAvailable())
}
