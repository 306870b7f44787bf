package yallamiddleware

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atinylittleshell/yalla/internal/yallacommand"
)

type fakeCommand struct{}

func (fakeCommand) Name() string                       { return "fake" }
func (fakeCommand) Description() string                { return "" }
func (fakeCommand) Arguments() []yallacommand.ArgumentSpec { return nil }
func (fakeCommand) Options() []yallacommand.OptionSpec     { return nil }
func (fakeCommand) Execute(yallacommand.Input, io.Writer) int {
	return yallacommand.ExitSuccess
}

func TestExecuteOrderIsPriorityDescendingThenInsertion(t *testing.T) {
	p := New()
	var order []string

	p.Add(func(cmd yallacommand.Command, in yallacommand.Input, out io.Writer, next Next) int {
		order = append(order, "low-enter")
		r := next()
		order = append(order, "low-exit")
		return r
	}, 10)

	p.Add(func(cmd yallacommand.Command, in yallacommand.Input, out io.Writer, next Next) int {
		order = append(order, "high-a-enter")
		r := next()
		order = append(order, "high-a-exit")
		return r
	}, 100)

	p.Add(func(cmd yallacommand.Command, in yallacommand.Input, out io.Writer, next Next) int {
		order = append(order, "high-b-enter")
		r := next()
		order = append(order, "high-b-exit")
		return r
	}, 100)

	result := p.Execute(fakeCommand{}, yallacommand.Input{}, &bytes.Buffer{})

	require.Equal(t, yallacommand.ExitSuccess, result)
	require.Equal(t, []string{
		"high-a-enter", "high-b-enter", "low-enter",
		"low-exit", "high-b-exit", "high-a-exit",
	}, order)
}

func TestShortCircuitSkipsInnerHandlersAndCommand(t *testing.T) {
	p := New()
	called := false

	p.Add(func(cmd yallacommand.Command, in yallacommand.Input, out io.Writer, next Next) int {
		return 42 // never calls next
	}, PriorityAuthentication)

	p.Add(func(cmd yallacommand.Command, in yallacommand.Input, out io.Writer, next Next) int {
		called = true
		return next()
	}, PriorityValidation)

	result := p.Execute(fakeCommand{}, yallacommand.Input{}, &bytes.Buffer{})

	require.Equal(t, 42, result)
	require.False(t, called)
}

func TestRemoveAndClear(t *testing.T) {
	p := New()
	id := p.Add(func(yallacommand.Command, yallacommand.Input, io.Writer, Next) int { return 0 }, 1)
	require.Equal(t, 1, p.Count())
	require.True(t, p.Remove(id))
	require.Equal(t, 0, p.Count())

	p.AddMany([]Handler{
		func(yallacommand.Command, yallacommand.Input, io.Writer, Next) int { return 0 },
		func(yallacommand.Command, yallacommand.Input, io.Writer, Next) int { return 0 },
	}, 1)
	require.Equal(t, 2, p.Count())
	p.Clear()
	require.Equal(t, 0, p.Count())
}
